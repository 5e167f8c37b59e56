package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"livescribe/internal/ports"
)

var (
	// ErrPermissionDenied means the OS refused access to the input device.
	ErrPermissionDenied = errors.New("microphone access denied")
	// ErrCaptureStart means the capture process could not be brought up.
	ErrCaptureStart = errors.New("audio capture failed to start")
)

const (
	defaultSampleRate  = 16000
	defaultChannels    = 1
	defaultStartupWait = 250 * time.Millisecond
	defaultStopTimeout = 1200 * time.Millisecond
)

// Options tunes the ffmpeg subprocess.
type Options struct {
	Command     string
	StartupWait time.Duration
	StopTimeout time.Duration
}

// Capture records microphone PCM (s16le) through an ffmpeg child process.
type Capture struct {
	command     string
	startupWait time.Duration
	stopTimeout time.Duration
	logger      zerolog.Logger
}

func NewCapture(opts Options, logger zerolog.Logger) *Capture {
	if opts.Command == "" {
		opts.Command = "ffmpeg"
	}
	if opts.StartupWait <= 0 {
		opts.StartupWait = defaultStartupWait
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	return &Capture{
		command:     opts.Command,
		startupWait: opts.StartupWait,
		stopTimeout: opts.StopTimeout,
		logger:      logger.With().Str("component", "audio").Logger(),
	}
}

func (c *Capture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withDefaults(cfg)

	cmd := exec.CommandContext(ctx, c.command, ffmpegArgs(cfg)...)
	stderr := &syncBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrCaptureStart, err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCaptureStart, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		return nil, startupFailure(err, stderr.String())
	case <-time.After(c.startupWait):
	}

	c.logger.Debug().
		Str("format", cfg.InputFormat).
		Str("device", cfg.InputDevice).
		Int("sample_rate", cfg.SampleRate).
		Int("channels", cfg.Channels).
		Msg("capture started")

	return &captureSession{
		stdout:      stdout,
		stderr:      stderr,
		process:     cmd.Process,
		waitErr:     waitErr,
		stopTimeout: c.stopTimeout,
		logger:      c.logger,
	}, nil
}

func withDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = defaultChannels
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}

func ffmpegArgs(cfg ports.AudioConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

// startupFailure explains why ffmpeg quit before delivering audio.
func startupFailure(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if permissionMessage(detail) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, detail)
	}
	if err != nil && detail != "" {
		return fmt.Errorf("%w: ffmpeg exited: %v: %s", ErrCaptureStart, err, detail)
	}
	if err != nil {
		return fmt.Errorf("%w: ffmpeg exited: %v", ErrCaptureStart, err)
	}
	return fmt.Errorf("%w: ffmpeg exited before capture started", ErrCaptureStart)
}

func permissionMessage(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "permission denied") || strings.Contains(lower, "access denied")
}

type captureSession struct {
	stdout io.ReadCloser
	stderr *syncBuffer

	process     *os.Process
	waitErr     <-chan error
	stopTimeout time.Duration
	logger      zerolog.Logger

	stopOnce sync.Once
	stopErr  error
}

func (s *captureSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *captureSession) Close() error {
	return s.Stop()
}

// Stop interrupts ffmpeg, escalating to kill after the stop timeout.
func (s *captureSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(s.stopTimeout):
			s.logger.Warn().Msg("ffmpeg ignored interrupt, killing")
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.waitErr; ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = closeErr
		}
		if s.stopErr != nil {
			if detail := strings.TrimSpace(s.stderr.String()); detail != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, detail)
			}
		}
	})

	return s.stopErr
}

// normalizeStopErr drops the exit status ffmpeg reports after an interrupt.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// syncBuffer lets the exec copier goroutine write stderr while Stop reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
