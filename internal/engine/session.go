package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"livescribe/internal/audio"
	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

// session is one StartListening call. The run goroutine owns all
// transcript state; the pump only emits level and buffer events.
type session struct {
	provider Provider
	capture  ports.AudioCapture
	opts     Options
	events   *emitter
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}

	committed  string
	sawSpeech  bool
	endOfInput bool
}

func newSession(parent context.Context, e *Engine, listener ports.RecognitionListener, logger zerolog.Logger) *session {
	ctx, cancel := context.WithCancel(parent)
	return &session{
		provider: e.provider,
		capture:  e.capture,
		opts:     e.opts,
		events:   &emitter{listener: listener},
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *session) stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// abort silences the session and waits until it released everything.
func (s *session) abort() {
	s.events.silence()
	s.cancel()
	<-s.done
}

func (s *session) run(cfg domain.RecognitionConfig) {
	defer close(s.done)
	defer s.cancel()

	transport, err := s.provider.Dial(s.ctx, cfg)
	if err != nil {
		s.fail(Classify(err), err)
		return
	}

	mic, err := s.capture.Start(s.ctx, s.opts.Audio)
	if err != nil {
		_ = transport.Close()
		s.fail(captureCode(err), err)
		return
	}

	s.events.emit(domain.ReadyForSpeech())
	s.logger.Debug().Str("locale", cfg.Locale).Msg("session ready")

	updates := make(chan Update, 16)
	recvErr := make(chan error, 1)
	pumpErr := make(chan error, 1)
	recvDone := make(chan struct{})
	pumpDone := make(chan struct{})

	go s.receive(transport, updates, recvErr, recvDone)
	go s.pump(mic, transport, pumpErr, pumpDone)

	defer func() {
		s.cancel()
		_ = mic.Stop()
		_ = transport.Close()
		<-pumpDone
		<-recvDone
	}()

	noSpeech := time.NewTimer(s.opts.NoSpeechTimeout)
	defer noSpeech.Stop()

	var drain <-chan time.Time
	stopCh := s.stopCh
	for {
		select {
		case <-s.ctx.Done():
			return

		case <-stopCh:
			stopCh = nil
			s.endOfInput = true
			noSpeech.Stop()
			if err := mic.Stop(); err != nil {
				s.logger.Warn().Err(err).Msg("capture stop failed")
			}
			drain = time.After(s.opts.StopGrace)

		case update := <-updates:
			if s.apply(update) {
				return
			}
			if s.sawSpeech {
				noSpeech.Stop()
			}

		case err := <-recvErr:
			if errors.Is(err, io.EOF) || s.endOfInput {
				s.finish()
				return
			}
			s.fail(Classify(err), err)
			return

		case err := <-pumpErr:
			pumpErr = nil
			if err != nil && !s.endOfInput {
				s.fail(Classify(err), err)
				return
			}

		case <-noSpeech.C:
			if !s.sawSpeech && !s.endOfInput {
				s.fail(domain.ErrorCodeSpeechTimeout, nil)
				return
			}

		case <-drain:
			s.logger.Debug().Msg("drain window elapsed")
			s.finish()
			return
		}
	}
}

// apply runs the session script for one update and reports whether the
// utterance is complete.
func (s *session) apply(update Update) bool {
	switch update.Kind {
	case UpdateSpeechStarted:
		s.beginSpeech()

	case UpdateTranscript:
		text := strings.TrimSpace(update.Text)
		if text != "" {
			s.beginSpeech()
		}
		if update.IsFinal {
			s.committed = joinText(s.committed, text)
			if s.committed != "" && text != "" {
				s.events.emit(domain.PartialResult(s.committed))
			}
		} else if text != "" {
			s.events.emit(domain.PartialResult(joinText(s.committed, text)))
		}
		if update.SpeechFinal && s.committed != "" {
			s.complete()
			return true
		}

	case UpdateUtteranceEnd:
		if s.committed != "" {
			s.complete()
			return true
		}
	}
	return false
}

func (s *session) beginSpeech() {
	if s.sawSpeech {
		return
	}
	s.sawSpeech = true
	s.events.emit(domain.BeginningOfSpeech())
}

func (s *session) complete() {
	s.events.emit(domain.EndOfSpeech())
	s.events.emit(domain.FinalResult(s.committed))
	s.logger.Debug().Int("chars", len(s.committed)).Msg("utterance complete")
}

// finish ends a stopped session with whatever was committed.
func (s *session) finish() {
	if s.committed == "" {
		s.fail(domain.ErrorCodeNoMatch, nil)
		return
	}
	s.complete()
}

func (s *session) fail(code domain.ErrorCode, err error) {
	if s.ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return
	}
	event := s.logger.Info().Str("code", string(code))
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("session failed")
	s.events.emit(domain.RecognitionError(code))
}

func (s *session) receive(transport Transport, updates chan<- Update, errs chan<- error, done chan<- struct{}) {
	defer close(done)
	for {
		update, err := transport.Recv()
		if err != nil {
			errs <- err
			return
		}
		select {
		case updates <- update:
		case <-s.ctx.Done():
			return
		}
	}
}

// pump copies capture chunks into the transport and half-closes it once
// capture ends.
func (s *session) pump(mic ports.AudioSession, transport Transport, errs chan<- error, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, s.opts.ChunkSize)
	for {
		n, err := mic.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			s.events.emit(domain.VolumeChanged(audio.LevelDB(chunk)))
			s.events.emit(domain.BufferReceived(chunk))
			if sendErr := transport.Send(chunk); sendErr != nil {
				errs <- sendErr
				return
			}
		}
		if err != nil {
			if s.ctx.Err() != nil {
				errs <- nil
				return
			}
			if closeErr := transport.CloseSend(); closeErr != nil {
				s.logger.Debug().Err(closeErr).Msg("close send failed")
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || s.stopping() {
				errs <- nil
				return
			}
			errs <- &Error{Code: domain.ErrorCodeAudio, Err: err}
			return
		}
	}
}

func (s *session) stopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func joinText(committed string, next string) string {
	switch {
	case committed == "":
		return next
	case next == "":
		return committed
	default:
		return committed + " " + next
	}
}

// emitter delivers events to the listener and enforces a single terminal
// event per session.
type emitter struct {
	mu       sync.Mutex
	listener ports.RecognitionListener
	closed   bool
}

func (e *emitter) emit(event domain.RecognitionEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.listener == nil {
		return false
	}
	if event.Terminal() {
		e.closed = true
	}
	e.listener.OnRecognitionEvent(event)
	return true
}

func (e *emitter) silence() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}
