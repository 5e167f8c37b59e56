package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

const (
	defaultChunkSize       = 4096
	minChunkSize           = 256
	defaultNoSpeechTimeout = 8 * time.Second
	defaultStopGrace       = 3 * time.Second
)

// Options controls capture and session timing.
type Options struct {
	Audio           ports.AudioConfig
	ChunkSize       int
	NoSpeechTimeout time.Duration
	StopGrace       time.Duration
}

func (o Options) withDefaults() Options {
	if o.ChunkSize < minChunkSize {
		o.ChunkSize = defaultChunkSize
	}
	if o.NoSpeechTimeout <= 0 {
		o.NoSpeechTimeout = defaultNoSpeechTimeout
	}
	if o.StopGrace <= 0 {
		o.StopGrace = defaultStopGrace
	}
	return o
}

// Engine pairs a streaming provider with microphone capture.
type Engine struct {
	provider Provider
	capture  ports.AudioCapture
	opts     Options
	logger   zerolog.Logger
}

func New(provider Provider, capture ports.AudioCapture, opts Options, logger zerolog.Logger) *Engine {
	name := "none"
	if provider != nil {
		name = provider.Name()
	}
	return &Engine{
		provider: provider,
		capture:  capture,
		opts:     opts.withDefaults(),
		logger:   logger.With().Str("component", "engine").Str("provider", name).Logger(),
	}
}

func (e *Engine) Available() bool {
	return e.provider != nil && e.capture != nil && e.provider.Available()
}

// Create returns a recognizer bound to ctx. Cancelling ctx aborts any
// running session without a terminal event.
func (e *Engine) Create(ctx context.Context) (ports.Recognizer, error) {
	if !e.Available() {
		return nil, &Error{Code: domain.ErrorCodeClient, Err: errUnavailable}
	}
	return &Recognizer{engine: e, ctx: ctx}, nil
}

// Recognizer runs at most one session at a time.
type Recognizer struct {
	engine *Engine
	ctx    context.Context

	mu        sync.Mutex
	listener  ports.RecognitionListener
	current   *session
	sessions  int
	destroyed bool
}

func (r *Recognizer) SetListener(listener ports.RecognitionListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = listener
}

// StartListening begins a session and returns at once; progress arrives
// through the listener. A session that is still running is aborted first
// and reports nothing further.
func (r *Recognizer) StartListening(cfg domain.RecognitionConfig) error {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return ErrDestroyed
	}
	if r.listener == nil {
		r.mu.Unlock()
		return ErrNoListener
	}
	previous := r.current
	r.current = nil
	listener := r.listener
	r.sessions++
	id := r.sessions
	r.mu.Unlock()

	if previous != nil {
		previous.abort()
	}

	s := newSession(r.ctx, r.engine, listener, r.engine.logger.With().Int("session", id).Logger())

	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		s.abort()
		return ErrDestroyed
	}
	r.current = s
	r.mu.Unlock()

	go s.run(cfg)
	return nil
}

// StopListening ends capture and lets the provider flush its last results.
func (r *Recognizer) StopListening() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return ErrDestroyed
	}
	if r.current != nil {
		r.current.stop()
	}
	return nil
}

// Destroy aborts the running session and waits for it to release its
// resources. Later calls are no-ops.
func (r *Recognizer) Destroy() error {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return nil
	}
	r.destroyed = true
	current := r.current
	r.current = nil
	r.mu.Unlock()

	if current != nil {
		current.abort()
	}
	return nil
}
