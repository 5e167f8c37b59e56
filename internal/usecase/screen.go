package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

// Config controls the recognition request issued by the screen.
type Config struct {
	Locale     string
	Capability domain.Capability
}

// Screen is the single transcription screen. User intents and engine
// callbacks are serialized onto one event loop, so the components it owns
// never see concurrent access.
type Screen struct {
	loop   *eventLoop
	logger zerolog.Logger

	transcript *TranscriptStore
	status     *StatusPresenter
	controller *CaptureController
	handler    *RecognitionEventHandler
}

func NewScreen(
	engine ports.RecognitionEngine,
	permissions ports.PermissionProvider,
	sink ports.ScreenSink,
	cfg Config,
	logger zerolog.Logger,
) *Screen {
	if sink == nil {
		sink = noopSink{}
	}
	logger = logger.With().Str("component", "screen").Logger()

	loop := newEventLoop()
	transcript := &TranscriptStore{}
	status := newStatusPresenter(sink)
	controller := newCaptureController(
		engine,
		newPermissionGate(permissions, cfg.Capability),
		status,
		sink,
		domain.DictationConfig(cfg.Locale),
		loop.post,
		logger,
	)

	return &Screen{
		loop:       loop,
		logger:     logger,
		transcript: transcript,
		status:     status,
		controller: controller,
		handler:    newRecognitionEventHandler(transcript, status, controller, sink, logger),
	}
}

// Init checks engine availability and creates the recognizer.
func (s *Screen) Init(ctx context.Context) error {
	return s.run(func() error { return s.controller.Init(ctx, s) })
}

// Start handles the Start intent.
func (s *Screen) Start() error {
	return s.run(s.controller.Start)
}

// Stop handles the Stop intent.
func (s *Screen) Stop() error {
	return s.run(s.controller.Stop)
}

// Destroy releases the recognizer and shuts the loop down.
func (s *Screen) Destroy() error {
	err := s.run(s.controller.Destroy)
	s.loop.close()
	return err
}

// Status returns a snapshot of both surfaces and the session state.
func (s *Screen) Status() domain.Status {
	var status domain.Status
	if !s.loop.call(func() { status = s.snapshot() }) {
		return domain.Status{State: domain.SessionStateDestroyed}
	}
	return status
}

// OnRecognitionEvent queues an engine callback onto the loop.
func (s *Screen) OnRecognitionEvent(event domain.RecognitionEvent) {
	if !s.loop.post(func() { s.handler.Handle(event) }) {
		s.logger.Debug().Str("kind", string(event.Kind)).Msg("event dropped after teardown")
	}
}

func (s *Screen) run(fn func() error) error {
	var err error
	if !s.loop.call(func() { err = fn() }) {
		return ErrDestroyed
	}
	return err
}

func (s *Screen) snapshot() domain.Status {
	state, code := s.controller.State()
	return domain.Status{
		State:      state,
		ErrorCode:  code,
		Message:    s.status.Current(),
		Partial:    s.status.Partial(),
		Transcript: s.transcript.Text(),
		Active:     state.Active(),
	}
}

type noopSink struct{}

func (noopSink) StatusChanged(string)                    {}
func (noopSink) TranscriptChanged(string)                {}
func (noopSink) SessionStateChanged(domain.SessionState) {}
func (noopSink) Notice(string)                           {}
