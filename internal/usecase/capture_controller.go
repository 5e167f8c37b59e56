package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

// CaptureController owns the recognizer and the session state. All methods
// run on the screen's event loop.
type CaptureController struct {
	engine     ports.RecognitionEngine
	recognizer ports.Recognizer
	gate       *PermissionGate
	status     *StatusPresenter
	sink       ports.ScreenSink
	request    domain.RecognitionConfig
	post       func(func()) bool
	logger     zerolog.Logger

	state       domain.SessionState
	errorCode   domain.ErrorCode
	unavailable bool
}

func newCaptureController(
	engine ports.RecognitionEngine,
	gate *PermissionGate,
	status *StatusPresenter,
	sink ports.ScreenSink,
	request domain.RecognitionConfig,
	post func(func()) bool,
	logger zerolog.Logger,
) *CaptureController {
	return &CaptureController{
		engine:  engine,
		gate:    gate,
		status:  status,
		sink:    sink,
		request: request,
		post:    post,
		logger:  logger,
		state:   domain.SessionStateIdle,
	}
}

// Init creates the recognizer. When the engine is unavailable the controller
// stays unusable for its whole life and never calls the engine again.
func (c *CaptureController) Init(ctx context.Context, listener ports.RecognitionListener) error {
	if c.state == domain.SessionStateDestroyed {
		return ErrDestroyed
	}
	if c.recognizer != nil || c.unavailable {
		return nil
	}

	if c.engine == nil || !c.engine.Available() {
		c.markUnavailable()
		return ErrUnavailable
	}

	recognizer, err := c.engine.Create(ctx)
	if err != nil {
		c.markUnavailable()
		return fmt.Errorf("create recognizer: %w", err)
	}
	recognizer.SetListener(listener)
	c.recognizer = recognizer
	c.logger.Info().Msg("recognizer ready")
	return nil
}

// Start runs the permission gate and begins a session once granted.
func (c *CaptureController) Start() error {
	if c.state == domain.SessionStateDestroyed {
		return ErrDestroyed
	}
	if c.unavailable || c.recognizer == nil {
		c.status.Set(domain.StatusUnavailable)
		return ErrUnavailable
	}
	if c.state.Active() {
		return ErrSessionActive
	}
	if c.state == domain.SessionStateAwaitingPermission {
		return ErrPermissionPending
	}

	switch c.gate.CheckAndRequest(c.onPermissionResult) {
	case domain.PermissionGranted:
		c.beginCapture()
		return nil
	case domain.PermissionPending:
		c.logger.Debug().Msg("waiting for microphone permission")
		return c.transition(triggerAwaitPermission)
	default:
		c.denyPermission()
		return nil
	}
}

// Stop asks the engine to stop and reports Stopped right away.
func (c *CaptureController) Stop() error {
	if c.state == domain.SessionStateDestroyed {
		return ErrDestroyed
	}
	if c.recognizer != nil {
		if err := guard(c.recognizer.StopListening); err != nil {
			c.logger.Warn().Err(err).Msg("stop listening failed")
		}
	}

	c.status.ClearPartial()
	c.status.Set(domain.StatusStopped)
	return c.transition(triggerStop)
}

// Destroy releases the recognizer. It may be called once.
func (c *CaptureController) Destroy() error {
	if c.state == domain.SessionStateDestroyed {
		return ErrDestroyed
	}

	var err error
	if c.recognizer != nil {
		err = guard(c.recognizer.Destroy)
		c.recognizer = nil
	}
	_ = c.transition(triggerDestroy)
	c.logger.Info().Msg("recognizer released")
	if err != nil {
		return fmt.Errorf("destroy recognizer: %w", err)
	}
	return nil
}

func (c *CaptureController) State() (domain.SessionState, domain.ErrorCode) {
	return c.state, c.errorCode
}

func (c *CaptureController) Destroyed() bool {
	return c.state == domain.SessionStateDestroyed
}

func (c *CaptureController) Unavailable() bool {
	return c.unavailable
}

func (c *CaptureController) endOfSpeech() {
	_ = c.transition(triggerEndOfSpeech)
}

func (c *CaptureController) finished() {
	_ = c.transition(triggerFinal)
}

func (c *CaptureController) failed(code domain.ErrorCode) {
	if err := c.transition(triggerError); err != nil {
		return
	}
	if c.state == domain.SessionStateError {
		c.errorCode = code
	}
}

func (c *CaptureController) beginCapture() {
	c.status.ClearPartial()
	c.status.Set(domain.StatusListening)

	request := c.request
	if err := guard(func() error { return c.recognizer.StartListening(request) }); err != nil {
		c.logger.Warn().Err(err).Msg("start listening failed")
		if c.transition(triggerStartFailed) == nil {
			c.errorCode = domain.ErrorCodeClient
		}
		c.status.Set(domain.StatusStartFailed)
		c.sink.Notice(domain.StartFailedNotice(err.Error()))
		return
	}

	_ = c.transition(triggerStart)
	c.logger.Info().Str("locale", request.Locale).Msg("listening")
}

func (c *CaptureController) onPermissionResult(result domain.PermissionResult) {
	if !c.post(func() { c.resolvePermission(result) }) {
		c.logger.Debug().Str("result", string(result)).Msg("permission answer dropped after teardown")
	}
}

func (c *CaptureController) resolvePermission(result domain.PermissionResult) {
	if c.state != domain.SessionStateAwaitingPermission {
		c.logger.Debug().Str("result", string(result)).Str("state", string(c.state)).Msg("stale permission answer ignored")
		return
	}
	if result == domain.PermissionGranted {
		c.beginCapture()
		return
	}
	c.denyPermission()
}

func (c *CaptureController) denyPermission() {
	_ = c.transition(triggerPermissionDenied)
	c.status.Set(domain.StatusPermissionDenied)
	c.sink.Notice(domain.NoticePermissionDenied)
	c.logger.Info().Msg("microphone permission denied")
}

func (c *CaptureController) markUnavailable() {
	c.unavailable = true
	c.status.Set(domain.StatusUnavailable)
	c.sink.Notice(domain.NoticeUnavailable)
	c.logger.Warn().Msg("speech recognition unavailable")
}

func (c *CaptureController) transition(t trigger) error {
	next, err := nextState(c.state, t)
	if err != nil {
		c.logger.Debug().Err(err).Str("trigger", string(t)).Msg("transition rejected")
		return err
	}

	if next != domain.SessionStateError {
		c.errorCode = ""
	}
	if next == c.state {
		return nil
	}
	c.logger.Debug().Str("from", string(c.state)).Str("to", string(next)).Str("trigger", string(t)).Msg("session state")
	c.state = next
	c.sink.SessionStateChanged(next)
	return nil
}

// guard turns a panicking engine call into an error.
func guard(call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return call()
}
