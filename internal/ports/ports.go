package ports

import (
	"context"
	"io"

	"livescribe/internal/domain"
)

// RecognitionListener receives engine callbacks. Implementations must not block.
type RecognitionListener interface {
	OnRecognitionEvent(event domain.RecognitionEvent)
}

// RecognitionEngine is the platform speech service.
type RecognitionEngine interface {
	Available() bool
	Create(ctx context.Context) (Recognizer, error)
}

// Recognizer is a single engine instance. Events are delivered to the
// listener asynchronously; a destroyed recognizer must not be used again.
type Recognizer interface {
	SetListener(listener RecognitionListener)
	StartListening(cfg domain.RecognitionConfig) error
	StopListening() error
	Destroy() error
}

// PermissionProvider checks and requests user grants. RequestGranted returns
// immediately; the answer is delivered through result exactly once.
type PermissionProvider interface {
	CheckGranted(capability domain.Capability) bool
	RequestGranted(capability domain.Capability, result func(granted bool))
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(title string, message string) (bool, error)
}

// ScreenSink renders screen state on the UI.
type ScreenSink interface {
	StatusChanged(text string)
	TranscriptChanged(text string)
	SessionStateChanged(state domain.SessionState)
	Notice(text string)
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}
