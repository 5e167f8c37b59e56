package domain

// SessionState models the capture lifecycle of the screen.
type SessionState string

const (
	SessionStateIdle               SessionState = "idle"
	SessionStateAwaitingPermission SessionState = "awaiting_permission"
	SessionStateListening          SessionState = "listening"
	SessionStateProcessing         SessionState = "processing"
	SessionStateStopped            SessionState = "stopped"
	SessionStateError              SessionState = "error"
	SessionStateDestroyed          SessionState = "destroyed"
)

// Active reports whether a recognition session is in flight.
func (s SessionState) Active() bool {
	return s == SessionStateListening || s == SessionStateProcessing
}

// Capability names a resource the user has to grant before capture.
type Capability string

const CapabilityMicrophone Capability = "microphone"

// PermissionResult is the answer of a permission check.
type PermissionResult string

const (
	PermissionGranted PermissionResult = "granted"
	PermissionDenied  PermissionResult = "denied"
	PermissionPending PermissionResult = "pending"
)

// LanguageModel selects the recognizer's language model.
type LanguageModel string

const (
	LanguageModelFreeForm  LanguageModel = "free_form"
	LanguageModelWebSearch LanguageModel = "web_search"
)

// RecognitionConfig is the request handed to the engine on every start.
type RecognitionConfig struct {
	LanguageModel  LanguageModel `json:"languageModel"`
	PartialResults bool          `json:"partialResults"`
	MaxResults     int           `json:"maxResults"`
	Locale         string        `json:"locale"`
	PreferOffline  bool          `json:"preferOffline"`
}

// DictationConfig returns the request used by the screen: free-form dictation
// with partial results and a single alternative.
func DictationConfig(locale string) RecognitionConfig {
	return RecognitionConfig{
		LanguageModel:  LanguageModelFreeForm,
		PartialResults: true,
		MaxResults:     1,
		Locale:         locale,
		PreferOffline:  false,
	}
}

// Status summarizes what the screen currently shows.
type Status struct {
	State      SessionState `json:"state"`
	ErrorCode  ErrorCode    `json:"errorCode,omitempty"`
	Message    string       `json:"message"`
	Partial    string       `json:"partial,omitempty"`
	Transcript string       `json:"transcript"`
	Active     bool         `json:"active"`
}
