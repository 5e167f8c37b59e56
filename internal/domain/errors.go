package domain

// ErrorCode identifies a recognition failure reported by the engine.
type ErrorCode string

const (
	ErrorCodeAudio                   ErrorCode = "audio"
	ErrorCodeClient                  ErrorCode = "client"
	ErrorCodeInsufficientPermissions ErrorCode = "insufficient_permissions"
	ErrorCodeNetwork                 ErrorCode = "network"
	ErrorCodeNetworkTimeout          ErrorCode = "network_timeout"
	ErrorCodeNoMatch                 ErrorCode = "no_match"
	ErrorCodeRecognizerBusy          ErrorCode = "recognizer_busy"
	ErrorCodeServer                  ErrorCode = "server"
	ErrorCodeSpeechTimeout           ErrorCode = "speech_timeout"
	ErrorCodeUnknown                 ErrorCode = "unknown"
)

// Humanize returns the fixed user-facing text for the code.
func (c ErrorCode) Humanize() string {
	switch c {
	case ErrorCodeAudio:
		return "Audio failure"
	case ErrorCodeClient:
		return "Client error"
	case ErrorCodeInsufficientPermissions:
		return "Insufficient permissions"
	case ErrorCodeNetwork:
		return "Network error"
	case ErrorCodeNetworkTimeout:
		return "Network timeout expired"
	case ErrorCodeNoMatch:
		return "No match"
	case ErrorCodeRecognizerBusy:
		return "Recognizer busy"
	case ErrorCodeServer:
		return "Server error"
	case ErrorCodeSpeechTimeout:
		return "No speech detected"
	default:
		return "Unknown"
	}
}
