package domain

// Status lines shown on the status surface.
const (
	StatusReadyToListen    = "Ready to listen"
	StatusCapturingSpeech  = "Capturing speech"
	StatusProcessing       = "Processing"
	StatusContinue         = "Tap Start to continue"
	StatusListening        = "Listening, speak close to the microphone"
	StatusStopped          = "Stopped"
	StatusStartFailed      = "Error starting"
	StatusPermissionDenied = "Permission denied"
	StatusUnavailable      = "Recognition unavailable"

	statusPartialPrefix = "Partial: "
	statusErrorPrefix   = "Error: "
)

// Notices are transient messages, shown as toasts by the UI.
const (
	NoticePermissionDenied = "Microphone permission denied."
	NoticeUnavailable      = "Speech recognition unavailable."
	noticeStartFailed      = "Error starting: "
)

func PartialStatus(text string) string {
	return statusPartialPrefix + text
}

func ErrorStatus(code ErrorCode) string {
	return statusErrorPrefix + code.Humanize()
}

func StartFailedNotice(detail string) string {
	return noticeStartFailed + detail
}
