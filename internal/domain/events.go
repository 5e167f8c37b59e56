package domain

// EventKind tags a RecognitionEvent.
type EventKind string

const (
	EventReadyForSpeech    EventKind = "ready_for_speech"
	EventBeginningOfSpeech EventKind = "beginning_of_speech"
	EventEndOfSpeech       EventKind = "end_of_speech"
	EventPartialResult     EventKind = "partial_result"
	EventFinalResult       EventKind = "final_result"
	EventError             EventKind = "error"
	EventVolumeChanged     EventKind = "volume_changed"
	EventBufferReceived    EventKind = "buffer_received"
	EventMisc              EventKind = "misc"
)

// RecognitionEvent is one callback from the recognition engine. Only the
// fields relevant to Kind are set.
type RecognitionEvent struct {
	Kind EventKind `json:"kind"`

	// Text is set for partial and final results.
	Text string `json:"text,omitempty"`
	// Code is set for errors.
	Code ErrorCode `json:"code,omitempty"`
	// LevelDB is the input level in dBFS for volume events.
	LevelDB float64 `json:"levelDb,omitempty"`
	// Buffer holds raw captured audio for buffer events.
	Buffer []byte `json:"-"`
	// Type identifies engine specific misc events.
	Type int `json:"type,omitempty"`
}

func ReadyForSpeech() RecognitionEvent    { return RecognitionEvent{Kind: EventReadyForSpeech} }
func BeginningOfSpeech() RecognitionEvent { return RecognitionEvent{Kind: EventBeginningOfSpeech} }
func EndOfSpeech() RecognitionEvent       { return RecognitionEvent{Kind: EventEndOfSpeech} }

func PartialResult(text string) RecognitionEvent {
	return RecognitionEvent{Kind: EventPartialResult, Text: text}
}

func FinalResult(text string) RecognitionEvent {
	return RecognitionEvent{Kind: EventFinalResult, Text: text}
}

func RecognitionError(code ErrorCode) RecognitionEvent {
	return RecognitionEvent{Kind: EventError, Code: code}
}

func VolumeChanged(levelDB float64) RecognitionEvent {
	return RecognitionEvent{Kind: EventVolumeChanged, LevelDB: levelDB}
}

func BufferReceived(buf []byte) RecognitionEvent {
	return RecognitionEvent{Kind: EventBufferReceived, Buffer: buf}
}

func MiscEvent(eventType int) RecognitionEvent {
	return RecognitionEvent{Kind: EventMisc, Type: eventType}
}

// Terminal reports whether the event ends a recognition session.
func (e RecognitionEvent) Terminal() bool {
	return e.Kind == EventFinalResult || e.Kind == EventError
}
