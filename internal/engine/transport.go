package engine

import (
	"context"

	"livescribe/internal/domain"
)

// UpdateKind classifies a normalized provider message.
type UpdateKind string

const (
	UpdateSpeechStarted UpdateKind = "speech_started"
	UpdateTranscript    UpdateKind = "transcript"
	UpdateUtteranceEnd  UpdateKind = "utterance_end"
)

// Update is one provider message reduced to what the session script needs.
// A transcript with IsFinal set will not be revised; SpeechFinal also marks
// the end of the utterance.
type Update struct {
	Kind        UpdateKind
	Text        string
	IsFinal     bool
	SpeechFinal bool
}

// Transport is one streaming recognition connection. Send and CloseSend are
// only called from a single goroutine; Close may be called concurrently and
// must unblock Recv. Recv returns io.EOF once the provider has flushed all
// results after CloseSend.
type Transport interface {
	Send(pcm []byte) error
	CloseSend() error
	Recv() (Update, error)
	Close() error
}

// Provider opens transports against a concrete speech service.
type Provider interface {
	Name() string
	Available() bool
	Dial(ctx context.Context, cfg domain.RecognitionConfig) (Transport, error)
}
