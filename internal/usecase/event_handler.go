package usecase

import (
	"strings"

	"github.com/rs/zerolog"

	"livescribe/internal/domain"
	"livescribe/internal/ports"
)

// RecognitionEventHandler applies engine events to the screen.
type RecognitionEventHandler struct {
	transcript *TranscriptStore
	status     *StatusPresenter
	controller *CaptureController
	sink       ports.ScreenSink
	logger     zerolog.Logger
}

func newRecognitionEventHandler(
	transcript *TranscriptStore,
	status *StatusPresenter,
	controller *CaptureController,
	sink ports.ScreenSink,
	logger zerolog.Logger,
) *RecognitionEventHandler {
	return &RecognitionEventHandler{
		transcript: transcript,
		status:     status,
		controller: controller,
		sink:       sink,
		logger:     logger,
	}
}

func (h *RecognitionEventHandler) Handle(event domain.RecognitionEvent) {
	if h.controller.Destroyed() {
		return
	}

	switch event.Kind {
	case domain.EventReadyForSpeech:
		h.status.Set(domain.StatusReadyToListen)

	case domain.EventBeginningOfSpeech:
		h.status.Set(domain.StatusCapturingSpeech)

	case domain.EventEndOfSpeech:
		h.status.Set(domain.StatusProcessing)
		h.controller.endOfSpeech()

	case domain.EventPartialResult:
		if strings.TrimSpace(event.Text) == "" {
			return
		}
		h.status.SetPartial(event.Text)

	case domain.EventFinalResult:
		if h.transcript.Append(event.Text) {
			h.sink.TranscriptChanged(h.transcript.Text())
		}
		h.status.ClearPartial()
		h.status.Set(domain.StatusContinue)
		h.controller.finished()

	case domain.EventError:
		code := event.Code
		if code == "" {
			code = domain.ErrorCodeUnknown
		}
		h.logger.Info().Str("code", string(code)).Msg("recognition error")
		h.status.ClearPartial()
		h.status.Set(domain.ErrorStatus(code))
		h.controller.failed(code)

	case domain.EventVolumeChanged, domain.EventBufferReceived, domain.EventMisc:

	default:
		h.logger.Warn().Str("kind", string(event.Kind)).Msg("unknown recognition event")
	}
}
