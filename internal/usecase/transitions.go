package usecase

import (
	"errors"
	"fmt"

	"livescribe/internal/domain"
)

var (
	ErrDestroyed         = errors.New("screen has been destroyed")
	ErrUnavailable       = errors.New("speech recognition is unavailable")
	ErrSessionActive     = errors.New("recognition session already active")
	ErrPermissionPending = errors.New("microphone permission request pending")
	ErrInvalidTransition = errors.New("invalid session transition")
)

// trigger is anything that can move the session state.
type trigger string

const (
	triggerStart            trigger = "start"
	triggerAwaitPermission  trigger = "await_permission"
	triggerPermissionDenied trigger = "permission_denied"
	triggerStartFailed      trigger = "start_failed"
	triggerStop             trigger = "stop"
	triggerEndOfSpeech      trigger = "end_of_speech"
	triggerFinal            trigger = "final"
	triggerError            trigger = "error"
	triggerDestroy          trigger = "destroy"
)

// nextState is the capture state machine. Engine triggers arriving in a state
// that has no session leave the state unchanged.
func nextState(from domain.SessionState, t trigger) (domain.SessionState, error) {
	if from == domain.SessionStateDestroyed {
		return from, ErrDestroyed
	}

	switch t {
	case triggerDestroy:
		return domain.SessionStateDestroyed, nil

	case triggerStop:
		return domain.SessionStateStopped, nil

	case triggerStart:
		switch from {
		case domain.SessionStateListening, domain.SessionStateProcessing:
			return from, ErrSessionActive
		case domain.SessionStateIdle, domain.SessionStateAwaitingPermission,
			domain.SessionStateStopped, domain.SessionStateError:
			return domain.SessionStateListening, nil
		}

	case triggerAwaitPermission:
		switch from {
		case domain.SessionStateListening, domain.SessionStateProcessing:
			return from, ErrSessionActive
		case domain.SessionStateAwaitingPermission:
			return from, ErrPermissionPending
		case domain.SessionStateIdle, domain.SessionStateStopped, domain.SessionStateError:
			return domain.SessionStateAwaitingPermission, nil
		}

	case triggerPermissionDenied:
		if from == domain.SessionStateAwaitingPermission {
			return domain.SessionStateIdle, nil
		}
		return from, nil

	case triggerStartFailed:
		switch from {
		case domain.SessionStateListening, domain.SessionStateProcessing:
			return from, ErrSessionActive
		case domain.SessionStateIdle, domain.SessionStateAwaitingPermission,
			domain.SessionStateStopped, domain.SessionStateError:
			return domain.SessionStateError, nil
		}

	case triggerEndOfSpeech:
		if from.Active() {
			return domain.SessionStateProcessing, nil
		}
		return from, nil

	case triggerFinal:
		switch from {
		case domain.SessionStateListening, domain.SessionStateProcessing,
			domain.SessionStateStopped, domain.SessionStateError:
			return domain.SessionStateStopped, nil
		case domain.SessionStateIdle, domain.SessionStateAwaitingPermission:
			return from, nil
		}

	case triggerError:
		if from == domain.SessionStateAwaitingPermission {
			return from, nil
		}
		return domain.SessionStateError, nil
	}

	return from, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, t, from)
}
