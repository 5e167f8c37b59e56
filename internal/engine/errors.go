package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"livescribe/internal/audio"
	"livescribe/internal/domain"
)

var (
	ErrDestroyed  = errors.New("recognizer destroyed")
	ErrNoListener = errors.New("recognizer has no listener")

	errUnavailable = errors.New("engine unavailable")
)

// Error is a transport failure that already knows its error code.
type Error struct {
	Code domain.ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errorf(code domain.ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// Classify maps a transport or capture failure onto an engine error code.
func Classify(err error) domain.ErrorCode {
	if err == nil {
		return ""
	}

	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	if errors.Is(err, audio.ErrPermissionDenied) {
		return domain.ErrorCodeInsufficientPermissions
	}
	if errors.Is(err, audio.ErrCaptureStart) {
		return domain.ErrorCodeAudio
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return domain.ErrorCodeNetworkTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.ErrorCodeNetworkTimeout
		}
		return domain.ErrorCodeNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.ErrorCodeNetwork
	}
	return domain.ErrorCodeServer
}

// HTTPStatusCode maps the status of a failed handshake onto an error code.
func HTTPStatusCode(status int) domain.ErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrorCodeClient
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return domain.ErrorCodeNetworkTimeout
	case status == http.StatusTooManyRequests:
		return domain.ErrorCodeRecognizerBusy
	case status >= 500:
		return domain.ErrorCodeServer
	case status >= 400:
		return domain.ErrorCodeClient
	default:
		return domain.ErrorCodeNetwork
	}
}

// captureCode classifies a capture failure. Anything not recognised is an
// audio error.
func captureCode(err error) domain.ErrorCode {
	if errors.Is(err, audio.ErrPermissionDenied) || errors.Is(err, os.ErrPermission) {
		return domain.ErrorCodeInsufficientPermissions
	}
	return domain.ErrorCodeAudio
}
