package model

import (
	"errors"
	"time"
)

type (
	// RequestEvent is emitted once per served request.
	RequestEvent struct {
		Method     string
		Path       string
		StatusCode int
		Duration   time.Duration
		RequestID  string
	}

	// ErrorEvent describes a failed request. Kind is the error taxonomy name, e.g. NotFoundError.
	ErrorEvent struct {
		Kind    string
		Message string
		Context map[string]string
	}

	InfoEvent struct {
		Message string
		Data    map[string]any
	}
)

// ErrorKind names the taxonomy entry err belongs to.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.As(err, new(*ValidationErrors)), errors.Is(err, ErrInvalidDeviceID):
		return "ValidationError"
	case errors.Is(err, ErrDeviceNotFound):
		return "NotFoundError"
	case errors.Is(err, ErrInvalidState):
		return "InvalidStateError"
	case errors.Is(err, ErrDuplicateDevice):
		return "ConflictError"
	case errors.Is(err, ErrPhotoStore):
		return "PhotoStoreError"
	default:
		return "Error"
	}
}
