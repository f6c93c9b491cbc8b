package model

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrInvalidDeviceID  = errors.New("invalid device ID")
	ErrInvalidState     = errors.New("invalid device state")
	ErrDuplicateDevice  = errors.New("device already exists")
	ErrPhotoStore       = errors.New("photo store error")
	ErrUnsupportedPhoto = fmt.Errorf("%w: unsupported or missing file extension", ErrPhotoStore)

	ErrAlreadyCheckedOut = fmt.Errorf("%w: device is not present", ErrInvalidState)
	ErrAlreadyCheckedIn  = fmt.Errorf("%w: device is already present", ErrInvalidState)
)

const (
	CodeRequired         = "REQUIRED"
	CodeInvalidValue     = "INVALID_VALUE"
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeTooLong          = "TOO_LONG"
)

type ValidationError struct {
	Field   string
	Message string
	Code    string
}

type ValidationErrors struct {
	Errors []ValidationError
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}

	return v.Errors[0].Message
}

func (v *ValidationErrors) Add(field, message, code string) {
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: message,
		Code:    code,
	})
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Field names the first offending field, empty when there is none.
func (v *ValidationErrors) Field() string {
	if len(v.Errors) == 0 {
		return ""
	}

	return v.Errors[0].Field
}

// ErrOrNil returns v as an error only when it holds something.
func (v *ValidationErrors) ErrOrNil() error {
	if v == nil || !v.HasErrors() {
		return nil
	}

	return v
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]ValidationError, 0),
	}
}
