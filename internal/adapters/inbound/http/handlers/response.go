package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/architeacher/checkpoint/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/checkpoint/internal/domain/model"
	"go.opentelemetry.io/otel/trace"
)

const (
	contentTypeHeader = "Content-Type"
	applicationJSON   = "application/json"

	codeValidation    = "VALIDATION_ERROR"
	codeInvalidID     = "INVALID_ID"
	codeInvalidBody   = "INVALID_BODY"
	codeTooLarge      = "PAYLOAD_TOO_LARGE"
	codeNotFound      = "NOT_FOUND"
	codeInvalidState  = "INVALID_STATE"
	codeConflict      = "CONFLICT"
	codePhotoStore    = "PHOTO_STORE_ERROR"
	codeInternalError = "INTERNAL_ERROR"

	msgInvalidDeviceID = "invalid device ID"
	msgDeviceNotFound  = "device not found"
	msgPhotoStore      = "the photo could not be stored"
	msgInternalError   = "an unexpected error occurred"

	// traceparent: {version}-{trace-id}-{parent-id}-{flags}
	traceparentMinLength    = 55
	traceparentTraceIDStart = 3
	traceparentTraceIDEnd   = 35
)

var errUnsupportedContentType = errors.New("content type must be application/json or multipart/form-data")

type (
	responseMeta struct {
		RequestID  string `json:"requestId"`
		TraceID    string `json:"traceId,omitempty"`
		APIVersion string `json:"apiVersion"`
	}

	// EnvelopedResponse wraps response data with metadata and optional pagination.
	EnvelopedResponse struct {
		Data       any             `json:"data"`
		Meta       responseMeta    `json:"meta"`
		Pagination *paginationData `json:"pagination,omitempty"`
	}

	paginationData struct {
		Page        uint `json:"page"`
		Size        uint `json:"size"`
		TotalItems  uint `json:"totalItems"`
		TotalPages  uint `json:"totalPages"`
		HasNext     bool `json:"hasNext"`
		HasPrevious bool `json:"hasPrevious"`
	}

	fieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}

	ErrorResponse struct {
		Code      string       `json:"code"`
		Message   string       `json:"message"`
		Field     string       `json:"field,omitempty"`
		Errors    []fieldError `json:"errors,omitempty"`
		Timestamp time.Time    `json:"timestamp"`
	}
)

func newMeta(r *http.Request, apiVersion string) responseMeta {
	return responseMeta{
		RequestID:  middleware.GetRequestID(r.Context()),
		TraceID:    traceID(r),
		APIVersion: apiVersion,
	}
}

// traceID prefers the active span and falls back to the incoming traceparent header.
func traceID(r *http.Request) string {
	if spanCtx := trace.SpanContextFromContext(r.Context()); spanCtx.HasTraceID() {
		return spanCtx.TraceID().String()
	}

	traceparent := r.Header.Get("traceparent")
	if len(traceparent) < traceparentMinLength {
		return ""
	}

	return traceparent[traceparentTraceIDStart:traceparentTraceIDEnd]
}

func toPaginationData(p model.Pagination) *paginationData {
	return &paginationData{
		Page:        p.Page,
		Size:        p.Size,
		TotalItems:  p.TotalItems,
		TotalPages:  p.TotalPages,
		HasNext:     p.HasNext,
		HasPrevious: p.HasPrevious,
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set(contentTypeHeader, applicationJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErrorResponse(w http.ResponseWriter, status int, response ErrorResponse) {
	response.Timestamp = time.Now().UTC()
	writeJSONResponse(w, status, response)
}

// errorResponseFor maps a domain error to its status code and body.
func errorResponseFor(err error) (int, ErrorResponse) {
	var validation *model.ValidationErrors
	if errors.As(err, &validation) {
		details := make([]fieldError, 0, len(validation.Errors))
		for _, e := range validation.Errors {
			details = append(details, fieldError{Field: e.Field, Message: e.Message, Code: e.Code})
		}

		return http.StatusBadRequest, ErrorResponse{
			Code:    codeValidation,
			Message: validation.Error(),
			Field:   validation.Field(),
			Errors:  details,
		}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, ErrorResponse{Code: codeTooLarge, Message: "request body is too large"}
	}

	switch {
	case errors.Is(err, model.ErrInvalidDeviceID):
		return http.StatusBadRequest, ErrorResponse{Code: codeInvalidID, Message: msgInvalidDeviceID}
	case errors.Is(err, errUnsupportedContentType), errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, ErrorResponse{Code: codeInvalidBody, Message: err.Error()}
	case errors.Is(err, model.ErrDeviceNotFound):
		return http.StatusNotFound, ErrorResponse{Code: codeNotFound, Message: msgDeviceNotFound}
	case errors.Is(err, model.ErrInvalidState):
		return http.StatusBadRequest, ErrorResponse{Code: codeInvalidState, Message: invalidStateMessage(err)}
	case errors.Is(err, model.ErrDuplicateDevice):
		return http.StatusConflict, ErrorResponse{Code: codeConflict, Message: model.ErrDuplicateDevice.Error()}
	case errors.Is(err, model.ErrPhotoStore):
		return http.StatusInternalServerError, ErrorResponse{Code: codePhotoStore, Message: msgPhotoStore}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: codeInternalError, Message: msgInternalError}
	}
}

func invalidStateMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrAlreadyCheckedOut):
		return "device is already checked out"
	case errors.Is(err, model.ErrAlreadyCheckedIn):
		return "device is already checked in"
	default:
		return model.ErrInvalidState.Error()
	}
}
