package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	apperrors "speech-backend/internal/app/errors"
)

// ErrorKind represents different types of API errors
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindBadRequest         ErrorKind = "bad_request"
	KindNotFound           ErrorKind = "not_found"
	KindPayloadTooLarge    ErrorKind = "payload_too_large"
	KindTranscode          ErrorKind = "transcode"
	KindDecode             ErrorKind = "decode"
	KindInternal           ErrorKind = "internal"
	KindServiceUnavailable ErrorKind = "service_unavailable"
)

// APIError represents a structured API error response
type APIError struct {
	Kind      ErrorKind         `json:"kind"`
	Message   string            `json:"message"`
	Stage     string            `json:"stage,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error kind.
// Transcode and decode failures are server errors; the client sent bytes we
// could not process, but the contract reports them as 500.
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error with field details
func NewValidationError(message string, fields map[string]string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Message: message,
		Details: fields,
	}
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Kind:    KindBadRequest,
		Message: message,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewPayloadTooLargeError creates an error for uploads over the limit
func NewPayloadTooLargeError(limit int64) *APIError {
	return &APIError{
		Kind:    KindPayloadTooLarge,
		Message: fmt.Sprintf("upload exceeds %d bytes", limit),
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *APIError {
	return &APIError{
		Kind:    KindInternal,
		Message: message,
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Kind:    KindServiceUnavailable,
		Message: message,
	}
}

// FromPipeline converts a pipeline failure into an API error. The message
// keeps the pipeline's top-level wording, e.g. "transcoding failed"; tool
// diagnostics go into Details.
func FromPipeline(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	var perr *apperrors.Error
	if !stderrors.As(err, &perr) {
		return NewInternalError("internal error")
	}

	out := &APIError{
		Message: perr.Message(),
		Stage:   string(perr.Stage),
	}
	switch perr.Kind {
	case apperrors.KindTranscode:
		out.Kind = KindTranscode
	case apperrors.KindDecode:
		out.Kind = KindDecode
	case apperrors.KindInput:
		out.Kind = KindBadRequest
	default:
		out.Kind = KindInternal
		out.Message = "internal error"
	}
	if perr.Diagnostic != "" {
		out.Details = map[string]string{"diagnostic": perr.Diagnostic}
	}
	return out
}
