// Package errors provides structured error types and response helpers for the API.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/launchdeck/launchdeck/internal/orchestrator"
	"github.com/launchdeck/launchdeck/internal/provider"
)

// Error codes for structured API responses.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeQuotaExceeded       = "QUOTA_EXCEEDED"
	CodeUnsupportedProvider = "UNSUPPORTED_PROVIDER"
	CodeProviderError       = "PROVIDER_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// APIError represents a structured API error response.
type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithRequestID returns a copy of the error with the request ID set.
func (e *APIError) WithRequestID(requestID string) *APIError {
	return &APIError{
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
		RequestID: requestID,
	}
}

// New creates an APIError with the given code and message.
func New(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *APIError {
	return New(CodeValidationError, message)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *APIError {
	return New(CodeNotFound, message)
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *APIError {
	return New(CodeUnauthorized, message)
}

// NewForbiddenError creates a forbidden error.
func NewForbiddenError(message string) *APIError {
	return New(CodeForbidden, message)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *APIError {
	return New(CodeInternalError, message)
}

// HTTPStatusCode returns the HTTP status for the error code.
func (e *APIError) HTTPStatusCode() int {
	switch e.Code {
	case CodeValidationError, CodeUnsupportedProvider:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeQuotaExceeded:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodeProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromDomain maps orchestrator and provider errors onto API errors. Unknown
// errors map to an opaque internal error so the response never leaks details.
func FromDomain(err error) *APIError {
	var providerErr *provider.ProviderError
	switch {
	case errors.Is(err, orchestrator.ErrNotFound):
		return New(CodeNotFound, err.Error())
	case errors.Is(err, orchestrator.ErrQuotaExceeded):
		return New(CodeQuotaExceeded, err.Error())
	case errors.Is(err, orchestrator.ErrEnvironmentNotAllowed):
		return New(CodeQuotaExceeded, err.Error())
	case errors.Is(err, orchestrator.ErrInvalidRollbackTarget):
		return New(CodeConflict, err.Error())
	case errors.Is(err, orchestrator.ErrNotCancellable):
		return New(CodeConflict, err.Error())
	case errors.Is(err, provider.ErrUnsupportedProvider):
		return New(CodeUnsupportedProvider, err.Error())
	case errors.Is(err, provider.ErrDeployNotFound):
		return New(CodeNotFound, err.Error())
	case errors.As(err, &providerErr):
		return New(CodeProviderError, providerErr.Error())
	default:
		return New(CodeInternalError, "an unexpected error occurred")
	}
}

// ErrorLogEntry correlates an error response with server logs.
type ErrorLogEntry struct {
	CorrelationID string `json:"correlation_id"`
	RequestID     string `json:"request_id"`
	ErrorCode     string `json:"error_code"`
	Message       string `json:"message"`
}

// NewErrorLogEntry creates a log entry with a fresh correlation ID.
func NewErrorLogEntry(requestID, code, message string) *ErrorLogEntry {
	return &ErrorLogEntry{
		CorrelationID: uuid.New().String(),
		RequestID:     requestID,
		ErrorCode:     code,
		Message:       message,
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an APIError as a JSON response.
func WriteError(w http.ResponseWriter, err *APIError) {
	WriteJSON(w, err.HTTPStatusCode(), err)
}
