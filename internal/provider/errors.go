package provider

import (
	"errors"
	"fmt"

	"github.com/launchdeck/launchdeck/internal/models"
)

// ErrUnsupportedProvider is returned when a provider key is not registered.
// It fails fast before any I/O.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// ErrDeployNotFound is returned when a provider does not know the deployment ID.
var ErrDeployNotFound = errors.New("deployment not found on provider")

// ProviderError carries the upstream status and message of a failed provider
// call. The upstream message is never discarded.
type ProviderError struct {
	Provider   models.ProviderName
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

// Unwrap maps a 404 onto ErrDeployNotFound so callers can match it with
// errors.Is without inspecting status codes.
func (e *ProviderError) Unwrap() error {
	if e.StatusCode == 404 {
		return ErrDeployNotFound
	}
	return nil
}

// NewProviderError creates a ProviderError for the given provider.
func NewProviderError(provider models.ProviderName, statusCode int, message string) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
	}
}
