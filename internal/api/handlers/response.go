// Package handlers implements the HTTP handlers for the deployment API.
package handlers

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/launchdeck/launchdeck/internal/api/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	apierrors.WriteJSON(w, status, data)
}

// writeDomainError maps a domain error to its API shape and writes it.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierrors.FromDomain(err).WithRequestID(chimiddleware.GetReqID(r.Context()))
	apierrors.WriteError(w, apiErr)
}

// writeValidationError writes a 400 with the given message.
func writeValidationError(w http.ResponseWriter, r *http.Request, message string) {
	apiErr := apierrors.NewValidationError(message).WithRequestID(chimiddleware.GetReqID(r.Context()))
	apierrors.WriteError(w, apiErr)
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
