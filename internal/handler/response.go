package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"error": "not_configured", "message": "Google Sheets not configured by admin."}
//
// The invitation page only shows "message" to the guest; "error" is for
// scripts and logs.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/wedding-rsvp/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_configured")
	Message string `json:"message"` // Human-readable description
}

// saveFailedMessage is what guests see when the spreadsheet could not be
// written. Remote error details stay in the server log.
const saveFailedMessage = "Failed to save RSVP"

// writeJSON sends a JSON response with the given status code.
//
// Headers and status MUST be set before the body: once Encode writes,
// later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrNotConfigured      → 400 not_configured
//	ErrValidation         → 400 validation_error
//	ErrSheetProvisioning  → 500 save_failed
//	ErrSubmission         → 500 save_failed
//	ErrAuthExchange       → 502 auth_failed
//	anything else         → 500 internal_error
//
// The service layer never sees HTTP; this is the only place kinds become
// status codes.
func writeError(w http.ResponseWriter, err error) {
	status, errorType, message := classify(err)
	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}

func classify(err error) (status int, errorType, message string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// NEVER expose internal error details to the client.
		return http.StatusInternalServerError, "internal_error", "An internal error occurred"
	}

	switch {
	case errors.Is(err, apperror.ErrNotConfigured):
		return http.StatusBadRequest, "not_configured", appErr.Message
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", appErr.Message
	case errors.Is(err, apperror.ErrSheetProvisioning), errors.Is(err, apperror.ErrSubmission):
		return http.StatusInternalServerError, "save_failed", saveFailedMessage
	case errors.Is(err, apperror.ErrAuthExchange):
		return http.StatusBadGateway, "auth_failed", "Authentication failed"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", appErr.Message
	}
	return http.StatusInternalServerError, "internal_error", "An internal error occurred"
}
