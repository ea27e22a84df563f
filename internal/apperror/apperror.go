// Package apperror defines the typed errors shared by the service and handler layers.
//
// Every AppError carries a kind sentinel (ErrNotConfigured, ErrSubmission, ...)
// and, optionally, the underlying cause. Both are reachable through errors.Is:
//
//	err := SubmissionFailed(context.DeadlineExceeded)
//	errors.Is(err, ErrSubmission)            // true
//	errors.Is(err, context.DeadlineExceeded) // true
//
// Handlers translate kinds to HTTP status codes; services never see HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrNotConfigured     = errors.New("not configured")
	ErrAuthExchange      = errors.New("auth exchange failed")
	ErrSheetProvisioning = errors.New("sheet provisioning failed")
	ErrSubmission        = errors.New("submission failed")
)

// Stage names the provisioning step that failed.
type Stage string

const (
	StageLookup       Stage = "lookup"
	StageCreate       Stage = "create"
	StageHeaderAppend Stage = "header-append"
)

type AppError struct {
	Err     error  // kind sentinel
	Cause   error  // underlying failure, may be nil
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Stage   Stage  // Optional: provisioning stage
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// NotConfigured reports that no Google account has been linked yet.
func NotConfigured() *AppError {
	return &AppError{
		Err:     ErrNotConfigured,
		Message: "Google Sheets not configured by admin.",
	}
}

// AuthExchangeFailed wraps a failed authorization-code exchange.
func AuthExchangeFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrAuthExchange,
		Cause:   cause,
		Message: "authorization code exchange failed",
	}
}

// SheetProvisioningFailed wraps a failure while resolving or creating the
// RSVP spreadsheet. stage tells which remote step broke.
func SheetProvisioningFailed(stage Stage, cause error) *AppError {
	return &AppError{
		Err:     ErrSheetProvisioning,
		Cause:   cause,
		Message: fmt.Sprintf("spreadsheet provisioning failed at %s", stage),
		Stage:   stage,
	}
}

// SubmissionFailed wraps a failed row append.
func SubmissionFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrSubmission,
		Cause:   cause,
		Message: "failed to save RSVP",
	}
}

// StageOf returns the provisioning stage recorded in err, if any.
func StageOf(err error) (Stage, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Stage != "" {
		return appErr.Stage, true
	}
	return "", false
}
