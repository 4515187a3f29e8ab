package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an AppError with the failure class it belongs to. The gallery
// distinguishes configuration problems (fix the environment) from storage
// problems (the remote table store misbehaved) so the UI can tell the
// operator which one they are looking at.
type Kind string

const (
	// KindConfiguration marks missing or invalid environment/configuration values.
	KindConfiguration Kind = "configuration"
	// KindStorage marks connectivity, authentication, throttling, or
	// serialization failures raised by the table store or blob store.
	KindStorage Kind = "storage"
	// KindValidation marks malformed requests from the host or the tab.
	KindValidation Kind = "validation"
	// KindNotFound marks lookups for records that do not exist.
	KindNotFound Kind = "not_found"
	// KindInternal marks everything else.
	KindInternal Kind = "internal"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Kind       Kind   `json:"kind"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrNotFound = &AppError{
		Kind:       KindNotFound,
		Code:       "NOT_FOUND",
		Message:    "Record not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Kind:       KindValidation,
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Kind:       KindInternal,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// NewConfiguration reports a missing required environment variable. The
// variable name is part of the message so the operator knows what to export.
func NewConfiguration(envVar string) *AppError {
	return &AppError{
		Kind:       KindConfiguration,
		Code:       "CONFIG_MISSING",
		Message:    fmt.Sprintf("required environment variable %s is not set", envVar),
		StatusCode: http.StatusInternalServerError,
	}
}

// NewConfigurationInvalid reports a present but unusable configuration value.
func NewConfigurationInvalid(envVar, reason string) *AppError {
	return &AppError{
		Kind:       KindConfiguration,
		Code:       "CONFIG_INVALID",
		Message:    fmt.Sprintf("environment variable %s is invalid: %s", envVar, reason),
		StatusCode: http.StatusInternalServerError,
	}
}

// NewStorage wraps a table-store or blob-store failure. The operation name
// keeps log lines and UI messages actionable without exposing wire details.
func NewStorage(operation string, err error) *AppError {
	return &AppError{
		Kind:       KindStorage,
		Code:       "STORAGE_ERROR",
		Message:    fmt.Sprintf("storage operation %s failed", operation),
		StatusCode: http.StatusBadGateway,
		Internal:   err,
	}
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}

// NewNotFound reports an unknown record identifier.
func NewNotFound(id string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Code:       ErrNotFound.Code,
		Message:    fmt.Sprintf("record %s not found", id),
		StatusCode: ErrNotFound.StatusCode,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
