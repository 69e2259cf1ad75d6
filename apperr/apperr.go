// Package apperr carries the gateway's error taxonomy. Handlers return these
// so the HTTP status and the {"code","message"} body stay in sync.
package apperr

import (
	"errors"
	"net/http"
)

// Error is a typed, status-aware application error. Message is safe to show
// to callers; Err holds the internal cause and never leaves the process.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message,omitempty"`
	Status  int            `json:"-"`
	Fields  map[string]any `json:"fields,omitempty"`
	Err     error          `json:"-"`
}

var (
	ErrBadRequest   = New("bad_request", http.StatusBadRequest, "")
	ErrValidation   = New("validation_error", http.StatusBadRequest, "")
	ErrUnauthorized = New("unauthorized", http.StatusUnauthorized, "")
	ErrForbidden    = New("forbidden", http.StatusForbidden, "")
	ErrNotFound     = New("not_found", http.StatusNotFound, "")
	ErrInternal     = New("internal_error", http.StatusInternalServerError, "")

	// Federation taxonomy. InvalidToken covers empty, malformed, expired and
	// provider-rejected bearer tokens; ProviderUnavailable covers transport
	// failures and provider 5xx; UserStore covers persistence failures during
	// lookup-or-create.
	ErrInvalidToken        = New("invalid_token", http.StatusUnauthorized, "please log in again")
	ErrProviderUnavailable = New("provider_unavailable", http.StatusServiceUnavailable, "identity provider unavailable, try again shortly")
	ErrUserStore           = New("user_store_error", http.StatusInternalServerError, "")
	ErrTenantRequired      = New("tenant_required", http.StatusBadRequest, "this endpoint requires a valid huddle subdomain")
)

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	}
	return "error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Wrap attaches a cause to one of the base errors above, optionally replacing
// the caller-visible message. The base is copied, never mutated.
func Wrap(err error, base *Error, message string) *Error {
	if err == nil {
		return nil
	}
	if base == nil {
		base = ErrInternal
	}
	wrapped := *base
	wrapped.Err = err
	if message != "" {
		wrapped.Message = message
	}
	return &wrapped
}

// WithFields returns a copy of base carrying per-field detail, e.g. the
// offending request fields on a validation failure.
func WithFields(base *Error, fields map[string]any) *Error {
	if base == nil {
		return nil
	}
	detailed := *base
	detailed.Fields = fields
	return &detailed
}

// As unwraps err to a typed *Error if one is anywhere in the chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// Status resolves the HTTP status for any error; unknown errors are 500.
func Status(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Code resolves the machine-readable code for any error.
func Code(err error) string {
	if e, ok := As(err); ok && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

// Message resolves the caller-visible message for any error.
func Message(err error) string {
	e, ok := As(err)
	if !ok {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Payload renders the JSON error body handlers return alongside Status.
func Payload(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	body := map[string]any{
		"code":    Code(err),
		"message": Message(err),
	}
	if e, ok := As(err); ok && len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	return body
}
