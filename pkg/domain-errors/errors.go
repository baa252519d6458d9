// Package domainerrors defines the coded error taxonomy shared by services,
// stores and the HTTP layer. Handlers translate codes to HTTP statuses in one
// place instead of sprinkling status decisions across the codebase.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure independent of transport.
type Code string

const (
	// CodeBadRequest covers malformed bodies and missing required fields.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized covers missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden covers callers authenticated but not allowed to act.
	CodeForbidden Code = "forbidden"
	// CodeNotFound covers references to absent audits, findings or sections.
	CodeNotFound Code = "not_found"
	// CodeInternal covers store and downstream failures.
	CodeInternal Code = "internal_error"
)

// DomainError carries a Code plus a human-readable description.
type DomainError struct {
	Code        Code
	Description string
	cause       error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New creates a coded error with a description safe to surface to callers.
func New(code Code, description string) error {
	return &DomainError{Code: code, Description: description}
}

// Newf creates a coded error with a formatted description.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Description: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and description to an underlying error while keeping
// the cause reachable through errors.Unwrap.
func Wrap(err error, code Code, description string) error {
	return &DomainError{Code: code, Description: description, cause: err}
}

// Is reports whether err (or anything it wraps) carries the given code.
func Is(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// produced outside the taxonomy.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// DescriptionOf extracts the caller-safe description from err. Uncoded errors
// yield an empty description so internals never leak through the API.
func DescriptionOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Description
	}
	return ""
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
