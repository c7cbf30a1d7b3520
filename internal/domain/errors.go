// Package domain provides the canonical types and error taxonomy for the gateway.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of a resolution error.
type ErrorType string

const (
	// ErrorTypeValidation indicates a malformed or missing caller input.
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeConfiguration indicates the gateway itself is misconfigured
	// (for example a missing upstream credential).
	ErrorTypeConfiguration ErrorType = "configuration"

	// ErrorTypeHandleNotFound indicates the upstream does not know the handle.
	ErrorTypeHandleNotFound ErrorType = "handle_not_found"

	// ErrorTypeUpstreamAuth indicates the upstream rejected our credential.
	ErrorTypeUpstreamAuth ErrorType = "upstream_auth"

	// ErrorTypeUpstreamSchema indicates the upstream answered successfully but
	// with a payload we could not recognize.
	ErrorTypeUpstreamSchema ErrorType = "upstream_schema"

	// ErrorTypeUpstream indicates any other upstream-reported failure.
	ErrorTypeUpstream ErrorType = "upstream"

	// ErrorTypeTransport indicates the upstream could not be reached at all.
	ErrorTypeTransport ErrorType = "transport"
)

// APIError is the canonical error produced by the resolution pipeline and
// translated to an HTTP response by the frontdoor. Every error the caller can
// observe is one of these.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Message is the short, caller-facing error message
	Message string `json:"message"`

	// StatusCode is the suggested HTTP status code. For upstream and
	// upstream_auth errors it carries the upstream status through unchanged.
	StatusCode int `json:"-"`

	// Details carries bounded diagnostic context (typically the parsed
	// upstream error body). Omitted from responses when empty.
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	// Map error types to default status codes
	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeConfiguration:
		return http.StatusInternalServerError
	case ErrorTypeHandleNotFound:
		return http.StatusNotFound
	case ErrorTypeUpstreamAuth:
		return http.StatusUnauthorized
	case ErrorTypeUpstreamSchema, ErrorTypeUpstream:
		return http.StatusBadGateway
	case ErrorTypeTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new canonical error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithStatusCode sets a specific HTTP status code, overriding the default
// mapping for the error type.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithDetails attaches diagnostic context to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if len(details) == 0 {
		return e
	}
	e.Details = details
	return e
}

// Convenience constructors for common errors

// ErrValidation creates a validation error.
func ErrValidation(message string) *APIError {
	return NewAPIError(ErrorTypeValidation, message)
}

// ErrConfiguration creates a configuration error.
func ErrConfiguration(message string) *APIError {
	return NewAPIError(ErrorTypeConfiguration, message)
}

// ErrHandleNotFound creates the canonical not-found error for a handle.
func ErrHandleNotFound(handle string) *APIError {
	return NewAPIError(ErrorTypeHandleNotFound, fmt.Sprintf("User %q not found.", handle))
}

// ErrUpstreamAuth creates an upstream credential rejection error carrying the
// upstream status (401 or 403) through to the caller.
func ErrUpstreamAuth(message string, statusCode int) *APIError {
	return NewAPIError(ErrorTypeUpstreamAuth, message).WithStatusCode(statusCode)
}

// ErrUpstreamSchema creates an error for a 2xx upstream response whose body
// could not be used.
func ErrUpstreamSchema(message string) *APIError {
	return NewAPIError(ErrorTypeUpstreamSchema, message)
}

// ErrUpstream creates an upstream failure error carrying the upstream status
// through to the caller.
func ErrUpstream(message string, statusCode int) *APIError {
	return NewAPIError(ErrorTypeUpstream, message).WithStatusCode(statusCode)
}

// ErrTransport creates a transport-level failure error.
func ErrTransport(message string) *APIError {
	return NewAPIError(ErrorTypeTransport, message)
}
