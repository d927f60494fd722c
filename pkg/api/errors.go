package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeTransport       ErrorType = "transport_error"
	ErrorTypeAborted         ErrorType = "aborted"
	ErrorTypeEmptyBody       ErrorType = "empty_body"
	ErrorTypeBackend         ErrorType = "backend_error"
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
	ErrorTypeUnavailable     ErrorType = "service_unavailable"
)

// Sentinel errors for errors.Is checks. Any APIError of the same type
// matches its sentinel.
var (
	ErrAborted   = &APIError{Type: ErrorTypeAborted, Message: "request aborted"}
	ErrEmptyBody = &APIError{Type: ErrorTypeEmptyBody, Message: "the response body is empty"}
)

// APIError represents a structured error with type, code, param, and message.
// StatusCode is the backend HTTP status when one was received.
type APIError struct {
	Type       ErrorType `json:"type"`
	Code       string    `json:"code,omitempty"`
	Param      string    `json:"param,omitempty"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an APIError of the same type. A target with a
// code also requires the code to match.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Type == e.Type
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewAbortedError creates an APIError for a cancelled request. The cause is
// normally the context error.
func NewAbortedError(cause error) *APIError {
	msg := "request aborted"
	if cause != nil {
		msg = "request aborted: " + cause.Error()
	}
	return &APIError{
		Type:    ErrorTypeAborted,
		Message: msg,
		Cause:   cause,
	}
}

// NewEmptyBodyError creates an APIError for a response that carried no body.
func NewEmptyBodyError(statusCode int) *APIError {
	return &APIError{
		Type:       ErrorTypeEmptyBody,
		Message:    "the response body is empty",
		StatusCode: statusCode,
	}
}

// NewTransportError creates an APIError for network-level failures.
func NewTransportError(cause error) *APIError {
	return &APIError{
		Type:    ErrorTypeTransport,
		Message: fmt.Sprintf("backend connection error: %s", cause.Error()),
		Cause:   cause,
	}
}

// NewBackendError creates an APIError for a failure reported by the backend.
func NewBackendError(statusCode int, message string) *APIError {
	return &APIError{
		Type:       ErrorTypeBackend,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeTooManyRequests,
		Message: message,
	}
}
