package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the failure classes the X client can report
type ErrorType string

const (
	ErrorTypeAuthMissing       ErrorType = "auth_missing"
	ErrorTypeRateLimited       ErrorType = "rate_limited"
	ErrorTypeRequestFailed     ErrorType = "request_failed"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	ErrorTypeNetwork           ErrorType = "network"
	ErrorTypeUnknown           ErrorType = "unknown"
)

// Error represents an API error with type information.
// Endpoint is the request path the error came from, Code the HTTP status (0 when
// the request never produced a response).
type Error struct {
	Type     ErrorType
	Endpoint string
	Message  string
	Code     int
}

func (e *Error) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s error on %s (code %d): %s", e.Type, e.Endpoint, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// AuthMissing reports that no session credentials are available.
func AuthMissing(message string) *Error {
	return &Error{Type: ErrorTypeAuthMissing, Message: message}
}

// RateLimited reports an HTTP 429 from endpoint.
func RateLimited(endpoint string) *Error {
	return &Error{
		Type:     ErrorTypeRateLimited,
		Endpoint: endpoint,
		Message:  "rate limit exceeded",
		Code:     http.StatusTooManyRequests,
	}
}

// RequestFailed reports any other non-success status from endpoint.
func RequestFailed(endpoint string, status int) *Error {
	return &Error{
		Type:     ErrorTypeRequestFailed,
		Endpoint: endpoint,
		Message:  http.StatusText(status),
		Code:     status,
	}
}

// MalformedResponse reports a body that could not be parsed.
func MalformedResponse(endpoint, message string) *Error {
	return &Error{Type: ErrorTypeMalformedResponse, Endpoint: endpoint, Message: message}
}

// Network reports a transport failure before any response was received.
func Network(endpoint string, err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Endpoint: endpoint, Message: err.Error()}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown if err is not an *Error
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsRateLimited reports whether err is (or wraps) a rate-limit error
func IsRateLimited(err error) bool {
	return TypeOf(err) == ErrorTypeRateLimited
}

// IsAuthMissing reports whether err is (or wraps) a missing-credentials error
func IsAuthMissing(err error) bool {
	return TypeOf(err) == ErrorTypeAuthMissing
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimited:
		return true
	case ErrorTypeAuthMissing, ErrorTypeRequestFailed, ErrorTypeMalformedResponse:
		return false
	default:
		return false
	}
}

// FromStatus maps an HTTP status code to a typed error. It returns nil for 2xx.
func FromStatus(endpoint string, status int) *Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return RateLimited(endpoint)
	default:
		return RequestFailed(endpoint, status)
	}
}
