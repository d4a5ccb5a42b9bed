package llm

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of a remote failure.
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypePermission     ErrorType = "permission"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeOverloaded     ErrorType = "overloaded"
	ErrorTypeServer         ErrorType = "server"
	ErrorTypeContextLength  ErrorType = "context_length"

	// ErrorTypeTransport covers failures before a response arrived.
	ErrorTypeTransport ErrorType = "transport"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeContextLengthExceeded ErrorCode = "context_length_exceeded"
	ErrorCodeRateLimitExceeded     ErrorCode = "rate_limit_exceeded"
	ErrorCodeInvalidAPIKey         ErrorCode = "invalid_api_key"
	ErrorCodeModelNotFound         ErrorCode = "model_not_found"
	ErrorCodeEmptyResponse         ErrorCode = "empty_response"
)

// RemoteError is any failure of a reasoning or image call. The assistant
// turns all of them into a retryable apology.
type RemoteError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Provider names the backend that failed.
	Provider string `json:"provider,omitempty"`

	// StatusCode is the upstream HTTP status, if any.
	StatusCode int `json:"-"`

	err error
}

// NewRemoteError creates a remote error.
func NewRemoteError(errType ErrorType, message string) *RemoteError {
	return &RemoteError{Type: errType, Message: message}
}

// Transport wraps a failure that happened before any response.
func Transport(provider string, err error) *RemoteError {
	return &RemoteError{
		Type:     ErrorTypeTransport,
		Message:  err.Error(),
		Provider: provider,
		err:      err,
	}
}

func (e *RemoteError) Error() string {
	prefix := string(e.Type)
	if e.Provider != "" {
		prefix = e.Provider + " " + prefix
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", prefix, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.err
}

// HTTPStatusCode returns the status the HTTP layer should answer with when
// it surfaces this error directly.
func (e *RemoteError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeOverloaded:
		return http.StatusServiceUnavailable
	case ErrorTypeTransport:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// WithCode adds an error code to the error.
func (e *RemoteError) WithCode(code ErrorCode) *RemoteError {
	e.Code = code
	return e
}

// WithStatusCode records the upstream HTTP status.
func (e *RemoteError) WithStatusCode(code int) *RemoteError {
	e.StatusCode = code
	return e
}

// WithProvider sets the failing backend.
func (e *RemoteError) WithProvider(name string) *RemoteError {
	e.Provider = name
	return e
}

// TypeForStatus maps an upstream HTTP status to an error type when the body
// carries nothing better.
func TypeForStatus(status int) ErrorType {
	switch {
	case status == http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case status == http.StatusForbidden:
		return ErrorTypePermission
	case status == http.StatusNotFound:
		return ErrorTypeNotFound
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status == http.StatusServiceUnavailable:
		return ErrorTypeOverloaded
	case status >= 400 && status < 500:
		return ErrorTypeInvalidRequest
	default:
		return ErrorTypeServer
	}
}
