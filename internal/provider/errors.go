package provider

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies a service failure per the provider contract.
type ErrorKind string

const (
	KindRateLimited      ErrorKind = "rate-limited"
	KindAuthInvalid      ErrorKind = "auth-invalid"
	KindTransientNetwork ErrorKind = "transient-network"
	KindMalformedRequest ErrorKind = "malformed-request"
)

// ServiceError is a classified failure from the inference service.
type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("inference service %s (http %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("inference service %s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed. Rate limiting and
// transient network failures are retryable; bad credentials and malformed
// requests are not.
func (e *ServiceError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTransientNetwork
}

// classifyStatus maps an HTTP status to an error kind.
func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuthInvalid
	case code >= 500:
		return KindTransientNetwork
	default:
		return KindMalformedRequest
	}
}

// classifyTransport wraps a transport-level error. Timeouts, resets, and
// connection failures are all transient from the caller's perspective.
func classifyTransport(err error) *ServiceError {
	return &ServiceError{
		Kind:    KindTransientNetwork,
		Message: err.Error(),
		Err:     err,
	}
}
