package resilience

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is the sentinel matched by errors.Is for fail-fast
// rejections. The concrete error is always a *CircuitOpenError.
var ErrCircuitOpen = errors.New("circuit open")

// CircuitOpenError is returned without any network attempt while the breaker
// is open, so callers can short-circuit UI feedback immediately.
type CircuitOpenError struct {
	// Endpoint is the logical capability whose circuit is open.
	Endpoint string

	// RetryAt is the earliest time a half-open probe will be allowed.
	RetryAt time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s endpoint until %s", e.Endpoint, e.RetryAt.Format(time.RFC3339))
}

func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// retryable is implemented by errors that may succeed on another attempt
// (transient network failures, rate limiting).
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err advertises itself as worth retrying.
// Cancellation and deadline errors are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
