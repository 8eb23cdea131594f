package session

import "errors"

var (
	// ErrTimeout fires when the session deadline elapses with no result.
	// Distinct from the resilience layer's own retry timing.
	ErrTimeout = errors.New("analysis timed out")

	// ErrPermission means capture-device access was denied. It surfaces
	// immediately and carries no retry affordance.
	ErrPermission = errors.New("capture device access denied")

	// ErrInvalidTransition guards the state machine against out-of-order
	// calls (e.g. submitting before capture started).
	ErrInvalidTransition = errors.New("invalid session state transition")
)
