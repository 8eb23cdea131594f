// Package resilience provides the fault-tolerant calling layer used for every
// external inference request: a per-endpoint circuit breaker plus a retrying
// executor with exponential backoff. One Breaker exists per logical capability
// (vision, text, audio); failures on one never move another's counters.
package resilience

import (
	"sync"
	"time"

	"github.com/0Reliance/Maeple-sub002/internal/constants"
)

// Status is the breaker state.
type Status string

const (
	StatusClosed   Status = "CLOSED"
	StatusOpen     Status = "OPEN"
	StatusHalfOpen Status = "HALF_OPEN"
)

// StateChange is emitted to subscribers on every breaker transition.
type StateChange struct {
	Endpoint string
	From     Status
	To       Status
	At       time.Time
}

// BreakerConfig tunes a Breaker. Zero values fall back to the contract
// defaults in constants.
type BreakerConfig struct {
	// FailureThreshold trips closed -> open.
	FailureThreshold int

	// CoolDown is the open -> half-open waiting period.
	CoolDown time.Duration

	// SuccessThreshold closes a half-open breaker.
	SuccessThreshold int
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = constants.BreakerFailureThreshold
	}
	if c.CoolDown <= 0 {
		c.CoolDown = constants.BreakerCoolDown
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = constants.BreakerSuccessThreshold
	}
	return c
}

// Breaker is a circuit breaker for one logical endpoint. It is safe for
// concurrent use; counters move atomically under the mutex so concurrent
// sessions never under- or over-count. Breakers live for the process lifetime
// and are never persisted.
type Breaker struct {
	endpoint string
	cfg      BreakerConfig

	mu                   sync.Mutex
	status               Status
	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time

	subscribers []func(StateChange)

	// now is replaceable in tests.
	now func() time.Time
}

// NewBreaker creates a closed Breaker for the named endpoint.
func NewBreaker(endpoint string, cfg BreakerConfig) *Breaker {
	return &Breaker{
		endpoint: endpoint,
		cfg:      cfg.withDefaults(),
		status:   StatusClosed,
		now:      time.Now,
	}
}

// Endpoint returns the logical endpoint name this breaker guards.
func (b *Breaker) Endpoint() string { return b.endpoint }

// Subscribe registers a callback invoked on every state transition.
// Callbacks run outside the breaker lock and must not block for long.
func (b *Breaker) Subscribe(fn func(StateChange)) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, fn)
	b.mu.Unlock()
}

// Status returns the current state, applying the cool-down transition if it
// has elapsed.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked()
}

// Allow reports whether a call may proceed. When the breaker is open and the
// cool-down has not elapsed it returns a *CircuitOpenError carrying the
// earliest retry time; no network attempt should be made.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentLocked() {
	case StatusOpen:
		return &CircuitOpenError{
			Endpoint: b.endpoint,
			RetryAt:  b.openedAt.Add(b.cfg.CoolDown),
		}
	default:
		return nil
	}
}

// RecordSuccess notes a successful logical call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	status := b.currentLocked()

	b.consecutiveFailures = 0
	var change *StateChange
	switch status {
	case StatusHalfOpen:
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
			change = b.transitionLocked(StatusClosed)
			b.consecutiveSuccesses = 0
		}
	default:
		b.consecutiveSuccesses = 0
	}
	subs := b.snapshotSubscribersLocked()
	b.mu.Unlock()

	notify(subs, change)
}

// RecordFailure notes a failed logical call outcome. A failure while
// half-open reopens the breaker immediately and restarts the cool-down.
// Cancellations must not be recorded; the executor filters them out.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	status := b.currentLocked()

	b.consecutiveSuccesses = 0
	var change *StateChange
	switch status {
	case StatusHalfOpen:
		change = b.openLocked()
	case StatusClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			change = b.openLocked()
		}
	}
	subs := b.snapshotSubscribersLocked()
	b.mu.Unlock()

	notify(subs, change)
}

// currentLocked returns the effective status, promoting an elapsed open
// breaker to half-open. Caller holds b.mu.
func (b *Breaker) currentLocked() Status {
	if b.status == StatusOpen && b.now().Sub(b.openedAt) >= b.cfg.CoolDown {
		if change := b.transitionLocked(StatusHalfOpen); change != nil {
			b.consecutiveSuccesses = 0
			// Notify outside the lock is not possible from here without
			// restructuring every caller; cool-down promotion is the one
			// transition delivered asynchronously.
			subs := b.snapshotSubscribersLocked()
			go notify(subs, change)
		}
	}
	return b.status
}

// openLocked moves to open and stamps the cool-down start. Caller holds b.mu.
func (b *Breaker) openLocked() *StateChange {
	change := b.transitionLocked(StatusOpen)
	b.openedAt = b.now()
	b.consecutiveFailures = 0
	return change
}

// transitionLocked updates status and builds the event. Caller holds b.mu.
func (b *Breaker) transitionLocked(to Status) *StateChange {
	if b.status == to {
		return nil
	}
	change := &StateChange{
		Endpoint: b.endpoint,
		From:     b.status,
		To:       to,
		At:       b.now(),
	}
	b.status = to
	return change
}

func (b *Breaker) snapshotSubscribersLocked() []func(StateChange) {
	subs := make([]func(StateChange), len(b.subscribers))
	copy(subs, b.subscribers)
	return subs
}

func notify(subs []func(StateChange), change *StateChange) {
	if change == nil {
		return
	}
	for _, fn := range subs {
		fn(*change)
	}
}
