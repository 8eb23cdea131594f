package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/0Reliance/Maeple-sub002/internal/constants"
)

// ExecutorConfig tunes the retry loop inside one logical call.
type ExecutorConfig struct {
	// MaxAttempts bounds attempts per logical call, including the first.
	MaxAttempts int

	// BaseDelay is the first backoff delay; subsequent delays double.
	BaseDelay time.Duration
}

func (c ExecutorConfig) withDefaults() ExecutorConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = constants.RetryMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = constants.RetryBaseDelay
	}
	return c
}

// Executor runs operations through a Breaker with retry and exponential
// backoff. Retries happen inside a single logical call; the breaker sees one
// outcome per logical call regardless of how many attempts it took.
type Executor struct {
	breaker *Breaker
	cfg     ExecutorConfig
	logger  *log.Logger

	// sleep is replaceable in tests. It must honor ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor wires an Executor to its breaker.
func NewExecutor(breaker *Breaker, cfg ExecutorConfig, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{
		breaker: breaker,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("endpoint", breaker.Endpoint()),
		sleep:   sleepCtx,
	}
}

// Breaker returns the breaker guarding this executor's endpoint.
func (e *Executor) Breaker() *Breaker { return e.breaker }

// Do runs op through the breaker with retries. Rules:
//   - An open circuit returns *CircuitOpenError before any attempt.
//   - Retryable errors back off exponentially with 0-25% jitter, up to
//     MaxAttempts total attempts.
//   - A cancelled or expired context aborts before the next attempt and is
//     returned as-is; cancellation is not a failure and never moves the
//     breaker's counters.
//   - The breaker records exactly one success or failure per logical call.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if err := e.breaker.Allow(); err != nil {
		e.logger.Debug("rejected: circuit open")
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := e.backoff(attempt)
			e.logger.Debug("retrying", "attempt", attempt, "backoff", delay)
			if err := e.sleep(ctx, delay); err != nil {
				// Cancelled between attempts: unwind without touching counters.
				return err
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			e.breaker.RecordSuccess()
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if !IsRetryable(err) {
			e.breaker.RecordFailure()
			return err
		}
		lastErr = err
	}

	e.breaker.RecordFailure()
	return fmt.Errorf("all %d attempts failed: %w", e.cfg.MaxAttempts, lastErr)
}

// Call runs op through ex and returns its typed result.
func Call[T any](ctx context.Context, ex *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := ex.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// backoff returns base * 2^(attempt-2) plus 0-25% jitter, so the wait before
// the second attempt is the base delay.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := e.cfg.BaseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
	}
	jitter := time.Duration(rand.Int63n(int64(delay/4) + 1))
	return delay + jitter
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
