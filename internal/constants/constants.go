// Package constants holds the tuning values shared across the biofeedback
// pipeline. The quality weights and circuit thresholds are product contract,
// not free parameters; changing them changes documented behavior.
package constants

import "time"

// Circuit breaker thresholds (per logical endpoint).
const (
	// BreakerFailureThreshold is the number of consecutive failures that
	// trips the circuit from closed to open.
	BreakerFailureThreshold = 5

	// BreakerCoolDown is how long an open circuit waits before allowing
	// a half-open probe.
	BreakerCoolDown = 60 * time.Second

	// BreakerSuccessThreshold is the number of consecutive half-open
	// successes required to close the circuit again.
	BreakerSuccessThreshold = 2
)

// Retry policy inside a single logical call attempt.
const (
	// RetryMaxAttempts bounds attempts per logical call, including the first.
	RetryMaxAttempts = 5

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay = 500 * time.Millisecond
)

// Session timing.
const (
	// SessionDeadline is the hard cap on a capture session's analyzing
	// phase, independent of the wrapper's own retry timing.
	SessionDeadline = 45 * time.Second
)

// Quality assessor contract. Weights sum to 1.0 and are preserved exactly;
// see the assessor's documentation for the source of these values.
const (
	QualityConfidenceWeight = 0.4
	QualityCoverageWeight   = 0.3
	QualityCriticalWeight   = 0.3

	// QualityCoverageTarget is the feature count at which coverage saturates.
	QualityCoverageTarget = 8

	// QualityCriticalTarget is the critical-feature count at which the
	// critical component saturates.
	QualityCriticalTarget = 2

	// Quality level thresholds on the 0-100 scale.
	QualityHighThreshold   = 60
	QualityMediumThreshold = 30
)

// Offline fallback confidence bounds. Derived confidence always lands inside
// [OfflineConfidenceMin, OfflineConfidenceMax], distinctly below a live
// analysis so degraded results are recognizable.
const (
	OfflineConfidenceMin = 0.15
	OfflineConfidenceMax = 0.65
)

// Normalizer defaults for absent fields.
const (
	// DefaultFeatureConfidence fills a feature missing its confidence.
	DefaultFeatureConfidence = 0.5

	// DefaultIntensityNumeric is the mid-scale intensity (level C).
	DefaultIntensityNumeric = 3
)

// Comparison engine thresholds.
const (
	// AlignmentHighThreshold: discrepancy below this reads as aligned.
	AlignmentHighThreshold = 0.25

	// AlignmentMismatchThreshold: discrepancy at or above this, combined with
	// opposing signal directions, reads as a mismatch.
	AlignmentMismatchThreshold = 0.55

	// SelfReportHighThreshold marks a dimension score as strongly positive.
	SelfReportHighThreshold = 0.7

	// SelfReportLowThreshold marks a dimension score as strongly negative.
	SelfReportLowThreshold = 0.3
)
