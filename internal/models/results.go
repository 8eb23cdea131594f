package models

// QualityLevel buckets a quality score.
type QualityLevel string

const (
	QualityHigh   QualityLevel = "high"
	QualityMedium QualityLevel = "medium"
	QualityLow    QualityLevel = "low"
)

// QualityAssessment grades how reliable an AnalysisRecord is for detection
// purposes. It is advisory only: CanProceed is always true, because quality
// must never gate access to results. That is documented product behavior.
type QualityAssessment struct {
	// Score is 0-100.
	Score int `json:"score" yaml:"score"`

	// Level is high (>=60), medium (30-59), or low (<30).
	Level QualityLevel `json:"level" yaml:"level"`

	// Suggestions guide the user toward a better capture. Empty for high
	// quality.
	Suggestions []string `json:"suggestions" yaml:"suggestions"`

	// CanProceed is always true. Quality is informational.
	CanProceed bool `json:"can_proceed" yaml:"can_proceed"`
}

// Alignment classifies how a self-report relates to the objective record.
type Alignment string

const (
	AlignmentHigh     Alignment = "high"
	AlignmentMismatch Alignment = "mismatch"
	AlignmentLow      Alignment = "low"
)

// MaskingSignal reports whether self-reported positive affect co-occurs with
// objective strain indicators.
type MaskingSignal struct {
	Detected bool `json:"detected" yaml:"detected"`

	// Confidence scales with how many observations corroborate, 0-1.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Indicators lists the specific observations that contributed.
	Indicators []string `json:"indicators" yaml:"indicators"`
}

// ComparisonResult is the output of comparing a self-report against an
// AnalysisRecord.
type ComparisonResult struct {
	Alignment Alignment `json:"alignment" yaml:"alignment"`

	// DiscrepancyScore is the weighted distance between self-reported and
	// objective state; higher means further apart.
	DiscrepancyScore float64 `json:"discrepancy_score" yaml:"discrepancy_score"`

	Masking MaskingSignal `json:"masking" yaml:"masking"`

	// Recommendations always contains at least one entry.
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// SelfReport carries the user's subjective dimension scores, each 0-1.
// Typical dimensions: "mood", "energy", "calm".
type SelfReport struct {
	DimensionScores map[string]float64 `json:"dimension_scores" yaml:"dimension_scores"`
}
