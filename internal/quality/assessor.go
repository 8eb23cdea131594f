// Package quality scores an AnalysisRecord for detection reliability.
// The assessment is advisory: it annotates, it never gates. CanProceed is
// always true by product decision, and the weights here are contract values,
// not tunables.
package quality

import (
	"math"

	"github.com/0Reliance/Maeple-sub002/internal/constants"
	"github.com/0Reliance/Maeple-sub002/internal/models"
)

// criticalFeatures are the units most indicative of genuine-vs-social
// expression (AU06 cheek raiser, AU12 lip corner puller) and of tension
// (AU04 brow lowerer, AU24 lip pressor).
var criticalFeatures = map[string]bool{
	"AU06": true,
	"AU12": true,
	"AU04": true,
	"AU24": true,
}

// AssessorConfig configures the assessor. The zero value uses the contract
// weights (0.4 confidence, 0.3 coverage, 0.3 critical presence).
type AssessorConfig struct {
	ConfidenceWeight float64
	CoverageWeight   float64
	CriticalWeight   float64
}

// DefaultAssessorConfig returns the contract weighting.
func DefaultAssessorConfig() AssessorConfig {
	return AssessorConfig{
		ConfidenceWeight: constants.QualityConfidenceWeight,
		CoverageWeight:   constants.QualityCoverageWeight,
		CriticalWeight:   constants.QualityCriticalWeight,
	}
}

// Assessor computes quality assessments.
type Assessor struct {
	config AssessorConfig
}

// NewAssessor creates an assessor, normalizing weights that do not sum to 1.
func NewAssessor(config AssessorConfig) *Assessor {
	total := config.ConfidenceWeight + config.CoverageWeight + config.CriticalWeight
	if total <= 0 {
		config = DefaultAssessorConfig()
	} else if total != 1.0 {
		config.ConfidenceWeight /= total
		config.CoverageWeight /= total
		config.CriticalWeight /= total
	}
	return &Assessor{config: config}
}

// Assess scores the record on the 0-100 scale:
//
//	score = 0.4*confidence + 0.3*min(features/8, 1) + 0.3*min(critical/2, 1)
//
// Levels: high >= 60, medium 30-59, low < 30. Suggestions are produced for
// medium and low only. CanProceed is always true.
func (a *Assessor) Assess(record *models.AnalysisRecord) models.QualityAssessment {
	if record == nil {
		empty := models.AnalysisRecord{}
		record = &empty
	}

	coverage := math.Min(float64(len(record.DetectedFeatures))/constants.QualityCoverageTarget, 1)
	critical := math.Min(float64(countCritical(record))/constants.QualityCriticalTarget, 1)

	raw := record.Confidence*a.config.ConfidenceWeight +
		coverage*a.config.CoverageWeight +
		critical*a.config.CriticalWeight

	score := int(math.Round(raw * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	level := levelFor(score)
	return models.QualityAssessment{
		Score:       score,
		Level:       level,
		Suggestions: suggestions(level, record),
		CanProceed:  true,
	}
}

func countCritical(record *models.AnalysisRecord) int {
	count := 0
	for _, f := range record.DetectedFeatures {
		if criticalFeatures[f.Code] {
			count++
		}
	}
	return count
}

func levelFor(score int) models.QualityLevel {
	switch {
	case score >= constants.QualityHighThreshold:
		return models.QualityHigh
	case score >= constants.QualityMediumThreshold:
		return models.QualityMedium
	default:
		return models.QualityLow
	}
}

// suggestions builds capture guidance for medium/low results. High quality
// yields no suggestions.
func suggestions(level models.QualityLevel, record *models.AnalysisRecord) []string {
	if level == models.QualityHigh {
		return []string{}
	}

	var out []string
	if record.Environment.LightingSeverity != models.SeverityLow {
		out = append(out, "Improve lighting: face a window or lamp so your face is evenly lit.")
	}
	if len(record.DetectedFeatures) < constants.QualityCoverageTarget/2 {
		out = append(out, "Position your full face in frame, roughly at arm's length from the camera.")
	}
	if countCritical(record) < constants.QualityCriticalTarget {
		out = append(out, "Remove obstructions such as glasses, hair, or a hand near your face.")
	}
	if len(out) == 0 {
		out = append(out, "Hold the camera steady and try capturing again.")
	}
	return out
}
