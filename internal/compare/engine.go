// Package compare surfaces discrepancies between a user's self-reported
// state and the objective AnalysisRecord, including masking detection:
// self-reported positive affect co-occurring with posed expression and
// tension or fatigue observations.
package compare

import (
	"fmt"
	"math"

	"github.com/0Reliance/Maeple-sub002/internal/constants"
	"github.com/0Reliance/Maeple-sub002/internal/models"
)

// EngineConfig tunes the discrepancy computation.
type EngineConfig struct {
	// GenuineBonus raises the objective positivity when the genuine flag is set.
	GenuineBonus float64

	// PosedPenalty lowers objective positivity for posed-without-genuine.
	PosedPenalty float64

	// StrainStep is the positivity penalty per severity-weighted tension or
	// fatigue observation.
	StrainStep float64

	// StrainCap bounds the total strain penalty.
	StrainCap float64
}

// DefaultEngineConfig returns the production tuning.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		GenuineBonus: 0.3,
		PosedPenalty: 0.2,
		StrainStep:   0.15,
		StrainCap:    0.5,
	}
}

// Engine compares self-reports against analysis records. Stateless and pure.
type Engine struct {
	config EngineConfig
}

// NewEngine creates a comparison engine.
func NewEngine(config EngineConfig) *Engine {
	if config == (EngineConfig{}) {
		config = DefaultEngineConfig()
	}
	return &Engine{config: config}
}

// Compare computes the discrepancy between the self-report and the record,
// classifies alignment, and runs masking detection. The result always
// carries at least one recommendation.
func (e *Engine) Compare(selfReport models.SelfReport, record *models.AnalysisRecord) models.ComparisonResult {
	if record == nil {
		empty := models.AnalysisRecord{}
		record = &empty
	}

	subjective := subjectivePositivity(selfReport)
	objective := e.objectivePositivity(record)
	discrepancy := math.Abs(subjective - objective)

	alignment := classifyAlignment(discrepancy, subjective, objective)
	masking := e.detectMasking(subjective, record)

	return models.ComparisonResult{
		Alignment:        alignment,
		DiscrepancyScore: round3(discrepancy),
		Masking:          masking,
		Recommendations:  recommendations(alignment, masking),
	}
}

// subjectivePositivity averages the reported dimension scores. An empty
// report reads as neutral.
func subjectivePositivity(selfReport models.SelfReport) float64 {
	if len(selfReport.DimensionScores) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, v := range selfReport.DimensionScores {
		sum += clamp01(v)
	}
	return sum / float64(len(selfReport.DimensionScores))
}

// objectivePositivity derives a 0-1 positivity signal from the record:
// the genuine-expression flag pulls up, posed-without-genuine pulls down,
// and each tension/fatigue observation subtracts a severity-weighted step.
func (e *Engine) objectivePositivity(record *models.AnalysisRecord) float64 {
	positivity := 0.5
	if record.Interpretation.GenuineExpression {
		positivity += e.config.GenuineBonus
	}
	if record.Interpretation.PosedExpression && !record.Interpretation.GenuineExpression {
		positivity -= e.config.PosedPenalty
	}

	strain := 0.0
	for _, obs := range record.ObservationsIn(models.ObservationTension, models.ObservationFatigue) {
		strain += e.config.StrainStep * severityWeight(obs.Severity)
	}
	if strain > e.config.StrainCap {
		strain = e.config.StrainCap
	}

	return clamp01(positivity - strain)
}

func severityWeight(s models.Severity) float64 {
	switch s {
	case models.SeverityHigh:
		return 1.5
	case models.SeverityModerate:
		return 1.0
	default:
		return 0.5
	}
}

func classifyAlignment(discrepancy, subjective, objective float64) models.Alignment {
	if discrepancy < constants.AlignmentHighThreshold {
		return models.AlignmentHigh
	}
	opposed := (subjective >= constants.SelfReportHighThreshold && objective <= constants.SelfReportLowThreshold) ||
		(subjective <= constants.SelfReportLowThreshold && objective >= constants.SelfReportHighThreshold)
	if discrepancy >= constants.AlignmentMismatchThreshold && opposed {
		return models.AlignmentMismatch
	}
	return models.AlignmentLow
}

// detectMasking fires when the self-report is strongly positive, the record
// shows a posed expression without the genuine flag, and at least one
// tension or fatigue observation corroborates. Confidence scales with the
// number of corroborating observations.
func (e *Engine) detectMasking(subjective float64, record *models.AnalysisRecord) models.MaskingSignal {
	signal := models.MaskingSignal{Indicators: []string{}}

	strain := record.ObservationsIn(models.ObservationTension, models.ObservationFatigue)
	posedOnly := record.Interpretation.PosedExpression && !record.Interpretation.GenuineExpression

	if subjective < constants.SelfReportHighThreshold || !posedOnly || len(strain) == 0 {
		return signal
	}

	signal.Detected = true
	signal.Confidence = math.Min(0.95, 0.5+0.15*float64(len(strain)))
	for _, obs := range strain {
		signal.Indicators = append(signal.Indicators, fmt.Sprintf("%s: %s", obs.Category, obs.Value))
	}
	return signal
}

// recommendations always returns at least one entry.
func recommendations(alignment models.Alignment, masking models.MaskingSignal) []string {
	var out []string
	if masking.Detected {
		out = append(out,
			"Your self-report is more positive than your expression suggests. Consider a short check-in with yourself before continuing.",
			"Noticing tension while feeling 'fine' is common — a brief pause or breathing exercise may help.")
	}
	switch alignment {
	case models.AlignmentHigh:
		out = append(out, "Your self-report and the objective analysis agree. Keep doing what works for you.")
	case models.AlignmentMismatch:
		out = append(out, "Your self-report and the objective analysis point in opposite directions. It may be worth revisiting how you are actually feeling.")
	default:
		out = append(out, "Your self-report and the objective analysis partially diverge. Re-capture in better conditions or note how you feel in more detail.")
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
