package compare

import (
	"strings"
	"testing"

	"github.com/0Reliance/Maeple-sub002/internal/models"
)

func allHighReport() models.SelfReport {
	return models.SelfReport{DimensionScores: map[string]float64{
		"mood": 0.9, "energy": 0.85, "calm": 0.9,
	}}
}

func allLowReport() models.SelfReport {
	return models.SelfReport{DimensionScores: map[string]float64{
		"mood": 0.1, "energy": 0.15, "calm": 0.1,
	}}
}

func tensionObs(severity models.Severity) models.Observation {
	return models.Observation{
		Category: models.ObservationTension,
		Value:    "jaw tension",
		Evidence: "AU24 at high intensity",
		Severity: severity,
	}
}

func fatigueObs(severity models.Severity) models.Observation {
	return models.Observation{
		Category: models.ObservationFatigue,
		Value:    "heavy eyelids",
		Evidence: "AU43 sustained",
		Severity: severity,
	}
}

func TestCompare_MaskingDetected(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	record := &models.AnalysisRecord{
		Confidence: 0.8,
		Interpretation: models.InterpretationFlags{
			PosedExpression:   true,
			GenuineExpression: false,
		},
		Observations: []models.Observation{tensionObs(models.SeverityModerate)},
	}

	got := e.Compare(allHighReport(), record)
	if !got.Masking.Detected {
		t.Fatal("Masking.Detected = false, want true (high self-report + posed-without-genuine + tension)")
	}
	if got.Masking.Confidence <= 0 || got.Masking.Confidence > 1 {
		t.Errorf("Masking.Confidence = %v, out of range", got.Masking.Confidence)
	}
	if len(got.Masking.Indicators) != 1 || !strings.Contains(got.Masking.Indicators[0], "jaw tension") {
		t.Errorf("Masking.Indicators = %v, want the contributing observation", got.Masking.Indicators)
	}
}

func TestCompare_MaskingConfidenceScalesWithObservations(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	one := e.Compare(allHighReport(), &models.AnalysisRecord{
		Interpretation: models.InterpretationFlags{PosedExpression: true},
		Observations:   []models.Observation{tensionObs(models.SeverityLow)},
	})
	three := e.Compare(allHighReport(), &models.AnalysisRecord{
		Interpretation: models.InterpretationFlags{PosedExpression: true},
		Observations: []models.Observation{
			tensionObs(models.SeverityLow),
			fatigueObs(models.SeverityModerate),
			tensionObs(models.SeverityHigh),
		},
	})

	if three.Masking.Confidence <= one.Masking.Confidence {
		t.Errorf("confidence with 3 observations (%v) not greater than with 1 (%v)",
			three.Masking.Confidence, one.Masking.Confidence)
	}
	if len(three.Masking.Indicators) != 3 {
		t.Errorf("got %d indicators, want 3", len(three.Masking.Indicators))
	}
}

func TestCompare_NoMaskingWithGenuineFlag(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	record := &models.AnalysisRecord{
		Interpretation: models.InterpretationFlags{
			PosedExpression:   true,
			GenuineExpression: true, // genuine present: not masking
		},
		Observations: []models.Observation{tensionObs(models.SeverityHigh)},
	}
	got := e.Compare(allHighReport(), record)
	if got.Masking.Detected {
		t.Error("Masking.Detected = true despite genuine-expression flag")
	}
}

func TestCompare_NoMaskingWithoutStrainObservations(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	record := &models.AnalysisRecord{
		Interpretation: models.InterpretationFlags{PosedExpression: true},
		Observations: []models.Observation{
			{Category: models.ObservationLighting, Value: "dim", Severity: models.SeverityHigh},
		},
	}
	got := e.Compare(allHighReport(), record)
	if got.Masking.Detected {
		t.Error("Masking.Detected = true without any tension/fatigue observation")
	}
}

func TestCompare_LowReportStrongFatigueAligns(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	record := &models.AnalysisRecord{
		Confidence: 0.8,
		Observations: []models.Observation{
			fatigueObs(models.SeverityHigh),
			fatigueObs(models.SeverityHigh),
		},
	}
	got := e.Compare(allLowReport(), record)
	if got.Alignment != models.AlignmentHigh {
		t.Errorf("Alignment = %s, want high (low self-report matches strong fatigue)", got.Alignment)
	}
}

func TestCompare_StrongOppositionIsMismatch(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	record := &models.AnalysisRecord{
		Interpretation: models.InterpretationFlags{PosedExpression: true},
		Observations: []models.Observation{
			tensionObs(models.SeverityHigh),
			fatigueObs(models.SeverityHigh),
			tensionObs(models.SeverityHigh),
		},
	}
	got := e.Compare(allHighReport(), record)
	if got.Alignment != models.AlignmentMismatch {
		t.Errorf("Alignment = %s, want mismatch", got.Alignment)
	}
	if got.DiscrepancyScore <= 0.5 {
		t.Errorf("DiscrepancyScore = %v, want large", got.DiscrepancyScore)
	}
}

func TestCompare_RecommendationsNeverEmpty(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	cases := []struct {
		name   string
		report models.SelfReport
		record *models.AnalysisRecord
	}{
		{"nil record", allHighReport(), nil},
		{"empty report", models.SelfReport{}, &models.AnalysisRecord{}},
		{"aligned", allLowReport(), &models.AnalysisRecord{Observations: []models.Observation{fatigueObs(models.SeverityHigh), fatigueObs(models.SeverityHigh)}}},
		{"masking", allHighReport(), &models.AnalysisRecord{
			Interpretation: models.InterpretationFlags{PosedExpression: true},
			Observations:   []models.Observation{tensionObs(models.SeverityModerate)},
		}},
	}
	for _, tt := range cases {
		got := e.Compare(tt.report, tt.record)
		if len(got.Recommendations) == 0 {
			t.Errorf("%s: Recommendations is empty, must contain at least one entry", tt.name)
		}
	}
}

func TestCompare_EmptyReportIsNeutral(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	got := e.Compare(models.SelfReport{}, &models.AnalysisRecord{})
	if got.DiscrepancyScore != 0 {
		t.Errorf("DiscrepancyScore = %v, want 0 (neutral vs neutral)", got.DiscrepancyScore)
	}
	if got.Alignment != models.AlignmentHigh {
		t.Errorf("Alignment = %s, want high", got.Alignment)
	}
}
