// Package models defines the canonical data shapes consumed by the
// biofeedback pipeline. AnalysisRecord is the single normalized form every
// downstream component reads, regardless of which response dialect the
// inference service produced.
package models

import "time"

// Intensity is the A-E intensity rating of a detected feature.
type Intensity string

const (
	IntensityA Intensity = "A" // trace
	IntensityB Intensity = "B" // slight
	IntensityC Intensity = "C" // marked
	IntensityD Intensity = "D" // severe
	IntensityE Intensity = "E" // maximum
)

// IntensityFromNumeric maps a 1-5 numeric rating to the letter scale.
// Out-of-range values clamp to the nearest end.
func IntensityFromNumeric(n int) Intensity {
	switch {
	case n <= 1:
		return IntensityA
	case n == 2:
		return IntensityB
	case n == 3:
		return IntensityC
	case n == 4:
		return IntensityD
	default:
		return IntensityE
	}
}

// Numeric returns the 1-5 rating for an intensity letter.
// Unknown letters map to mid-scale (3).
func (i Intensity) Numeric() int {
	switch i {
	case IntensityA:
		return 1
	case IntensityB:
		return 2
	case IntensityC:
		return 3
	case IntensityD:
		return 4
	case IntensityE:
		return 5
	default:
		return 3
	}
}

// Feature is one codified facial-movement indicator (action unit) with its
// detected intensity and per-feature confidence.
type Feature struct {
	// Code is the taxonomy identifier, e.g. "AU12".
	Code string `json:"code" yaml:"code"`

	// DisplayName is the human-readable name, e.g. "Lip Corner Puller".
	DisplayName string `json:"display_name" yaml:"display_name"`

	// Intensity is the A-E rating.
	Intensity Intensity `json:"intensity" yaml:"intensity"`

	// IntensityNumeric is the 1-5 rating, kept in sync with Intensity.
	IntensityNumeric int `json:"intensity_numeric" yaml:"intensity_numeric"`

	// Confidence is the detector's confidence for this feature, 0-1.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// InterpretationFlags are derived signals over feature combinations.
type InterpretationFlags struct {
	// GenuineExpression is true when the pattern reads as involuntary
	// (e.g. orbicularis involvement alongside a smile).
	GenuineExpression bool `json:"genuine_expression" yaml:"genuine_expression"`

	// PosedExpression is true when the pattern reads as voluntary/social.
	PosedExpression bool `json:"posed_expression" yaml:"posed_expression"`

	// MaskingIndicators lists feature combinations suggesting suppression.
	MaskingIndicators []string `json:"masking_indicators" yaml:"masking_indicators"`

	// FatigueIndicators lists fatigue-cluster descriptions.
	FatigueIndicators []string `json:"fatigue_indicators" yaml:"fatigue_indicators"`

	// TensionIndicators lists tension-cluster descriptions.
	TensionIndicators []string `json:"tension_indicators" yaml:"tension_indicators"`
}

// ObservationCategory classifies an observation.
type ObservationCategory string

const (
	ObservationTension       ObservationCategory = "tension"
	ObservationFatigue       ObservationCategory = "fatigue"
	ObservationLighting      ObservationCategory = "lighting"
	ObservationEnvironmental ObservationCategory = "environmental"
)

// Severity grades an observation or lighting condition.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Observation is one qualitative finding with its supporting evidence.
type Observation struct {
	Category ObservationCategory `json:"category" yaml:"category"`
	Value    string              `json:"value" yaml:"value"`
	Evidence string              `json:"evidence" yaml:"evidence"`
	Severity Severity            `json:"severity" yaml:"severity"`
}

// Environment describes capture conditions relevant to detection quality.
type Environment struct {
	LightingDescription string   `json:"lighting_description" yaml:"lighting_description"`
	LightingSeverity    Severity `json:"lighting_severity" yaml:"lighting_severity"`
	EnvironmentalClues  []string `json:"environmental_clues" yaml:"environmental_clues"`
}

// LegacyScalars are derived scalar scores for consumers that predate the
// feature-level record.
type LegacyScalars struct {
	TensionScore float64 `json:"tension_score" yaml:"tension_score"`
	FatigueScore float64 `json:"fatigue_score" yaml:"fatigue_score"`
}

// AnalysisRecord is the canonical, fully-populated analysis result.
// Every field is always set; absent source data is filled with documented
// defaults so no downstream consumer deals with partial records.
type AnalysisRecord struct {
	// ID uniquely identifies this record.
	ID string `json:"id" yaml:"id"`

	// CreatedAt is when the record was produced.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Source identifies how the record was produced: "vision", "text",
	// "audio", or "offline".
	Source string `json:"source" yaml:"source"`

	// Confidence is the overall detection confidence, 0-1.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// DetectedFeatures preserves the detector's ordering.
	DetectedFeatures []Feature `json:"detected_features" yaml:"detected_features"`

	Interpretation InterpretationFlags `json:"interpretation" yaml:"interpretation"`

	Observations []Observation `json:"observations" yaml:"observations"`

	Environment Environment `json:"environment" yaml:"environment"`

	LegacyScalars LegacyScalars `json:"legacy_scalars" yaml:"legacy_scalars"`
}

// FindFeature returns the first detected feature with the given code,
// or nil if absent.
func (r *AnalysisRecord) FindFeature(code string) *Feature {
	for i := range r.DetectedFeatures {
		if r.DetectedFeatures[i].Code == code {
			return &r.DetectedFeatures[i]
		}
	}
	return nil
}

// ObservationsIn returns the observations matching any of the given
// categories, preserving order.
func (r *AnalysisRecord) ObservationsIn(categories ...ObservationCategory) []Observation {
	var out []Observation
	for _, o := range r.Observations {
		for _, c := range categories {
			if o.Category == c {
				out = append(out, o)
				break
			}
		}
	}
	return out
}
