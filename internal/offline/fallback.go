// Package offline produces a degraded-but-complete AnalysisRecord when the
// inference service is unreachable or its circuit is open. Generation is
// pure: the same input size hint always yields the same record, and the
// confidence is deterministically spread across a sub-range distinctly below
// live analysis so repeated offline results are not visually identical.
package offline

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/0Reliance/Maeple-sub002/internal/constants"
	"github.com/0Reliance/Maeple-sub002/internal/models"
)

const offlineNote = "insufficient signal — offline mode"

// Generate builds the offline record for a capture of the given byte size.
// Confidence always lands in [0.15, 0.65].
func Generate(inputSizeHint int) models.AnalysisRecord {
	return models.AnalysisRecord{
		Source:           "offline",
		Confidence:       Confidence(inputSizeHint),
		DetectedFeatures: []models.Feature{},
		Interpretation: models.InterpretationFlags{
			MaskingIndicators: []string{},
			FatigueIndicators: []string{},
			TensionIndicators: []string{},
		},
		Observations: []models.Observation{
			{
				Category: models.ObservationEnvironmental,
				Value:    offlineNote,
				Evidence: "analysis service unreachable; no features were extracted",
				Severity: models.SeverityLow,
			},
		},
		Environment: models.Environment{
			LightingDescription: offlineNote,
			LightingSeverity:    models.SeverityLow,
			EnvironmentalClues:  []string{"offline placeholder"},
		},
		LegacyScalars: models.LegacyScalars{},
	}
}

// Confidence maps the input size hint into the offline confidence range via
// an FNV hash, so different captures produce visibly different values while
// staying deterministic.
func Confidence(inputSizeHint int) float64 {
	h := fnv.New32a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(inputSizeHint))
	h.Write(buf[:])

	span := constants.OfflineConfidenceMax - constants.OfflineConfidenceMin
	fraction := float64(h.Sum32()%1000) / 999.0
	return constants.OfflineConfidenceMin + fraction*span
}
