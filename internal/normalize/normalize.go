// Package normalize converts heterogeneous inference-service payloads into
// the canonical AnalysisRecord. The service is known to emit two key-naming
// dialects (verbose lowercase with separators, and compact mixed case),
// sometimes inside a single-key envelope. Normalization is deterministic,
// performs no I/O beyond debug traces, and never fails: unrecognized shapes
// degrade to documented defaults, worst case a fully-defaulted
// low-confidence record.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/0Reliance/Maeple-sub002/internal/constants"
	"github.com/0Reliance/Maeple-sub002/internal/models"
)

// Defaults used when the source omits a field. These are part of the record
// contract: downstream code never sees a partial record.
const (
	// DefaultConfidence marks a record whose source carried no usable
	// confidence at all.
	DefaultConfidence = 0.1

	// DefaultLightingDescription fills an absent lighting report.
	DefaultLightingDescription = "lighting conditions not reported"
)

// Normalizer maps raw payloads to canonical records.
type Normalizer struct {
	logger *log.Logger
}

// New creates a Normalizer. Field-level mapping traces go to the logger at
// debug level.
func New(logger *log.Logger) *Normalizer {
	if logger == nil {
		logger = log.Default()
	}
	return &Normalizer{logger: logger.WithPrefix("normalize")}
}

// Normalize converts a raw payload into a fully-populated AnalysisRecord.
// It never returns an error. ID, CreatedAt, and Source are left for the
// caller to stamp. Re-normalizing a record's own canonical JSON yields the
// same record.
func (n *Normalizer) Normalize(raw json.RawMessage) models.AnalysisRecord {
	var top map[string]interface{}
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		n.trace("$", "unparseable payload", "defaulted record")
		return n.defaultRecord()
	}

	src := n.unwrapEnvelope(top)

	record := models.AnalysisRecord{
		Confidence:       n.confidence(src),
		DetectedFeatures: n.features(src),
		Interpretation:   n.interpretation(src),
		Observations:     n.observations(src),
		Environment:      n.environment(src),
	}
	record.LegacyScalars = n.legacyScalars(src, &record)
	return record
}

// defaultRecord is the worst-case output: every field at its documented
// default, confidence unmistakably low.
func (n *Normalizer) defaultRecord() models.AnalysisRecord {
	return models.AnalysisRecord{
		Confidence:       DefaultConfidence,
		DetectedFeatures: []models.Feature{},
		Interpretation: models.InterpretationFlags{
			MaskingIndicators: []string{},
			FatigueIndicators: []string{},
			TensionIndicators: []string{},
		},
		Observations: []models.Observation{},
		Environment: models.Environment{
			LightingDescription: DefaultLightingDescription,
			LightingSeverity:    models.SeverityLow,
			EnvironmentalClues:  []string{},
		},
	}
}

// knownSections are the recognized top-level fields in either dialect.
// A single-key payload using one of these is a bare payload, not an envelope.
var knownSections = map[string]bool{
	"confidence": true, "overallConfidence": true,
	"detected_features": true, "actionUnits": true,
	"interpretation": true, "interpretationFlags": true,
	"observations": true, "clinicalObservations": true,
	"environment": true, "environmentalContext": true,
	"legacy_scalars": true, "legacyScalars": true,
}

// unwrapEnvelope removes one single-key wrapper layer (e.g. {"analysis": {...}}).
// Applied at most once; a map with multiple keys, or whose only key is a
// recognized section, is taken as the payload itself.
func (n *Normalizer) unwrapEnvelope(top map[string]interface{}) map[string]interface{} {
	if len(top) != 1 {
		return top
	}
	for key, val := range top {
		if knownSections[key] {
			return top
		}
		if inner, ok := val.(map[string]interface{}); ok {
			n.trace("$."+key, "envelope", "unwrapped")
			return inner
		}
	}
	return top
}

func (n *Normalizer) confidence(src map[string]interface{}) float64 {
	if v, path, ok := pickFloat(src, "confidence", "overallConfidence"); ok {
		n.trace(path, v, clamp01(v))
		return clamp01(v)
	}
	n.trace("$.confidence", "absent", DefaultConfidence)
	return DefaultConfidence
}

// features maps either known array field name, tolerating both element
// dialects per sub-field.
func (n *Normalizer) features(src map[string]interface{}) []models.Feature {
	items, path := pickList(src, "detected_features", "actionUnits")
	if items == nil {
		n.trace("$.detected_features", "absent", "empty list")
		return []models.Feature{}
	}

	out := make([]models.Feature, 0, len(items))
	for i, item := range items {
		el, ok := item.(map[string]interface{})
		if !ok {
			n.trace(fmt.Sprintf("%s[%d]", path, i), item, "skipped non-object")
			continue
		}
		out = append(out, n.feature(fmt.Sprintf("%s[%d]", path, i), el))
	}
	return out
}

func (n *Normalizer) feature(path string, el map[string]interface{}) models.Feature {
	f := models.Feature{
		Confidence: constants.DefaultFeatureConfidence,
	}

	if v, p, ok := pickString(el, "code", "auCode"); ok {
		f.Code = strings.TrimSpace(v)
		n.trace(path+"."+p, v, f.Code)
	}
	if v, p, ok := pickString(el, "display_name", "displayName"); ok {
		f.DisplayName = v
		n.trace(path+"."+p, v, f.DisplayName)
	} else if f.Code != "" {
		f.DisplayName = f.Code
	}

	// Intensity arrives as a letter, a numeric rating, or not at all.
	switch {
	case hasAny(el, "intensity"):
		v, _, _ := pickString(el, "intensity")
		f.Intensity = letterIntensity(v)
		f.IntensityNumeric = f.Intensity.Numeric()
		n.trace(path+".intensity", v, f.Intensity)
	case hasAny(el, "intensity_numeric", "intensityNumeric"):
		v, p, _ := pickFloat(el, "intensity_numeric", "intensityNumeric")
		f.IntensityNumeric = clampIntensity(int(v))
		f.Intensity = models.IntensityFromNumeric(f.IntensityNumeric)
		n.trace(path+"."+p, v, f.Intensity)
	default:
		f.IntensityNumeric = constants.DefaultIntensityNumeric
		f.Intensity = models.IntensityFromNumeric(f.IntensityNumeric)
		n.trace(path+".intensity", "absent", f.Intensity)
	}

	if v, p, ok := pickFloat(el, "confidence"); ok {
		f.Confidence = clamp01(v)
		n.trace(path+"."+p, v, f.Confidence)
	}
	return f
}

func (n *Normalizer) interpretation(src map[string]interface{}) models.InterpretationFlags {
	flags := models.InterpretationFlags{
		MaskingIndicators: []string{},
		FatigueIndicators: []string{},
		TensionIndicators: []string{},
	}

	block, _ := pickMap(src, "interpretation", "interpretationFlags")
	if block == nil {
		n.trace("$.interpretation", "absent", "defaulted flags")
		return flags
	}

	if v, p, ok := pickBool(block, "genuine_expression", "genuineExpression"); ok {
		flags.GenuineExpression = v
		n.trace("$.interpretation."+p, v, v)
	}
	if v, p, ok := pickBool(block, "posed_expression", "posedExpression"); ok {
		flags.PosedExpression = v
		n.trace("$.interpretation."+p, v, v)
	}

	flags.MaskingIndicators = n.indicatorList(block, "masking",
		[]string{"masking_indicators", "maskingIndicators"}, nil)
	flags.FatigueIndicators = n.indicatorList(block, "fatigue",
		[]string{"fatigue_indicators", "fatigueIndicators"},
		[]string{"fatigue_cluster_present", "fatigueClusterPresent"})
	flags.TensionIndicators = n.indicatorList(block, "tension",
		[]string{"tension_indicators", "tensionIndicators"},
		[]string{"tension_cluster_present", "tensionClusterPresent"})

	return flags
}

// indicatorList reads a rich string list, falling back to a single-boolean
// cluster signal which, when true, yields a one-element descriptive list.
func (n *Normalizer) indicatorList(block map[string]interface{}, name string, listKeys, clusterKeys []string) []string {
	if items, path := pickList(block, listKeys...); items != nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		n.trace("$.interpretation."+path, len(items), out)
		return out
	}
	if clusterKeys != nil {
		if v, p, ok := pickBool(block, clusterKeys...); ok && v {
			desc := name + " cluster present"
			n.trace("$.interpretation."+p, v, desc)
			return []string{desc}
		}
	}
	return []string{}
}

func (n *Normalizer) observations(src map[string]interface{}) []models.Observation {
	items, path := pickList(src, "observations", "clinicalObservations")
	if items == nil {
		n.trace("$.observations", "absent", "empty list")
		return []models.Observation{}
	}

	out := make([]models.Observation, 0, len(items))
	for i, item := range items {
		el, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		obs := models.Observation{Severity: models.SeverityLow}
		if v, _, ok := pickString(el, "category"); ok {
			obs.Category = normalizeCategory(v)
		} else {
			obs.Category = models.ObservationEnvironmental
		}
		if v, _, ok := pickString(el, "value"); ok {
			obs.Value = v
		}
		if v, _, ok := pickString(el, "evidence", "supportingEvidence"); ok {
			obs.Evidence = v
		}
		if v, _, ok := pickString(el, "severity"); ok {
			obs.Severity = normalizeSeverity(v)
		}
		n.trace(fmt.Sprintf("%s[%d]", path, i), el, obs.Category)
		out = append(out, obs)
	}
	return out
}

func (n *Normalizer) environment(src map[string]interface{}) models.Environment {
	env := models.Environment{
		LightingDescription: DefaultLightingDescription,
		LightingSeverity:    models.SeverityLow,
		EnvironmentalClues:  []string{},
	}

	block, _ := pickMap(src, "environment", "environmentalContext")
	if block == nil {
		n.trace("$.environment", "absent", "defaulted environment")
		return env
	}

	if v, p, ok := pickString(block, "lighting_description", "lightingDescription"); ok {
		env.LightingDescription = v
		n.trace("$.environment."+p, v, v)
	}
	if v, p, ok := pickString(block, "lighting_severity", "lightingSeverity"); ok {
		env.LightingSeverity = normalizeSeverity(v)
		n.trace("$.environment."+p, v, env.LightingSeverity)
	}
	if items, p := pickList(block, "environmental_clues", "environmentalClues"); items != nil {
		for _, item := range items {
			if s, ok := item.(string); ok {
				env.EnvironmentalClues = append(env.EnvironmentalClues, s)
			}
		}
		n.trace("$.environment."+p, len(items), env.EnvironmentalClues)
	}
	return env
}

// legacyScalars derives backward-compatible scalar scores. A source that
// already carries the canonical block keeps it (this is what makes
// re-normalization idempotent); otherwise tension derives from the lip
// pressor unit (AU24) and fatigue from the eyes-closed unit (AU43).
func (n *Normalizer) legacyScalars(src map[string]interface{}, record *models.AnalysisRecord) models.LegacyScalars {
	if block, p := pickMap(src, "legacy_scalars", "legacyScalars"); block != nil {
		var ls models.LegacyScalars
		if v, _, ok := pickFloat(block, "tension_score", "tensionScore"); ok {
			ls.TensionScore = clamp01(v)
		}
		if v, _, ok := pickFloat(block, "fatigue_score", "fatigueScore"); ok {
			ls.FatigueScore = clamp01(v)
		}
		n.trace("$."+p, block, ls)
		return ls
	}

	var ls models.LegacyScalars
	if f := record.FindFeature("AU24"); f != nil {
		ls.TensionScore = float64(f.IntensityNumeric) / 5.0
		n.trace("$.legacy_scalars.tension_score", f.Code, ls.TensionScore)
	}
	if f := record.FindFeature("AU43"); f != nil {
		ls.FatigueScore = float64(f.IntensityNumeric) / 5.0
		n.trace("$.legacy_scalars.fatigue_score", f.Code, ls.FatigueScore)
	}
	return ls
}

func (n *Normalizer) trace(path string, from, to interface{}) {
	n.logger.Debug("map", "path", path, "from", from, "to", to)
}

// ── value pickers ────────────────────────────────────────────────────────────

func hasAny(m map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func pickString(m map[string]interface{}, keys ...string) (string, string, bool) {
	for _, k := range keys {
		if v, ok := m[k].(string); ok {
			return v, k, true
		}
	}
	return "", "", false
}

func pickFloat(m map[string]interface{}, keys ...string) (float64, string, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, k, true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, k, true
			}
		}
	}
	return 0, "", false
}

func pickBool(m map[string]interface{}, keys ...string) (bool, string, bool) {
	for _, k := range keys {
		if v, ok := m[k].(bool); ok {
			return v, k, true
		}
	}
	return false, "", false
}

func pickList(m map[string]interface{}, keys ...string) ([]interface{}, string) {
	for _, k := range keys {
		if v, ok := m[k].([]interface{}); ok {
			return v, k
		}
	}
	return nil, ""
}

func pickMap(m map[string]interface{}, keys ...string) (map[string]interface{}, string) {
	for _, k := range keys {
		if v, ok := m[k].(map[string]interface{}); ok {
			return v, k
		}
	}
	return nil, ""
}

// ── scalar cleanup ───────────────────────────────────────────────────────────

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampIntensity(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

func letterIntensity(s string) models.Intensity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return models.IntensityA
	case "B":
		return models.IntensityB
	case "C":
		return models.IntensityC
	case "D":
		return models.IntensityD
	case "E":
		return models.IntensityE
	default:
		return models.IntensityFromNumeric(constants.DefaultIntensityNumeric)
	}
}

func normalizeSeverity(s string) models.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "severe":
		return models.SeverityHigh
	case "moderate", "medium":
		return models.SeverityModerate
	default:
		return models.SeverityLow
	}
}

func normalizeCategory(s string) models.ObservationCategory {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tension":
		return models.ObservationTension
	case "fatigue":
		return models.ObservationFatigue
	case "lighting":
		return models.ObservationLighting
	default:
		return models.ObservationEnvironmental
	}
}
