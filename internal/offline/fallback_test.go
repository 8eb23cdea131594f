package offline

import (
	"testing"
)

func TestConfidence_WithinRange(t *testing.T) {
	sizes := []int{0, 1, 512, 4096, 100_000, 5_000_000}
	for _, size := range sizes {
		c := Confidence(size)
		if c < 0.15 || c > 0.65 {
			t.Errorf("Confidence(%d) = %v, want within [0.15, 0.65]", size, c)
		}
	}
}

func TestConfidence_VariesWithInputSize(t *testing.T) {
	a := Confidence(1024)
	b := Confidence(2048)
	if a == b {
		t.Errorf("Confidence(1024) == Confidence(2048) == %v; offline output must not be constant", a)
	}
}

func TestConfidence_Deterministic(t *testing.T) {
	if Confidence(77) != Confidence(77) {
		t.Error("Confidence is not deterministic for equal inputs")
	}
}

func TestGenerate_FullyPopulated(t *testing.T) {
	rec := Generate(1024)

	if rec.Source != "offline" {
		t.Errorf("Source = %q, want offline", rec.Source)
	}
	if rec.Confidence < 0.15 || rec.Confidence > 0.65 {
		t.Errorf("Confidence = %v, out of offline range", rec.Confidence)
	}
	if rec.DetectedFeatures == nil {
		t.Error("DetectedFeatures is nil")
	}
	if len(rec.Observations) == 0 {
		t.Error("offline record must carry a labeled placeholder observation")
	}
	if rec.Observations[0].Value != offlineNote {
		t.Errorf("observation value = %q, want offline label", rec.Observations[0].Value)
	}
	if rec.Interpretation.MaskingIndicators == nil ||
		rec.Interpretation.FatigueIndicators == nil ||
		rec.Interpretation.TensionIndicators == nil {
		t.Error("nil indicator lists in offline record")
	}
}

func TestGenerate_Pure(t *testing.T) {
	a := Generate(4096)
	b := Generate(4096)
	if a.Confidence != b.Confidence || len(a.Observations) != len(b.Observations) {
		t.Error("Generate is not pure for equal inputs")
	}
}
