package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseScores(t *testing.T) {
	scores, err := parseScores("mood=0.8, energy=0.4,calm=1")
	if err != nil {
		t.Fatalf("parseScores() error = %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("got %d scores, want 3", len(scores))
	}
	if scores["mood"] != 0.8 || scores["energy"] != 0.4 || scores["calm"] != 1 {
		t.Errorf("scores = %v", scores)
	}
}

func TestParseScores_Empty(t *testing.T) {
	scores, err := parseScores("")
	if err != nil {
		t.Fatalf("parseScores() error = %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("scores = %v, want empty", scores)
	}
}

func TestParseScores_Malformed(t *testing.T) {
	for _, raw := range []string{"mood", "mood=high", "=0.5"} {
		if _, err := parseScores(raw); err == nil {
			t.Errorf("parseScores(%q) accepted malformed input", raw)
		}
	}
}

func TestReadRecordFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	content := `{"id": "rec-1", "source": "vision", "confidence": 0.8}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	record, err := readRecordFile(path)
	if err != nil {
		t.Fatalf("readRecordFile() error = %v", err)
	}
	if record.ID != "rec-1" || record.Confidence != 0.8 {
		t.Errorf("record = %+v", record)
	}
}

func TestReadRecordFile_Missing(t *testing.T) {
	if _, err := readRecordFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("readRecordFile() accepted a missing file")
	}
}
