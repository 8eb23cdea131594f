package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/0Reliance/Maeple-sub002/internal/compare"
	"github.com/0Reliance/Maeple-sub002/internal/models"
	"github.com/0Reliance/Maeple-sub002/internal/normalize"
	"github.com/0Reliance/Maeple-sub002/internal/provider"
	"github.com/0Reliance/Maeple-sub002/internal/quality"
	"github.com/0Reliance/Maeple-sub002/internal/resilience"
	"github.com/0Reliance/Maeple-sub002/internal/session"
)

type stubInferrer struct{}

func (stubInferrer) Infer(ctx context.Context, req provider.Request) (json.RawMessage, error) {
	return json.RawMessage(`{"confidence": 0.8}`), nil
}

func testPipeline() *session.Pipeline {
	breaker := resilience.NewBreaker("vision", resilience.BreakerConfig{})
	exec := resilience.NewExecutor(breaker, resilience.ExecutorConfig{MaxAttempts: 1, BaseDelay: time.Millisecond}, log.Default())
	adapter := provider.NewVisionAdapter(stubInferrer{}, exec, log.Default())
	return session.NewPipeline(
		adapter,
		normalize.New(nil),
		quality.NewAssessor(quality.DefaultAssessorConfig()),
		compare.NewEngine(compare.DefaultEngineConfig()),
		nil,
		session.PipelineConfig{},
		log.Default(),
	)
}

func TestNewServer(t *testing.T) {
	cfg := &Config{
		Name:        "test-server",
		Version:     "v1.0.0",
		HistoryPath: filepath.Join(t.TempDir(), "history.db"),
	}

	server, err := NewServer(cfg, testPipeline())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if server.store == nil {
		t.Error("Server.store is nil")
	}
}

func TestClose(t *testing.T) {
	server, err := NewServer(&Config{Name: "test-server", Version: "v1.0.0"}, testPipeline())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if err := server.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// Multiple closes should be safe
	if err := server.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}

func TestHandleAnalyze_JournalsResult(t *testing.T) {
	server, err := NewServer(&Config{Name: "test-server", Version: "v1.0.0"}, testPipeline())
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	ctx := context.Background()
	// "aGVsbG8=" is base64 for "hello"
	_, out, err := server.handleAnalyze(ctx, nil, AnalyzeInput{ImageB64: "aGVsbG8="})
	if err != nil {
		t.Fatalf("handleAnalyze error = %v", err)
	}
	if out.Record.ID == "" || out.Record.Source != "vision" {
		t.Errorf("record not stamped: %+v", out.Record)
	}
	if !out.Assessment.CanProceed {
		t.Error("Assessment.CanProceed = false")
	}

	_, hist, err := server.handleHistory(ctx, nil, HistoryInput{})
	if err != nil {
		t.Fatalf("handleHistory error = %v", err)
	}
	if len(hist.Entries) != 1 || hist.Entries[0].ID != out.Record.ID {
		t.Errorf("journal entries = %+v, want the analyzed record", hist.Entries)
	}
}

func TestHandleAnalyze_RejectsBadBase64(t *testing.T) {
	server, err := NewServer(&Config{Name: "test-server", Version: "v1.0.0"}, testPipeline())
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	if _, _, err := server.handleAnalyze(context.Background(), nil, AnalyzeInput{ImageB64: "not base64!!"}); err == nil {
		t.Error("handleAnalyze accepted invalid base64")
	}
}

func TestHandleCompare(t *testing.T) {
	server, err := NewServer(&Config{Name: "test-server", Version: "v1.0.0"}, testPipeline())
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	in := CompareInput{
		DimensionScores: map[string]float64{"mood": 0.9, "energy": 0.9},
		Record: models.AnalysisRecord{
			Interpretation: models.InterpretationFlags{PosedExpression: true},
			Observations: []models.Observation{
				{Category: models.ObservationTension, Value: "jaw tension", Severity: models.SeverityModerate},
			},
		},
	}
	_, result, err := server.handleCompare(context.Background(), nil, in)
	if err != nil {
		t.Fatalf("handleCompare error = %v", err)
	}
	if !result.Masking.Detected {
		t.Error("Masking.Detected = false for a textbook masking input")
	}
	if len(result.Recommendations) == 0 {
		t.Error("Recommendations is empty")
	}
}

func TestHandleHistory_EmptyJournal(t *testing.T) {
	server, err := NewServer(&Config{Name: "test-server", Version: "v1.0.0"}, testPipeline())
	if err != nil {
		t.Fatal(err)
	}
	defer server.Close()

	_, out, err := server.handleHistory(context.Background(), nil, HistoryInput{})
	if err != nil {
		t.Fatalf("handleHistory error = %v", err)
	}
	if out.Entries == nil || len(out.Entries) != 0 {
		t.Errorf("Entries = %#v, want empty non-nil slice", out.Entries)
	}
}
