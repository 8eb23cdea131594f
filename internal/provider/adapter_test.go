package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/0Reliance/Maeple-sub002/internal/resilience"
)

// fakeInferrer records requests and returns canned responses.
type fakeInferrer struct {
	requests []Request
	payload  json.RawMessage
	err      error
}

func (f *fakeInferrer) Infer(ctx context.Context, req Request) (json.RawMessage, error) {
	f.requests = append(f.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func newVision(f *fakeInferrer) *Adapter {
	b := resilience.NewBreaker("vision", resilience.BreakerConfig{})
	ex := resilience.NewExecutor(b, resilience.ExecutorConfig{BaseDelay: time.Millisecond}, log.Default())
	return NewVisionAdapter(f, ex, log.Default())
}

func TestAdapter_AnalyzeImageBuildsRequest(t *testing.T) {
	fake := &fakeInferrer{payload: json.RawMessage(`{"confidence": 0.8}`)}
	a := newVision(fake)

	raw, err := a.AnalyzeImage(context.Background(), []byte{1, 2, 3}, "image/png")
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if string(raw) != `{"confidence": 0.8}` {
		t.Errorf("raw = %s, want passthrough payload", raw)
	}

	if len(fake.requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(fake.requests))
	}
	req := fake.requests[0]
	if req.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q", req.MIMEType)
	}
	if req.TaskPrompt == "" || req.OutputSchema == "" {
		t.Error("request missing prompt or schema descriptor")
	}
	if !req.StructuredOutput {
		t.Error("StructuredOutput not set")
	}
}

func TestAdapter_DoesNotParsePayload(t *testing.T) {
	// Adapters hand malformed JSON upward untouched; parsing is the
	// normalizer's problem.
	fake := &fakeInferrer{payload: json.RawMessage(`not json at all`)}
	a := newVision(fake)

	raw, err := a.AnalyzeImage(context.Background(), []byte{1}, "image/jpeg")
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if string(raw) != "not json at all" {
		t.Errorf("raw = %s, want verbatim payload", raw)
	}
}

func TestAdapter_PropagatesCancellation(t *testing.T) {
	fake := &fakeInferrer{payload: json.RawMessage(`{}`)}
	a := newVision(fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.AnalyzeImage(ctx, []byte{1}, "image/jpeg")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if got := a.Breaker().Status(); got != resilience.StatusClosed {
		t.Errorf("breaker status = %s, want CLOSED after cancellation", got)
	}
}

func TestAdapter_TextAndAudioFacades(t *testing.T) {
	fake := &fakeInferrer{payload: json.RawMessage(`{}`)}
	bText := resilience.NewBreaker("text", resilience.BreakerConfig{})
	text := NewTextAdapter(fake, resilience.NewExecutor(bText, resilience.ExecutorConfig{}, log.Default()), log.Default())
	bAudio := resilience.NewBreaker("audio", resilience.BreakerConfig{})
	audio := NewAudioAdapter(fake, resilience.NewExecutor(bAudio, resilience.ExecutorConfig{}, log.Default()), log.Default())

	if _, err := text.AnalyzeText(context.Background(), "felt great today"); err != nil {
		t.Errorf("AnalyzeText() error = %v", err)
	}
	if _, err := audio.AnalyzeAudio(context.Background(), []byte{9}, "audio/wav"); err != nil {
		t.Errorf("AnalyzeAudio() error = %v", err)
	}

	if fake.requests[0].InputText != "felt great today" {
		t.Errorf("text request InputText = %q", fake.requests[0].InputText)
	}
	if fake.requests[1].MIMEType != "audio/wav" {
		t.Errorf("audio request MIMEType = %q", fake.requests[1].MIMEType)
	}
	if text.Name() != "text" || audio.Name() != "audio" {
		t.Errorf("names = %s/%s", text.Name(), audio.Name())
	}
}
