package provider

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/0Reliance/Maeple-sub002/internal/resilience"
)

// Task prompts per capability. Each asks for structured JSON matching the
// analysis schema; the normalizer tolerates both response dialects the
// service is known to emit.
const (
	visionPrompt = `Analyze the facial expression in this image using the Facial Action
Coding System. Report detected action units with code, display name, A-E
intensity, and per-unit confidence. Include an interpretation block
(genuine vs posed expression, masking/fatigue/tension indicators),
qualitative observations with evidence and severity, and lighting and
environmental context. Respond with JSON only.`

	textPrompt = `Analyze this journal entry for affective state. Report detected
emotional features with intensity and confidence, an interpretation block
(genuine vs performative tone, masking/fatigue/tension indicators), and
observations with evidence and severity. Respond with JSON only.`

	audioPrompt = `Analyze this voice sample for vocal affect. Report detected prosodic
features (pitch variability, speech rate, vocal tension) with intensity and
confidence, an interpretation block, and observations with evidence and
severity. Respond with JSON only.`
)

// analysisSchema is the expected-output descriptor sent alongside every task.
const analysisSchema = `{
  "confidence": "number 0-1",
  "detected_features": [{"code": "string", "display_name": "string", "intensity": "A-E", "intensity_numeric": "1-5", "confidence": "number 0-1"}],
  "interpretation": {"genuine_expression": "bool", "posed_expression": "bool", "masking_indicators": ["string"], "fatigue_indicators": ["string"], "tension_indicators": ["string"]},
  "observations": [{"category": "tension|fatigue|lighting|environmental", "value": "string", "evidence": "string", "severity": "low|moderate|high"}],
  "environment": {"lighting_description": "string", "lighting_severity": "low|moderate|high", "environmental_clues": ["string"]}
}`

// Adapter is a typed facade for one inference capability. It builds the
// provider request, routes it through the resilience executor, and hands the
// raw payload upward untouched. The caller's context (cancellation and
// deadline) is propagated unchanged into every attempt.
type Adapter struct {
	name     string
	prompt   string
	inferrer Inferrer
	exec     *resilience.Executor
	logger   *log.Logger
}

func newAdapter(name, prompt string, inferrer Inferrer, exec *resilience.Executor, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{
		name:     name,
		prompt:   prompt,
		inferrer: inferrer,
		exec:     exec,
		logger:   logger.WithPrefix(name + "-adapter"),
	}
}

// NewVisionAdapter builds the image-analysis facade. The executor (and its
// breaker) must be dedicated to the vision endpoint.
func NewVisionAdapter(inferrer Inferrer, exec *resilience.Executor, logger *log.Logger) *Adapter {
	return newAdapter("vision", visionPrompt, inferrer, exec, logger)
}

// NewTextAdapter builds the journal-text analysis facade.
func NewTextAdapter(inferrer Inferrer, exec *resilience.Executor, logger *log.Logger) *Adapter {
	return newAdapter("text", textPrompt, inferrer, exec, logger)
}

// NewAudioAdapter builds the voice-sample analysis facade.
func NewAudioAdapter(inferrer Inferrer, exec *resilience.Executor, logger *log.Logger) *Adapter {
	return newAdapter("audio", audioPrompt, inferrer, exec, logger)
}

// Name returns the logical endpoint name ("vision", "text", "audio").
func (a *Adapter) Name() string { return a.name }

// Breaker exposes the endpoint's circuit breaker for status queries and
// event subscription.
func (a *Adapter) Breaker() *resilience.Breaker { return a.exec.Breaker() }

// AnalyzeImage runs image analysis and returns the raw provider payload.
func (a *Adapter) AnalyzeImage(ctx context.Context, imageBytes []byte, mimeType string) (json.RawMessage, error) {
	return a.analyze(ctx, Request{
		InputBytes:       imageBytes,
		MIMEType:         mimeType,
		TaskPrompt:       a.prompt,
		OutputSchema:     analysisSchema,
		StructuredOutput: true,
	})
}

// AnalyzeText runs journal-text analysis and returns the raw provider payload.
func (a *Adapter) AnalyzeText(ctx context.Context, text string) (json.RawMessage, error) {
	return a.analyze(ctx, Request{
		InputText:        text,
		TaskPrompt:       a.prompt,
		OutputSchema:     analysisSchema,
		StructuredOutput: true,
	})
}

// AnalyzeAudio runs voice analysis and returns the raw provider payload.
func (a *Adapter) AnalyzeAudio(ctx context.Context, audioBytes []byte, mimeType string) (json.RawMessage, error) {
	return a.analyze(ctx, Request{
		InputBytes:       audioBytes,
		MIMEType:         mimeType,
		TaskPrompt:       a.prompt,
		OutputSchema:     analysisSchema,
		StructuredOutput: true,
	})
}

func (a *Adapter) analyze(ctx context.Context, req Request) (json.RawMessage, error) {
	a.logger.Debug("analyze", "input_bytes", len(req.InputBytes), "input_text_len", len(req.InputText))
	return resilience.Call(ctx, a.exec, func(ctx context.Context) (json.RawMessage, error) {
		return a.inferrer.Infer(ctx, req)
	})
}
