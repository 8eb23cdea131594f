// Package provider talks to the external inference service. It owns the
// request contract, the error taxonomy for classifiable service failures,
// and the typed adapters (vision, text, audio) that route every call through
// the resilience layer. Adapters return the provider's raw payload upward;
// domain parsing belongs to the normalizer.
package provider

import (
	"context"
	"encoding/json"
)

// Request is the single logical RPC contract toward the inference service.
type Request struct {
	// InputBytes is the captured image or audio payload. Empty for text tasks.
	InputBytes []byte `json:"-"`

	// InputText is the text to analyze. Empty for binary tasks.
	InputText string `json:"input_text,omitempty"`

	// MIMEType describes InputBytes, e.g. "image/jpeg".
	MIMEType string `json:"mime_type,omitempty"`

	// TaskPrompt instructs the model what to extract.
	TaskPrompt string `json:"task_prompt"`

	// OutputSchema describes the expected JSON shape of the response.
	OutputSchema string `json:"output_schema,omitempty"`

	// StructuredOutput asks the service to emit schema-conforming JSON.
	StructuredOutput bool `json:"structured_output"`
}

// Inferrer performs one inference round trip. The HTTP client implements it;
// tests inject fakes.
type Inferrer interface {
	Infer(ctx context.Context, req Request) (json.RawMessage, error)
}

// Pinger optionally exposes a cheap reachability probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
