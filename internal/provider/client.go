package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// ClientConfig configures the HTTP inference client.
type ClientConfig struct {
	// BaseURL is the service root, e.g. "https://inference.example.com".
	BaseURL string

	// APIKey is sent as a Bearer token when set.
	APIKey string

	// TimeoutSeconds bounds a single HTTP round trip. Default 30.
	TimeoutSeconds int

	// RequestsPerSecond paces outbound calls. Default 2, burst 2.
	RequestsPerSecond float64
}

// Client is the HTTP implementation of Inferrer. It performs exactly one
// round trip per Infer call; retries live in the resilience layer above it.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewClient creates an inference client.
func NewClient(cfg ClientConfig, logger *log.Logger) *Client {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2),
		logger:  logger.WithPrefix("provider"),
	}
}

// inferPayload is the wire shape of an inference request.
type inferPayload struct {
	InputB64         string `json:"input_b64,omitempty"`
	InputText        string `json:"input_text,omitempty"`
	MIMEType         string `json:"mime_type,omitempty"`
	TaskPrompt       string `json:"task_prompt"`
	OutputSchema     string `json:"output_schema,omitempty"`
	StructuredOutput bool   `json:"structured_output"`
}

// Infer posts one analysis request and returns the raw JSON payload.
// Errors are always *ServiceError so the caller can classify them.
func (c *Client) Infer(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := inferPayload{
		InputText:        req.InputText,
		MIMEType:         req.MIMEType,
		TaskPrompt:       req.TaskPrompt,
		OutputSchema:     req.OutputSchema,
		StructuredOutput: req.StructuredOutput,
	}
	if len(req.InputBytes) > 0 {
		payload.InputB64 = base64.StdEncoding.EncodeToString(req.InputBytes)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ServiceError{Kind: KindMalformedRequest, Message: "encode request", Err: err}
	}

	url := c.cfg.BaseURL + "/v1/analyze"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Kind: KindMalformedRequest, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			// Surface cancellation/deadline as-is, not as a service fault.
			return nil, ctx.Err()
		}
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	c.logger.Debug("infer round trip",
		"status", resp.StatusCode,
		"bytes", len(respBody),
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    truncate(respBody, 200),
		}
	}

	return json.RawMessage(respBody), nil
}

// Ping checks service reachability via the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServiceError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    "health check failed",
		}
	}
	return nil
}

// truncate returns the first n bytes of body as a string.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
