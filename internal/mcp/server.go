// Package mcp exposes the analysis pipeline over the Model Context Protocol
// so agent tooling can run captures, grade records, and review history via
// JSON-RPC over stdio.
package mcp

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/0Reliance/Maeple-sub002/internal/history"
	"github.com/0Reliance/Maeple-sub002/internal/models"
	"github.com/0Reliance/Maeple-sub002/internal/session"
)

// Config configures the MCP server.
type Config struct {
	Name    string
	Version string

	// HistoryPath locates the analysis journal. Empty means an in-memory
	// journal that lives only as long as the server.
	HistoryPath string
}

// Server wraps the MCP server with the pipeline and journal it serves.
type Server struct {
	server   *mcp.Server
	pipeline *session.Pipeline
	store    *history.Store
	closed   bool
}

// NewServer creates an MCP server around an already-wired pipeline.
func NewServer(cfg *Config, pipeline *session.Pipeline) (*Server, error) {
	path := cfg.HistoryPath
	if path == "" {
		path = ":memory:"
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		pipeline: pipeline,
		store:    store,
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP over stdio until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close releases the journal. Safe to call more than once.
func (s *Server) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.store.Close()
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bio_analyze",
		Description: "Run a capture through the analysis pipeline. Takes a base64-encoded image and returns the normalized analysis record with its quality assessment.",
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bio_assess",
		Description: "Grade the reliability of an analysis record. Returns a 0-100 score, a quality level, and suggestions.",
	}, s.handleAssess)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bio_compare",
		Description: "Compare self-reported wellness scores against an analysis record. Returns alignment, discrepancy, masking signal, and recommendations.",
	}, s.handleCompare)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bio_history",
		Description: "List recent journaled analyses, newest first.",
	}, s.handleHistory)
}

// AnalyzeInput carries one capture.
type AnalyzeInput struct {
	ImageB64 string `json:"image_b64" jsonschema:"base64-encoded capture bytes"`
	MIMEType string `json:"mime_type,omitempty" jsonschema:"capture MIME type, defaults to image/jpeg"`
}

// AnalyzeOutput is the pipeline result for one capture.
type AnalyzeOutput struct {
	Record     models.AnalysisRecord    `json:"record"`
	Assessment models.QualityAssessment `json:"assessment"`
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest, in AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
	imageBytes, err := base64.StdEncoding.DecodeString(in.ImageB64)
	if err != nil {
		return nil, AnalyzeOutput{}, fmt.Errorf("invalid image_b64: %w", err)
	}
	mimeType := in.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	sess := s.pipeline.StartCapture()
	if err := sess.BeginCapture(); err != nil {
		return nil, AnalyzeOutput{}, err
	}
	record, err := sess.Submit(ctx, imageBytes, mimeType)
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}

	out := AnalyzeOutput{Record: *record}
	if outcome := sess.Outcome(); outcome != nil && outcome.Assessment != nil {
		out.Assessment = *outcome.Assessment
	}
	if err := s.store.RecordAnalysis(ctx, out.Record, out.Assessment); err != nil {
		return nil, AnalyzeOutput{}, fmt.Errorf("failed to journal analysis: %w", err)
	}
	return nil, out, nil
}

// AssessInput carries the record to grade.
type AssessInput struct {
	Record models.AnalysisRecord `json:"record"`
}

func (s *Server) handleAssess(ctx context.Context, req *mcp.CallToolRequest, in AssessInput) (*mcp.CallToolResult, models.QualityAssessment, error) {
	return nil, s.pipeline.GetQuality(&in.Record), nil
}

// CompareInput pairs self-reported scores with a record.
type CompareInput struct {
	DimensionScores map[string]float64    `json:"dimension_scores" jsonschema:"self-reported 0-1 scores keyed by dimension"`
	Record          models.AnalysisRecord `json:"record"`
}

func (s *Server) handleCompare(ctx context.Context, req *mcp.CallToolRequest, in CompareInput) (*mcp.CallToolResult, models.ComparisonResult, error) {
	report := models.SelfReport{DimensionScores: in.DimensionScores}
	return nil, s.pipeline.CompareToSelfReport(report, &in.Record), nil
}

// HistoryInput bounds the listing.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum entries to return, 0 for all"`
}

// HistoryOutput lists journaled analyses.
type HistoryOutput struct {
	Entries []history.Entry `json:"entries"`
}

func (s *Server) handleHistory(ctx context.Context, req *mcp.CallToolRequest, in HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	entries, err := s.store.ListAnalyses(ctx, in.Limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return nil, HistoryOutput{Entries: entries}, nil
}
