// Package session owns the UI-facing capture lifecycle: a per-interaction
// state machine (INTRO -> CAPTURING -> ANALYZING -> RESULT/ERROR) that
// threads cancellation and the hard session deadline through the adapter
// call, then runs normalization, assessment, and optional journaling.
// Sessions are isolated from one another; the only shared mutable state in
// the pipeline is the per-endpoint circuit breaker.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/0Reliance/Maeple-sub002/internal/constants"
	"github.com/0Reliance/Maeple-sub002/internal/models"
	"github.com/0Reliance/Maeple-sub002/internal/offline"
	"github.com/0Reliance/Maeple-sub002/internal/resilience"
)

// State is the capture session lifecycle state.
type State string

const (
	StateIntro     State = "INTRO"
	StateCapturing State = "CAPTURING"
	StateAnalyzing State = "ANALYZING"
	StateResult    State = "RESULT"
	StateError     State = "ERROR"
)

// Progress is advisory UI feedback: a named stage with a monotonically
// non-decreasing percentage. It carries no correctness obligation.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// Named stages in submission order.
const (
	StageIntro      = "intro"
	StageConnecting = "connecting"
	StageAwaiting   = "awaiting response"
	StageParsing    = "parsing"
	StageComplete   = "complete"
)

// Outcome is the terminal result of a session.
type Outcome struct {
	Record     *models.AnalysisRecord
	Assessment *models.QualityAssessment

	// Err is set for ERROR terminal states.
	Err error

	// CanRetry is the UI affordance: every surfaced error allows retry
	// except permission denial.
	CanRetry bool
}

// Analyzer is the slice of the service adapter the session needs.
type Analyzer interface {
	Name() string
	AnalyzeImage(ctx context.Context, imageBytes []byte, mimeType string) (json.RawMessage, error)
}

// Normalizer converts a raw payload into the canonical record.
type Normalizer interface {
	Normalize(raw json.RawMessage) models.AnalysisRecord
}

// Assessor grades a record's reliability.
type Assessor interface {
	Assess(record *models.AnalysisRecord) models.QualityAssessment
}

// Comparer runs self-report comparison.
type Comparer interface {
	Compare(selfReport models.SelfReport, record *models.AnalysisRecord) models.ComparisonResult
}

// Journal persists produced analyses. Optional; failures are logged, never
// surfaced to the session.
type Journal interface {
	RecordAnalysis(ctx context.Context, record models.AnalysisRecord, assessment models.QualityAssessment) error
}

// PipelineConfig sets session policy.
type PipelineConfig struct {
	// Deadline is the hard cap on the analyzing phase. Defaults to the
	// 45-second contract value.
	Deadline time.Duration

	// FallbackOnOpen turns an open circuit into an offline record instead
	// of an ERROR terminal state.
	FallbackOnOpen bool
}

// Pipeline is the composition root for capture sessions: one per adapter
// endpoint, shared by all concurrent sessions.
type Pipeline struct {
	adapter    Analyzer
	normalizer Normalizer
	assessor   Assessor
	comparer   Comparer
	journal    Journal
	cfg        PipelineConfig
	logger     *log.Logger
}

// NewPipeline wires a capture pipeline. journal may be nil.
func NewPipeline(adapter Analyzer, normalizer Normalizer, assessor Assessor, comparer Comparer, journal Journal, cfg PipelineConfig, logger *log.Logger) *Pipeline {
	if cfg.Deadline <= 0 {
		cfg.Deadline = constants.SessionDeadline
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		adapter:    adapter,
		normalizer: normalizer,
		assessor:   assessor,
		comparer:   comparer,
		journal:    journal,
		cfg:        cfg,
		logger:     logger.WithPrefix("session"),
	}
}

// GetQuality re-assesses a record on demand.
func (p *Pipeline) GetQuality(record *models.AnalysisRecord) models.QualityAssessment {
	return p.assessor.Assess(record)
}

// CompareToSelfReport compares a self-report against a record.
func (p *Pipeline) CompareToSelfReport(selfReport models.SelfReport, record *models.AnalysisRecord) models.ComparisonResult {
	return p.comparer.Compare(selfReport, record)
}

// StartCapture opens a new session in the INTRO state.
func (p *Pipeline) StartCapture() *Session {
	return &Session{
		id:        uuid.NewString(),
		pipeline:  p,
		state:     StateIntro,
		startedAt: time.Now(),
		progress:  Progress{Stage: StageIntro, Percent: 0},
	}
}

// Session is one user capture interaction. Ephemeral: created when the
// capture flow opens, discarded after completion, cancellation, or
// navigation away.
type Session struct {
	id        string
	pipeline  *Pipeline
	startedAt time.Time

	mu       sync.Mutex
	state    State
	progress Progress
	cancel   context.CancelFunc
	outcome  *Outcome
}

// ID returns the session handle identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns the latest advisory progress snapshot.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Outcome returns the terminal outcome, or nil before RESULT/ERROR.
func (s *Session) Outcome() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// BeginCapture transitions INTRO -> CAPTURING when the user starts capture.
func (s *Session) BeginCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIntro {
		return ErrInvalidTransition
	}
	s.state = StateCapturing
	return nil
}

// ReportCaptureError handles a capture-device failure before any bytes
// exist. Permission denial is terminal with no retry affordance.
func (s *Session) ReportCaptureError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateError
	s.outcome = &Outcome{Err: err, CanRetry: !errors.Is(err, ErrPermission)}
}

// Submit runs the captured bytes through the full pipeline:
// adapter -> normalizer -> assessor (-> journal), transitioning
// CAPTURING -> ANALYZING -> RESULT or ERROR. It blocks until terminal.
//
// Cancellation (via Cancel or the parent ctx) unwinds to INTRO and is not an
// error. The session deadline is enforced here, independently of the
// resilience layer; the tighter of the two always wins.
func (s *Session) Submit(ctx context.Context, imageBytes []byte, mimeType string) (*models.AnalysisRecord, error) {
	s.mu.Lock()
	if s.state != StateCapturing {
		s.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	s.state = StateAnalyzing
	ctx, cancel := context.WithTimeout(ctx, s.pipeline.cfg.Deadline)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	s.setProgress(StageConnecting, 10)

	p := s.pipeline
	p.logger.Debug("submitting capture", "session", s.id, "bytes", len(imageBytes), "endpoint", p.adapter.Name())

	s.setProgress(StageAwaiting, 40)
	raw, err := p.adapter.AnalyzeImage(ctx, imageBytes, mimeType)
	if err != nil {
		return s.finishError(err, len(imageBytes))
	}

	s.setProgress(StageParsing, 80)
	record := p.normalizer.Normalize(raw)
	s.stamp(&record, p.adapter.Name())

	return s.finishResult(ctx, record)
}

// finishError maps a pipeline failure onto the terminal state table.
func (s *Session) finishError(err error, inputSize int) (*models.AnalysisRecord, error) {
	p := s.pipeline

	switch {
	case errors.Is(err, context.Canceled):
		// User cancellation silently unwinds to INTRO.
		s.mu.Lock()
		s.state = StateIntro
		s.progress = Progress{Stage: StageIntro, Percent: 0}
		s.cancel = nil
		s.mu.Unlock()
		return nil, context.Canceled

	case errors.Is(err, context.DeadlineExceeded):
		s.terminate(StateError, &Outcome{Err: ErrTimeout, CanRetry: true})
		return nil, ErrTimeout

	case errors.Is(err, resilience.ErrCircuitOpen):
		if p.cfg.FallbackOnOpen {
			record := offline.Generate(inputSize)
			s.stamp(&record, "offline")
			p.logger.Info("circuit open, serving offline analysis", "session", s.id)
			return s.finishResult(context.Background(), record)
		}
		s.terminate(StateError, &Outcome{Err: err, CanRetry: true})
		return nil, err

	case errors.Is(err, ErrPermission):
		s.terminate(StateError, &Outcome{Err: err, CanRetry: false})
		return nil, err

	default:
		s.terminate(StateError, &Outcome{Err: err, CanRetry: true})
		return nil, err
	}
}

// finishResult assesses, journals, and lands in RESULT.
func (s *Session) finishResult(ctx context.Context, record models.AnalysisRecord) (*models.AnalysisRecord, error) {
	p := s.pipeline
	assessment := p.assessor.Assess(&record)

	if p.journal != nil {
		if err := p.journal.RecordAnalysis(ctx, record, assessment); err != nil {
			p.logger.Warn("journal write failed", "session", s.id, "err", err)
		}
	}

	if s.terminate(StateResult, &Outcome{Record: &record, Assessment: &assessment}) {
		s.setProgress(StageComplete, 100)
	}
	return &record, nil
}

// Cancel aborts an in-flight analysis; the in-progress adapter call unwinds
// cooperatively via the shared context. Cancelling a session that is not
// analyzing resets it to INTRO.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	if s.state == StateAnalyzing || s.state == StateCapturing {
		s.state = StateIntro
		s.progress = Progress{Stage: StageIntro, Percent: 0}
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// stamp fills the record identity fields.
func (s *Session) stamp(record *models.AnalysisRecord, source string) {
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now().UTC()
	record.Source = source
}

// terminate applies a terminal state and reports whether it took effect.
// A concurrent Cancel may already have unwound to INTRO; cancellation wins
// over any late terminal state.
func (s *Session) terminate(state State, outcome *Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIntro {
		return false
	}
	s.state = state
	s.outcome = outcome
	s.cancel = nil
	return true
}

// setProgress advances the advisory progress, never decreasing the percent.
func (s *Session) setProgress(stage string, percent int) {
	s.mu.Lock()
	if percent >= s.progress.Percent {
		s.progress = Progress{Stage: stage, Percent: percent}
	}
	s.mu.Unlock()
}
