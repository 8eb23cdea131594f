// Package history provides SQLite persistence for produced analyses and
// circuit breaker state transitions, so quality trends and endpoint health
// can be reviewed after the fact.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/0Reliance/Maeple-sub002/internal/models"
	"github.com/0Reliance/Maeple-sub002/internal/resilience"
)

// Store journals analyses and breaker events. All methods are safe for
// concurrent use via an internal mutex.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Entry is one journaled analysis row. The full record travels as a JSON
// blob; the scalar columns exist for listing and filtering.
type Entry struct {
	ID           string                `json:"id"`
	Source       string                `json:"source"`
	Confidence   float64               `json:"confidence"`
	QualityScore int                   `json:"quality_score"`
	QualityLevel string                `json:"quality_level"`
	CreatedAt    time.Time             `json:"created_at"`
	Record       models.AnalysisRecord `json:"record"`
}

// Open creates or opens the journal at dbPath, creating parent directories
// and tables as needed.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		confidence REAL NOT NULL,
		quality_score INTEGER NOT NULL,
		quality_level TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		record TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_analyses_source ON analyses(source);

	CREATE TABLE IF NOT EXISTS breaker_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		endpoint TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_breaker_events_at ON breaker_events(at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the journal.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// RecordAnalysis journals one produced analysis with its quality grade.
// Re-recording the same record ID is a no-op.
func (s *Store) RecordAnalysis(ctx context.Context, record models.AnalysisRecord, assessment models.QualityAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO analyses (id, source, confidence, quality_score, quality_level, created_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.Source, record.Confidence, assessment.Score, string(assessment.Level), record.CreatedAt.UTC(), string(blob))
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// RecordStateChange journals one breaker transition. Suitable as a
// Breaker.Subscribe listener target.
func (s *Store) RecordStateChange(ctx context.Context, change resilience.StateChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO breaker_events (endpoint, from_status, to_status, at)
		VALUES (?, ?, ?, ?)
	`, change.Endpoint, string(change.From), string(change.To), change.At.UTC())
	if err != nil {
		return fmt.Errorf("insert breaker event: %w", err)
	}
	return nil
}

// ListAnalyses returns the most recent entries, newest first. limit <= 0
// means no limit.
func (s *Store) ListAnalyses(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, source, confidence, quality_score, quality_level, created_at, record
		FROM analyses ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var blob string
		if err := rows.Scan(&e.ID, &e.Source, &e.Confidence, &e.QualityScore, &e.QualityLevel, &e.CreatedAt, &blob); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &e.Record); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetAnalysis returns one entry by record ID, or sql.ErrNoRows.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var e Entry
	var blob string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, confidence, quality_score, quality_level, created_at, record
		FROM analyses WHERE id = ?
	`, id).Scan(&e.ID, &e.Source, &e.Confidence, &e.QualityScore, &e.QualityLevel, &e.CreatedAt, &blob)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(blob), &e.Record); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", e.ID, err)
	}
	return &e, nil
}

// ListStateChanges returns the most recent breaker transitions, newest
// first. limit <= 0 means no limit.
func (s *Store) ListStateChanges(ctx context.Context, limit int) ([]resilience.StateChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT endpoint, from_status, to_status, at FROM breaker_events ORDER BY at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query breaker events: %w", err)
	}
	defer rows.Close()

	var changes []resilience.StateChange
	for rows.Next() {
		var c resilience.StateChange
		var from, to string
		if err := rows.Scan(&c.Endpoint, &from, &to, &c.At); err != nil {
			return nil, fmt.Errorf("scan breaker event: %w", err)
		}
		c.From = resilience.Status(from)
		c.To = resilience.Status(to)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
