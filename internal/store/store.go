// Package store provides the SQLite persistence layer for cg5.
//
// Every extraction run is logged: the request that triggered it, the merged
// candidate list, the paraphrase used for run B, and any validator verdicts
// issued later. The log doubles as a cache: a repeated request (same family,
// focus, anchor, and source hash) can reuse the stored result instead of
// paying for four model calls.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vaibhavtmnit/cg5/internal/child"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.cg5/cg5.db"

// Run is one logged extraction.
type Run struct {
	ID                string
	Family            string
	FocusName         string
	AnchorLine        int
	AnchorLineContent string
	AnalyticalChain   string
	SourceText        string
	SourceHash        string
	Provider          string
	RunACount         int
	RunBCount         int
	Children          []child.EC
	Paraphrase        []ParaphraseLine
	CreatedAt         time.Time
}

// ParaphraseLine mirrors one NL line stored with a run.
type ParaphraseLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// RunVerdict is one stored validator judgment tied to a run.
type RunVerdict struct {
	ID         int64
	RunID      string
	Name       string
	Valid      bool
	Confidence float64
	Reason     string
	CreatedAt  time.Time
}

// ListOpts controls pagination and filtering for ListRuns.
type ListOpts struct {
	Limit  int
	Offset int
	Family string
	Focus  string
}

// Stats holds observability counts for the store.
type Stats struct {
	RunCount     int64
	VerdictCount int64
	FamilyCounts map[string]int64
	DBSizeBytes  int64
}

// Config holds configuration for NewStore.
type Config struct {
	DBPath string
}

// Store defines the run-log storage interface.
type Store interface {
	SaveRun(ctx context.Context, r *Run) (string, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, opts ListOpts) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// FindCachedRun returns the most recent run matching the request
	// identity, or nil when there is no match.
	FindCachedRun(ctx context.Context, family, focusName string, anchorLine int, sourceHash string) (*Run, error)

	AddVerdicts(ctx context.Context, runID string, verdicts []child.Verdict) error
	ListVerdicts(ctx context.Context, runID string) ([]*RunVerdict, error)

	Stats(ctx context.Context) (*Stats, error)
	Vacuum(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg Config) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Vacuum runs VACUUM on the database. Manual only, never automatic.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// newRunID mints a fresh run identifier.
func newRunID() string {
	return uuid.NewString()
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
