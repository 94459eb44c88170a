package store

import (
	"database/sql"
	"fmt"
)

// migrate creates all tables if they don't exist and seeds metadata.
func (s *SQLiteStore) migrate() error {
	bootstrapDone, err := s.isMetaFlagEnabled("schema_bootstrap_complete")
	if err != nil {
		return fmt.Errorf("checking bootstrap state: %w", err)
	}

	if !bootstrapDone {
		if err := s.runBootstrapDDL(); err != nil {
			return err
		}
	}

	if err := s.seedMeta(); err != nil {
		return fmt.Errorf("seeding metadata: %w", err)
	}

	if !bootstrapDone {
		if err := s.setMetaFlag("schema_bootstrap_complete"); err != nil {
			return fmt.Errorf("marking bootstrap complete: %w", err)
		}
	}

	return nil
}

// runBootstrapDDL executes the full schema inside one transaction.
func (s *SQLiteStore) runBootstrapDDL() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning bootstrap transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id                  TEXT PRIMARY KEY,
			family              TEXT NOT NULL,
			focus_name          TEXT NOT NULL,
			anchor_line         INTEGER NOT NULL,
			anchor_line_content TEXT NOT NULL DEFAULT '',
			analytical_chain    TEXT NOT NULL DEFAULT '',
			source_text         TEXT NOT NULL DEFAULT '',
			source_hash         TEXT NOT NULL,
			provider            TEXT NOT NULL DEFAULT '',
			run_a_count         INTEGER NOT NULL DEFAULT 0,
			run_b_count         INTEGER NOT NULL DEFAULT 0,
			children_json       TEXT NOT NULL DEFAULT '[]',
			paraphrase_json     TEXT NOT NULL DEFAULT '[]',
			created_at          TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_family ON runs(family)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_identity
			ON runs(family, focus_name, anchor_line, source_hash)`,

		`CREATE TABLE IF NOT EXISTS verdicts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			valid      INTEGER NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			reason     TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_verdicts_run ON verdicts(run_id)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing bootstrap: %w", err)
	}
	return nil
}

// seedMeta records schema version once.
func (s *SQLiteStore) seedMeta() error {
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', '1')
		 ON CONFLICT(key) DO NOTHING`)
	return err
}

func (s *SQLiteStore) isMetaFlagEnabled(key string) (bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		// Meta table doesn't exist yet on a fresh database.
		return false, nil
	}
	return value == "1", nil
}

func (s *SQLiteStore) setMetaFlag(key string) error {
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES (?, '1')
		 ON CONFLICT(key) DO UPDATE SET value = '1'`, key)
	return err
}
