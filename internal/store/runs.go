package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vaibhavtmnit/cg5/internal/child"
)

const runColumns = `id, family, focus_name, anchor_line, anchor_line_content,
	analytical_chain, source_text, source_hash, provider, run_a_count, run_b_count,
	children_json, paraphrase_json, created_at`

// SaveRun persists one extraction run and returns its ID. A missing ID is
// minted; CreatedAt defaults to now.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *Run) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil run")
	}
	if r.Family == "" || r.FocusName == "" {
		return "", fmt.Errorf("run requires family and focus_name")
	}
	if r.ID == "" {
		r.ID = newRunID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	childrenJSON, err := json.Marshal(orEmptyChildren(r.Children))
	if err != nil {
		return "", fmt.Errorf("marshal children: %w", err)
	}
	paraphraseJSON, err := json.Marshal(orEmptyLines(r.Paraphrase))
	if err != nil {
		return "", fmt.Errorf("marshal paraphrase: %w", err)
	}

	if r.SourceHash == "" && r.SourceText != "" {
		r.SourceHash = HashSource(r.SourceText)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, family, focus_name, anchor_line, anchor_line_content,
			analytical_chain, source_text, source_hash, provider, run_a_count, run_b_count,
			children_json, paraphrase_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Family, r.FocusName, r.AnchorLine, r.AnchorLineContent,
		r.AnalyticalChain, r.SourceText, r.SourceHash, r.Provider, r.RunACount, r.RunBCount,
		string(childrenJSON), string(paraphraseJSON), r.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return r.ID, nil
}

// GetRun fetches a run by ID. Returns nil, nil when absent.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns runs newest-first, optionally filtered by family/focus.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOpts) ([]*Run, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	var where []string
	var args []any
	if opts.Family != "" {
		where = append(where, "family = ?")
		args = append(args, opts.Family)
	}
	if opts.Focus != "" {
		where = append(where, "focus_name = ?")
		args = append(args, opts.Focus)
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and (via cascade) its verdicts.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// FindCachedRun returns the most recent run with the same identity, or nil.
func (s *SQLiteStore) FindCachedRun(ctx context.Context, family, focusName string, anchorLine int, sourceHash string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE family = ? AND focus_name = ? AND anchor_line = ? AND source_hash = ?
		 ORDER BY created_at DESC LIMIT 1`,
		family, focusName, anchorLine, sourceHash)
	return scanRun(row)
}

// AddVerdicts stores validator verdicts against an existing run.
func (s *SQLiteStore) AddVerdicts(ctx context.Context, runID string, verdicts []child.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning verdict transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, v := range verdicts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO verdicts (run_id, name, valid, confidence, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, v.Name, boolToInt(v.Valid), v.Confidence, v.Reason, now); err != nil {
			return fmt.Errorf("inserting verdict %s: %w", v.Name, err)
		}
	}
	return tx.Commit()
}

// ListVerdicts returns a run's verdicts in insertion order.
func (s *SQLiteStore) ListVerdicts(ctx context.Context, runID string) ([]*RunVerdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, name, valid, confidence, reason, created_at
		FROM verdicts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing verdicts: %w", err)
	}
	defer rows.Close()

	var out []*RunVerdict
	for rows.Next() {
		var v RunVerdict
		var valid int
		var created string
		if err := rows.Scan(&v.ID, &v.RunID, &v.Name, &valid, &v.Confidence, &v.Reason, &created); err != nil {
			return nil, fmt.Errorf("scanning verdict: %w", err)
		}
		v.Valid = valid != 0
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, &v)
	}
	return out, rows.Err()
}

// Stats reports counts for observability.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{FamilyCounts: map[string]int64{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&st.RunCount); err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verdicts`).Scan(&st.VerdictCount); err != nil {
		return nil, fmt.Errorf("counting verdicts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT family, COUNT(*) FROM runs GROUP BY family`)
	if err != nil {
		return nil, fmt.Errorf("counting families: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var family string
		var n int64
		if err := rows.Scan(&family, &n); err != nil {
			return nil, err
		}
		st.FamilyCounts[family] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err == nil {
			st.DBSizeBytes = pageCount * pageSize
		}
	}

	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var childrenJSON, paraphraseJSON, created string
	err := row.Scan(&r.ID, &r.Family, &r.FocusName, &r.AnchorLine, &r.AnchorLineContent,
		&r.AnalyticalChain, &r.SourceText, &r.SourceHash, &r.Provider, &r.RunACount, &r.RunBCount,
		&childrenJSON, &paraphraseJSON, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	if err := json.Unmarshal([]byte(childrenJSON), &r.Children); err != nil {
		return nil, fmt.Errorf("decoding children for run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(paraphraseJSON), &r.Paraphrase); err != nil {
		return nil, fmt.Errorf("decoding paraphrase for run %s: %w", r.ID, err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &r, nil
}

func orEmptyChildren(list []child.EC) []child.EC {
	if list == nil {
		return []child.EC{}
	}
	return list
}

func orEmptyLines(list []ParaphraseLine) []ParaphraseLine {
	if list == nil {
		return []ParaphraseLine{}
	}
	return list
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
