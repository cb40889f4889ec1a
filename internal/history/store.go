package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"accentabx/internal/batch"
	"accentabx/internal/layout"
)

// ErrRunNotFound is returned when a run id has no ledger entry.
var ErrRunNotFound = errors.New("run not found")

// Run summarizes one recorded batch.
type Run struct {
	ID        string    `json:"id"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// Duration returns the wall-clock time of the run.
func (r Run) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the ledger at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a finished run and its outcomes in one transaction.
func (s *Store) Record(ctx context.Context, result batch.Result) error {
	if result.RunID == "" {
		return errors.New("run id required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, total, succeeded, failed)
        VALUES (?, ?, ?, ?, ?, ?)`,
		result.RunID,
		formatTime(result.Started),
		formatTime(result.Finished),
		len(result.Outcomes),
		result.Succeeded(),
		result.Failed(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, outcome := range result.Outcomes {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_outcomes (
                run_id, position, category, status, exit_code, error_message,
                input_path, features_dir, times_dir, item_file, started_at, duration_ms
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.RunID,
			i,
			outcome.Category,
			string(outcome.Status),
			outcome.ExitCode,
			nullableString(outcome.Error),
			outcome.Paths.Input,
			outcome.Paths.Features,
			outcome.Paths.Times,
			outcome.Paths.ItemFile,
			formatTime(outcome.Started),
			outcome.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert outcome %s: %w", outcome.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, total, succeeded, failed
        FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &started, &finished, &run.Total, &run.Succeeded, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Started = parseTime(started)
		run.Finished = parseTime(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Outcomes returns the recorded per-category outcomes of runID in processing order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]batch.Outcome, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM runs WHERE id = ?", runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, status, exit_code, error_message, input_path, features_dir,
            times_dir, item_file, started_at, duration_ms
        FROM run_outcomes WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []batch.Outcome
	for rows.Next() {
		var (
			outcome    batch.Outcome
			status     string
			errMessage sql.NullString
			paths      layout.Paths
			started    string
			durationMS int64
		)
		if err := rows.Scan(&outcome.Category, &status, &outcome.ExitCode, &errMessage,
			&paths.Input, &paths.Features, &paths.Times, &paths.ItemFile, &started, &durationMS); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		paths.Category = outcome.Category
		outcome.Paths = paths
		outcome.Status = batch.Status(status)
		outcome.Error = errMessage.String
		outcome.Started = parseTime(started)
		outcome.Duration = time.Duration(durationMS) * time.Millisecond
		outcomes = append(outcomes, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// storedTimeLayout keeps a fixed-width fraction so text ordering in SQL
// matches chronological ordering.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
