package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/topology"
)

// Run list bounds.
const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// runColumns is the SELECT column list for run queries.
const runColumns = `id, kind, backends, status, total, completed, error,
			started_at, completed_at, duration_ms`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed run log.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRun inserts a new run record.
func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	backendsJSON, err := json.Marshal(run.Backends)
	if err != nil {
		return fmt.Errorf("marshalling backends: %w", err)
	}

	query := `
		INSERT INTO runs (
			id, kind, backends, status, total, completed, error,
			started_at, completed_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		string(run.Kind),
		string(backendsJSON),
		string(run.Status),
		run.Total,
		run.Completed,
		nullableString(run.Error),
		run.StartedAt.Format(time.RFC3339Nano),
		nullableTime(run.CompletedAt),
		run.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// UpdateRun writes the status and counters of an existing run.
func (r *SQLiteRepository) UpdateRun(ctx context.Context, run *Run) error {
	query := `
		UPDATE runs SET
			status = ?, total = ?, completed = ?, error = ?,
			completed_at = ?, duration_ms = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		run.Total,
		run.Completed,
		nullableString(run.Error),
		nullableTime(run.CompletedAt),
		run.DurationMS,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// RecordCommand appends one completed command to a run.
func (r *SQLiteRepository) RecordCommand(ctx context.Context, rec *CommandRecord) error {
	query := `
		INSERT INTO run_commands (
			run_id, idx, opcode, class, backend, duration_ms, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rec.RunID,
		rec.Index,
		rec.Opcode,
		string(rec.Class),
		string(rec.Backend),
		rec.DurationMS,
		rec.CompletedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting command record: %w", err)
	}
	return nil
}

// SaveScanResults replaces the slot table stored for a scan run.
func (r *SQLiteRepository) SaveScanResults(ctx context.Context, runID string, rows []topology.SlotRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM scan_results WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clearing scan results: %w", err)
	}
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO scan_results (run_id, slot_id, color, type) VALUES (?, ?, ?, ?)",
			runID, row.ID, row.Color, row.Type,
		); err != nil {
			return fmt.Errorf("inserting scan result %d: %w", row.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing scan results: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning run: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// ListCommands returns the command records of a run in dispatch order.
func (r *SQLiteRepository) ListCommands(ctx context.Context, runID string) ([]CommandRecord, error) {
	query := `
		SELECT run_id, idx, opcode, class, backend, duration_ms, completed_at
		FROM run_commands
		WHERE run_id = ?
		ORDER BY idx, backend`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying command records: %w", err)
	}
	defer rows.Close()

	var records []CommandRecord
	for rows.Next() {
		var rec CommandRecord
		var class, backend, completedAt string
		if err := rows.Scan(&rec.RunID, &rec.Index, &rec.Opcode, &class, &backend, &rec.DurationMS, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning command record: %w", err)
		}
		rec.Class = command.Class(class)
		rec.Backend = Backend(backend)
		rec.CompletedAt, _ = time.Parse(time.RFC3339Nano, completedAt) //nolint:errcheck // Format is controlled
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command records: %w", err)
	}
	return records, nil
}

// GetScanResults returns the slot table stored for a scan run, by slot id.
func (r *SQLiteRepository) GetScanResults(ctx context.Context, runID string) ([]topology.SlotRow, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT slot_id, color, type FROM scan_results WHERE run_id = ? ORDER BY slot_id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying scan results: %w", err)
	}
	defer rows.Close()

	var out []topology.SlotRow
	for rows.Next() {
		var row topology.SlotRow
		if err := rows.Scan(&row.ID, &row.Color, &row.Type); err != nil {
			return nil, fmt.Errorf("scanning scan result: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scan results: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var run Run
	var kind, backendsJSON, status, startedAt string
	var runErr, completedAt sql.NullString
	var duration sql.NullInt64

	err := scanner.Scan(
		&run.ID,
		&kind,
		&backendsJSON,
		&status,
		&run.Total,
		&run.Completed,
		&runErr,
		&startedAt,
		&completedAt,
		&duration,
	)
	if err != nil {
		return nil, err
	}

	run.Kind = RunKind(kind)
	run.Status = RunStatus(status)
	if runErr.Valid {
		run.Error = runErr.String
	}
	if err := json.Unmarshal([]byte(backendsJSON), &run.Backends); err != nil {
		return nil, fmt.Errorf("unmarshalling backends: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt) //nolint:errcheck // Format is controlled
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, completedAt.String) //nolint:errcheck // Format is controlled
		run.CompletedAt = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		run.DurationMS = &d
	}
	return &run, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}
