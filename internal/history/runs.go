package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pairmux/internal/merge"
)

// Status describes where a run ended up.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	// StatusPartial means the run finished but at least one task failed.
	StatusPartial   Status = "partial"
	StatusCancelled Status = "cancelled"
	// StatusAborted means the run stopped before scheduling (e.g. no binary or bad root).
	StatusAborted Status = "aborted"
)

// Run is one row of the runs table.
type Run struct {
	ID              string
	RootDir         string
	OutputDir       string
	Collection      string
	Status          Status
	StartedAt       time.Time
	FinishedAt      time.Time
	Discovered      int
	DiscoveryErrors int
	Skipped         int
	Succeeded       int
	Failed          int
	ErrorMessage    string
}

// Duration returns the wall-clock time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// OutcomeRecord is one row of the outcomes table.
type OutcomeRecord struct {
	RunID        string
	Title        string
	VideoPath    string
	AudioPath    string
	OutputPath   string
	Succeeded    bool
	ExitCode     *int
	ErrorKind    string
	ErrorMessage string
	Duration     time.Duration
}

// BeginRun inserts run with status running.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("history: run id required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return s.exec(ctx,
		`INSERT INTO runs (id, root_dir, output_dir, collection, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.RootDir, run.OutputDir, run.Collection, string(StatusRunning), formatTime(run.StartedAt),
	)
}

// FinishRun stores the final counts and status of run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	return s.exec(ctx,
		`UPDATE runs SET output_dir = ?, collection = ?, status = ?, finished_at = ?,
			discovered = ?, discovery_errors = ?, skipped = ?, succeeded = ?, failed = ?, error_message = ?
		WHERE id = ?`,
		run.OutputDir, run.Collection, string(run.Status), formatTime(run.FinishedAt),
		run.Discovered, run.DiscoveryErrors, run.Skipped, run.Succeeded, run.Failed, run.ErrorMessage,
		run.ID,
	)
}

// RecordOutcomes stores every outcome of a run in one transaction.
func (s *Store) RecordOutcomes(ctx context.Context, runID string, outcomes []merge.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin outcomes tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO outcomes
			(run_id, title, video_path, audio_path, output_path, succeeded, exit_code, error_kind, error_message, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare outcome insert: %w", err)
		}
		defer stmt.Close()

		for _, outcome := range outcomes {
			var exitCode sql.NullInt64
			if outcome.ExitCode != nil {
				exitCode = sql.NullInt64{Int64: int64(*outcome.ExitCode), Valid: true}
			}
			var message string
			if outcome.Err != nil {
				message = outcome.Err.Error()
			}
			if _, err := stmt.ExecContext(ctx,
				runID, outcome.Task.Title, outcome.Task.VideoPath, outcome.Task.AudioPath, outcome.Task.OutputPath,
				outcome.Succeeded, exitCode, merge.ErrorKind(outcome.Err), message, outcome.Duration.Milliseconds(),
			); err != nil {
				return fmt.Errorf("insert outcome: %w", err)
			}
		}
		return tx.Commit()
	})
}

const runColumns = `id, root_dir, output_dir, collection, status, started_at, finished_at,
	discovered, discovery_errors, skipped, succeeded, failed, error_message`

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with id, or nil when none exists.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Outcomes returns the recorded outcomes for runID in insertion order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, title, video_path, audio_path, output_path,
		succeeded, exit_code, error_kind, error_message, duration_ms
		FROM outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var records []OutcomeRecord
	for rows.Next() {
		var (
			rec        OutcomeRecord
			exitCode   sql.NullInt64
			durationMS int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Title, &rec.VideoPath, &rec.AudioPath, &rec.OutputPath,
			&rec.Succeeded, &exitCode, &rec.ErrorKind, &rec.ErrorMessage, &durationMS); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			rec.ExitCode = &code
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		status     string
		startedAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&run.ID, &run.RootDir, &run.OutputDir, &run.Collection, &status, &startedAt, &finishedAt,
		&run.Discovered, &run.DiscoveryErrors, &run.Skipped, &run.Succeeded, &run.Failed, &run.ErrorMessage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(status)
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTime(finishedAt.String)
	}
	return run, nil
}
