// Package history persists sweep run summaries so past cleanup actions can
// be audited.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sweeparr/sweeparr/internal/database"
	"github.com/sweeparr/sweeparr/internal/sweep"
)

// ErrRunNotFound is returned when a run id has no recorded run.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded sweep run.
type Run struct {
	ID             int64          `json:"id"`
	RunID          string         `json:"runId"`
	Mode           string         `json:"mode"`
	Target         string         `json:"target,omitempty"`
	DryRun         bool           `json:"dryRun"`
	Sections       int            `json:"sections"`
	FailedSections int            `json:"failedSections"`
	Items          int            `json:"items"`
	Groups         int            `json:"groups"`
	Deleted        int            `json:"deleted"`
	Failures       int            `json:"failures"`
	WarningCount   int            `json:"warningCount"`
	Summary        *sweep.Summary `json:"summary"`
	StartedAt      time.Time      `json:"startedAt"`
	FinishedAt     time.Time      `json:"finishedAt"`
}

// Service records and retrieves sweep runs.
type Service struct {
	db     *database.DB
	logger zerolog.Logger
}

// NewService creates a history service.
func NewService(db *database.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Record stores one finished run and returns its generated run id.
func (s *Service) Record(ctx context.Context, sum *sweep.Summary) (string, error) {
	runID := uuid.NewString()

	payload, err := json.Marshal(sum)
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}

	deleted := sum.Deleted + sum.WouldDelete
	_, err = s.db.Conn().ExecContext(ctx, `
		INSERT INTO sweep_runs (
			run_id, mode, target, dry_run,
			sections, failed_sections, items, groups,
			deleted, failures, warning_count,
			summary, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, sum.Mode, sum.Target, sum.DryRun,
		sum.Sections, sum.FailedSections, sum.Items, sum.Groups,
		deleted, sum.Failures, len(sum.Warnings),
		string(payload), sum.StartedAt, sum.FinishedAt,
	)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}

	s.logger.Debug().Str("runId", runID).Str("mode", sum.Mode).Msg("Recorded sweep run")
	return runID, nil
}

// List returns the most recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, run_id, mode, target, dry_run,
			sections, failed_sections, items, groups,
			deleted, failures, warning_count,
			summary, started_at, finished_at
		FROM sweep_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
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

// Get returns one run by its run id.
func (s *Service) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.Conn().QueryRowContext(ctx, `
		SELECT id, run_id, mode, target, dry_run,
			sections, failed_sections, items, groups,
			deleted, failures, warning_count,
			summary, started_at, finished_at
		FROM sweep_runs
		WHERE run_id = ?`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Prune deletes runs older than the retention window and returns how many
// were removed.
func (s *Service) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Conn().ExecContext(ctx,
		`DELETE FROM sweep_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var payload string
	err := row.Scan(
		&run.ID, &run.RunID, &run.Mode, &run.Target, &run.DryRun,
		&run.Sections, &run.FailedSections, &run.Items, &run.Groups,
		&run.Deleted, &run.Failures, &run.WarningCount,
		&payload, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(payload), &run.Summary); err != nil {
		return Run{}, fmt.Errorf("decoding summary of run %s: %w", run.RunID, err)
	}
	return run, nil
}
