package database

import (
	"database/sql"
	"fmt"
	"time"
)

// RunStatus is the final state of an organize run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Run is one row of the organize history.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       *time.Time
	Status           RunStatus
	DryRun           bool
	Found            int
	Relocated        int
	Skipped          int
	Failed           int
	BytesRelocated   int64
	LeftoversDeleted int
	FoldersRemoved   int
	Error            string
}

// Duration returns how long the run took, or zero while it is still running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StartRun records a new run in the running state.
func (m *MediaDB) StartRun(id string, startedAt time.Time, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.db.Exec(`
		INSERT INTO runs (id, started_at, status, dry_run)
		VALUES (?, ?, ?, ?)
	`, id, startedAt.UTC(), RunRunning, dryRun)
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return nil
}

// FinishRun stores the counters and final status of run.
func (m *MediaDB) FinishRun(run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}

	res, err := m.db.Exec(`
		UPDATE runs SET
			finished_at = ?, status = ?, files_found = ?, relocated = ?,
			skipped = ?, failed = ?, bytes_relocated = ?,
			leftovers_deleted = ?, folders_removed = ?, error_message = ?
		WHERE id = ?
	`, finished, run.Status, run.Found, run.Relocated,
		run.Skipped, run.Failed, run.BytesRelocated,
		run.LeftoversDeleted, run.FoldersRemoved, nullString(run.Error),
		run.ID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: no such run", run.ID)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (m *MediaDB) RecentRuns(limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.db.Query(`
		SELECT id, started_at, finished_at, status, dry_run,
		       COALESCE(files_found, 0), COALESCE(relocated, 0),
		       COALESCE(skipped, 0), COALESCE(failed, 0),
		       COALESCE(bytes_relocated, 0), COALESCE(leftovers_deleted, 0),
		       COALESCE(folders_removed, 0), COALESCE(error_message, '')
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			status   string
			finished sql.NullTime
		)
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &finished, &status, &r.DryRun,
			&r.Found, &r.Relocated, &r.Skipped, &r.Failed,
			&r.BytesRelocated, &r.LeftoversDeleted, &r.FoldersRemoved, &r.Error,
		); err != nil {
			return nil, err
		}
		r.Status = RunStatus(status)
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
