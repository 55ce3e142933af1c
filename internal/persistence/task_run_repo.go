package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type TaskRun struct {
	RunID      string
	Kind       string
	Status     string
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// DefaultTaskRunRetention is how many runs the history keeps.
const DefaultTaskRunRetention = 500

// TaskRunRepo keeps a bounded history of service task runs. Recording a
// finished run drops the oldest rows beyond the retention.
type TaskRunRepo struct {
	db     *sql.DB
	retain int
}

func NewTaskRunRepo(db *sql.DB, retain int) *TaskRunRepo {
	if retain <= 0 {
		retain = DefaultTaskRunRetention
	}

	return &TaskRunRepo{db: db, retain: retain}
}

func (r *TaskRunRepo) Upsert(ctx context.Context, run TaskRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO task_runs(run_id, kind, status, detail, started_at, finished_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			detail = excluded.detail,
			finished_at = COALESCE(excluded.finished_at, task_runs.finished_at)
	`, run.RunID, run.Kind, run.Status, run.Detail, millis{run.StartedAt}, millis{run.FinishedAt})
	if err != nil {
		return fmt.Errorf("upsert task run: %w", err)
	}
	if run.FinishedAt.IsZero() {
		return nil
	}

	return r.prune(ctx)
}

func (r *TaskRunRepo) prune(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM task_runs
		WHERE run_id NOT IN (
			SELECT run_id FROM task_runs ORDER BY started_at DESC LIMIT ?
		)
	`, r.retain)
	if err != nil {
		return fmt.Errorf("prune task runs: %w", err)
	}

	return nil
}

// Clear removes every recorded run. Settings are untouched.
func (r *TaskRunRepo) Clear(ctx context.Context) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("database is not initialized")
	}
	//goland:noinspection SqlWithoutWhere
	if _, err := r.db.ExecContext(ctx, `DELETE FROM task_runs`); err != nil {
		return fmt.Errorf("clear task runs: %w", err)
	}

	return nil
}

// ListRecent returns the latest runs, newest first. An empty kind lists all.
func (r *TaskRunRepo) ListRecent(ctx context.Context, kind string, limit int) ([]TaskRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, kind, status, detail, started_at, finished_at
		FROM task_runs
		WHERE ? = '' OR kind = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list task runs: %w", err)
	}
	defer rows.Close()

	out := make([]TaskRun, 0)
	for rows.Next() {
		var (
			run               TaskRun
			started, finished millis
		)
		if err := rows.Scan(&run.RunID, &run.Kind, &run.Status, &run.Detail, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan task run: %w", err)
		}
		run.StartedAt, run.FinishedAt = started.Time, finished.Time
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task runs: %w", err)
	}

	return out, nil
}
