package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/monobuild/internal/domain"
	"github.com/example/monobuild/internal/storage"
)

type buildRepo struct {
	tx *sql.Tx
}

func (r *buildRepo) Create(ctx context.Context, run *domain.BuildRun) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO build_runs (id, target, channel, started_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.Target, run.Channel, run.StartedAt)
	return err
}

func (r *buildRepo) Get(ctx context.Context, id string) (*domain.BuildRun, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT id, target, channel, started_at, finished_at, success
		FROM build_runs WHERE id = ?
	`, id)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrBuildNotFound
	}
	if err != nil {
		return nil, err
	}

	results, err := r.results(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Results = results
	return run, nil
}

func (r *buildRepo) Finish(ctx context.Context, run *domain.BuildRun) error {
	result, err := r.tx.ExecContext(ctx, `
		UPDATE build_runs SET finished_at = ?, success = ? WHERE id = ?
	`, run.FinishedAt, run.Success, run.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrBuildNotFound
	}

	for _, res := range run.Results {
		_, err := r.tx.ExecContext(ctx, `
			INSERT INTO task_results (run_id, task_id, success, duration_ns, error, cache_hit)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, res.TaskID, res.Success, int64(res.Duration), res.Error, res.CacheHit)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *buildRepo) List(ctx context.Context, opts storage.ListOptions) ([]*domain.BuildRun, error) {
	query := `
		SELECT id, target, channel, started_at, finished_at, success
		FROM build_runs
	`
	var args []any
	if opts.Target != "" {
		query += ` WHERE target = ?`
		args = append(args, opts.Target)
	}
	query += ` ORDER BY started_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.BuildRun
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *buildRepo) results(ctx context.Context, runID string) ([]domain.TaskResult, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT task_id, success, duration_ns, error, cache_hit
		FROM task_results WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.TaskResult
	for rows.Next() {
		var res domain.TaskResult
		var duration int64
		if err := rows.Scan(&res.TaskID, &res.Success, &duration, &res.Error, &res.CacheHit); err != nil {
			return nil, err
		}
		res.Duration = time.Duration(duration)
		results = append(results, res)
	}
	return results, rows.Err()
}

func scanRun(scan func(dest ...any) error) (*domain.BuildRun, error) {
	run := &domain.BuildRun{}
	var finishedAt sql.NullTime
	var success sql.NullBool

	err := scan(&run.ID, &run.Target, &run.Channel, &run.StartedAt, &finishedAt, &success)
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	if success.Valid {
		b := success.Bool
		run.Success = &b
	}
	return run, nil
}
