package sqlite

import (
	"context"
	"database/sql"
)

// Migrate runs all database migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		// Build runs table
		`CREATE TABLE IF NOT EXISTS build_runs (
			id TEXT PRIMARY KEY,
			target TEXT NOT NULL,
			channel TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			success INTEGER
		)`,

		// Task results table
		`CREATE TABLE IF NOT EXISTS task_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			success INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL,
			error TEXT,
			cache_hit INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (run_id) REFERENCES build_runs(id) ON DELETE CASCADE
		)`,

		// Artifact index
		`CREATE TABLE IF NOT EXISTS artifacts (
			target TEXT NOT NULL,
			hash TEXT NOT NULL,
			reference TEXT NOT NULL,
			built_at DATETIME NOT NULL,
			PRIMARY KEY (target, hash)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_build_runs_target ON build_runs(target, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_task_results_run ON task_results(run_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return err
		}
	}
	return nil
}
