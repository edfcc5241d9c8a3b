package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/monobuild/internal/domain"
)

type artifactRepo struct {
	tx *sql.Tx
}

func (r *artifactRepo) Put(ctx context.Context, artifact *domain.CachedArtifact) error {
	// Entries are content-addressed; the first write wins.
	_, err := r.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO artifacts (target, hash, reference, built_at)
		VALUES (?, ?, ?, ?)
	`, artifact.Target, artifact.Hash, artifact.Reference, artifact.BuiltAt)
	return err
}

func (r *artifactRepo) Get(ctx context.Context, target, hash string) (*domain.CachedArtifact, error) {
	row := r.tx.QueryRowContext(ctx, `
		SELECT target, hash, reference, built_at
		FROM artifacts WHERE target = ? AND hash = ?
	`, target, hash)

	artifact := &domain.CachedArtifact{}
	err := row.Scan(&artifact.Target, &artifact.Hash, &artifact.Reference, &artifact.BuiltAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func (r *artifactRepo) ListByTarget(ctx context.Context, target string) ([]*domain.CachedArtifact, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT target, hash, reference, built_at
		FROM artifacts WHERE target = ? ORDER BY built_at DESC
	`, target)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []*domain.CachedArtifact
	for rows.Next() {
		artifact := &domain.CachedArtifact{}
		if err := rows.Scan(&artifact.Target, &artifact.Hash, &artifact.Reference, &artifact.BuiltAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}
