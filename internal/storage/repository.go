// Package storage defines the persistence contracts for build history and
// the durable artifact index.
package storage

import (
	"context"

	"github.com/example/monobuild/internal/domain"
)

// ListOptions provides filtering options for list operations.
type ListOptions struct {
	// Target filters runs to one workspace package (empty = all).
	Target string

	// Pagination
	Limit  int
	Offset int
}

// BuildRepository provides access to build run history.
type BuildRepository interface {
	// Create records a new build run.
	Create(ctx context.Context, run *domain.BuildRun) error

	// Get retrieves a build run, including its task results, by ID.
	Get(ctx context.Context, id string) (*domain.BuildRun, error)

	// Finish stores the run outcome and its task results.
	Finish(ctx context.Context, run *domain.BuildRun) error

	// List lists build runs, newest first.
	List(ctx context.Context, opts ListOptions) ([]*domain.BuildRun, error)
}

// ArtifactRepository is the durable artifact index.
type ArtifactRepository interface {
	// Put records an artifact. Entries are immutable: writing an existing
	// (target, hash) pair is a no-op.
	Put(ctx context.Context, artifact *domain.CachedArtifact) error

	// Get retrieves an artifact by target and content hash. A missing
	// entry is domain.ErrArtifactNotFound.
	Get(ctx context.Context, target, hash string) (*domain.CachedArtifact, error)

	// ListByTarget lists artifacts for one target, newest first.
	ListByTarget(ctx context.Context, target string) ([]*domain.CachedArtifact, error)
}

// UnitOfWork provides transactional access to all repositories.
type UnitOfWork interface {
	Builds() BuildRepository
	Artifacts() ArtifactRepository

	Commit() error
	Rollback() error
}

// Storage is the main entry point for persistence.
type Storage interface {
	// Begin starts a new transaction.
	Begin(ctx context.Context) (UnitOfWork, error)

	// Migrate applies the schema.
	Migrate(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
