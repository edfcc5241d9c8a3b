// Package sqlite implements the storage contracts on SQLite.
package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/monobuild/internal/storage"
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage instance.
func New(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single connection for writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteStorage{db: db}, nil
}

// Begin starts a new transaction.
func (s *SQLiteStorage) Begin(ctx context.Context) (storage.UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newUnitOfWork(tx), nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.db)
}

type unitOfWork struct {
	tx        *sql.Tx
	builds    *buildRepo
	artifacts *artifactRepo
}

func newUnitOfWork(tx *sql.Tx) *unitOfWork {
	return &unitOfWork{
		tx:        tx,
		builds:    &buildRepo{tx: tx},
		artifacts: &artifactRepo{tx: tx},
	}
}

func (u *unitOfWork) Builds() storage.BuildRepository {
	return u.builds
}

func (u *unitOfWork) Artifacts() storage.ArtifactRepository {
	return u.artifacts
}

func (u *unitOfWork) Commit() error {
	return u.tx.Commit()
}

func (u *unitOfWork) Rollback() error {
	return u.tx.Rollback()
}
