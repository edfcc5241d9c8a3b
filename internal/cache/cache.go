// Package cache implements the content-addressed build cache: deterministic
// input hashing, the local lookup/store contract, and remote mirrors backed
// by S3-compatible object storage or an OCI registry.
package cache

import (
	"context"
	"sync"

	"github.com/example/monobuild/internal/domain"
)

// Store is the local cache contract. Lookup is synchronous and must not
// mutate state. Entries are content-addressed and immutable: storing a key
// that already exists is a no-op.
type Store interface {
	Lookup(target, hash string) (*domain.CachedArtifact, bool)
	Store(target, hash string, artifact *domain.CachedArtifact) error
}

// RemoteStore mirrors the local cache contract against a remote backend.
// Lookup returns (nil, nil) on a miss.
type RemoteStore interface {
	Lookup(ctx context.Context, target, hash string) (*domain.CachedArtifact, error)
	Store(ctx context.Context, target, hash string, artifact *domain.CachedArtifact) error
}

// MemoryStore is an in-process Store, used as the default and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.CacheKey]*domain.CachedArtifact
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[domain.CacheKey]*domain.CachedArtifact)}
}

// Lookup returns the artifact for an exact (target, hash) match.
func (s *MemoryStore) Lookup(target, hash string) (*domain.CachedArtifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	artifact, ok := s.entries[domain.CacheKey{Target: target, ContentHash: hash}]
	return artifact, ok
}

// Store records an artifact; an existing entry for the same key wins.
func (s *MemoryStore) Store(target, hash string, artifact *domain.CachedArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.CacheKey{Target: target, ContentHash: hash}
	if _, ok := s.entries[key]; ok {
		return nil
	}
	copied := *artifact
	s.entries[key] = &copied
	return nil
}

// Layered combines a local store with an optional remote mirror: a local
// miss falls back to the remote, and a remote hit warms the local store.
type Layered struct {
	Local  Store
	Remote RemoteStore // may be nil
}

// Source identifies which layer served a lookup.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Lookup consults local first, then the remote mirror. Remote errors are
// returned so callers can decide whether to treat them as misses.
func (l Layered) Lookup(ctx context.Context, target, hash string) (*domain.CachedArtifact, Source, error) {
	if artifact, ok := l.Local.Lookup(target, hash); ok {
		return artifact, SourceLocal, nil
	}

	if l.Remote == nil {
		return nil, "", nil
	}

	artifact, err := l.Remote.Lookup(ctx, target, hash)
	if err != nil || artifact == nil {
		return nil, "", err
	}

	// Warm the local cache for next time.
	if err := l.Local.Store(target, hash, artifact); err != nil {
		return nil, "", err
	}
	return artifact, SourceRemote, nil
}

// Store writes to the local store and, when configured, the remote mirror.
func (l Layered) Store(ctx context.Context, target, hash string, artifact *domain.CachedArtifact) error {
	if err := l.Local.Store(target, hash, artifact); err != nil {
		return err
	}
	if l.Remote != nil {
		return l.Remote.Store(ctx, target, hash, artifact)
	}
	return nil
}
