package cache

import (
	"context"
	"testing"
	"time"

	"github.com/example/monobuild/internal/domain"
)

func artifactFixture(target, hash string) *domain.CachedArtifact {
	return &domain.CachedArtifact{
		Reference: "web:build-" + hash,
		Hash:      hash,
		BuiltAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Target:    target,
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	if _, ok := s.Lookup("apps/web", "abc123"); ok {
		t.Fatal("Lookup on empty store reported a hit")
	}

	want := artifactFixture("apps/web", "abc123")
	if err := s.Store("apps/web", "abc123", want); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, ok := s.Lookup("apps/web", "abc123")
	if !ok {
		t.Fatal("Lookup missed after Store")
	}
	if got.Reference != want.Reference || got.Hash != want.Hash {
		t.Errorf("Lookup = %+v, want %+v", got, want)
	}

	// A different hash for the same target is a distinct entry.
	if _, ok := s.Lookup("apps/web", "def456"); ok {
		t.Error("Lookup hit for a hash that was never stored")
	}
}

func TestMemoryStoreEntriesImmutable(t *testing.T) {
	s := NewMemoryStore()

	first := artifactFixture("apps/web", "abc123")
	if err := s.Store("apps/web", "abc123", first); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	// Re-storing the same key must not replace the existing entry.
	second := artifactFixture("apps/web", "abc123")
	second.Reference = "web:build-other"
	if err := s.Store("apps/web", "abc123", second); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, ok := s.Lookup("apps/web", "abc123")
	if !ok {
		t.Fatal("Lookup missed")
	}
	if got.Reference != first.Reference {
		t.Errorf("entry was overwritten: Reference = %q, want %q", got.Reference, first.Reference)
	}

	// Mutating the caller's copy after Store must not leak into the cache.
	first.Reference = "mutated"
	got, _ = s.Lookup("apps/web", "abc123")
	if got.Reference == "mutated" {
		t.Error("store aliases the caller's artifact")
	}
}

func TestDirStoreRoundTrip(t *testing.T) {
	s := NewDirStore(t.TempDir())

	if _, ok := s.Lookup("apps/web", "abc123"); ok {
		t.Fatal("Lookup on empty store reported a hit")
	}

	want := artifactFixture("apps/web", "abc123")
	if err := s.Store("apps/web", "abc123", want); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, ok := s.Lookup("apps/web", "abc123")
	if !ok {
		t.Fatal("Lookup missed after Store")
	}
	if got.Reference != want.Reference || got.Hash != want.Hash || got.Target != want.Target {
		t.Errorf("Lookup = %+v, want %+v", got, want)
	}
	if !got.BuiltAt.Equal(want.BuiltAt) {
		t.Errorf("BuiltAt = %v, want %v", got.BuiltAt, want.BuiltAt)
	}
}

func TestDirStoreKeepsExistingEntry(t *testing.T) {
	s := NewDirStore(t.TempDir())

	first := artifactFixture("apps/web", "abc123")
	if err := s.Store("apps/web", "abc123", first); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	second := artifactFixture("apps/web", "abc123")
	second.Reference = "web:build-other"
	if err := s.Store("apps/web", "abc123", second); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, _ := s.Lookup("apps/web", "abc123")
	if got.Reference != first.Reference {
		t.Errorf("entry was overwritten: Reference = %q, want %q", got.Reference, first.Reference)
	}
}

// fakeRemote is an in-memory RemoteStore recording its traffic.
type fakeRemote struct {
	entries map[domain.CacheKey]*domain.CachedArtifact
	lookups int
	stores  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{entries: make(map[domain.CacheKey]*domain.CachedArtifact)}
}

func (f *fakeRemote) Lookup(_ context.Context, target, hash string) (*domain.CachedArtifact, error) {
	f.lookups++
	return f.entries[domain.CacheKey{Target: target, ContentHash: hash}], nil
}

func (f *fakeRemote) Store(_ context.Context, target, hash string, artifact *domain.CachedArtifact) error {
	f.stores++
	f.entries[domain.CacheKey{Target: target, ContentHash: hash}] = artifact
	return nil
}

func TestLayeredLocalHit(t *testing.T) {
	local := NewMemoryStore()
	remote := newFakeRemote()
	layered := Layered{Local: local, Remote: remote}

	want := artifactFixture("apps/web", "abc123")
	if err := local.Store("apps/web", "abc123", want); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, src, err := layered.Lookup(context.Background(), "apps/web", "abc123")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil || src != SourceLocal {
		t.Fatalf("Lookup = (%v, %q), want local hit", got, src)
	}
	if remote.lookups != 0 {
		t.Errorf("remote consulted %d times on a local hit", remote.lookups)
	}
}

func TestLayeredRemoteHitWarmsLocal(t *testing.T) {
	local := NewMemoryStore()
	remote := newFakeRemote()
	layered := Layered{Local: local, Remote: remote}

	want := artifactFixture("apps/web", "abc123")
	if err := remote.Store(context.Background(), "apps/web", "abc123", want); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	remote.stores = 0

	got, src, err := layered.Lookup(context.Background(), "apps/web", "abc123")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got == nil || src != SourceRemote {
		t.Fatalf("Lookup = (%v, %q), want remote hit", got, src)
	}

	// The entry is now local; a second lookup must not touch the remote.
	remote.lookups = 0
	got, src, err = layered.Lookup(context.Background(), "apps/web", "abc123")
	if err != nil {
		t.Fatalf("second Lookup failed: %v", err)
	}
	if src != SourceLocal {
		t.Errorf("second Lookup source = %q, want local", src)
	}
	if remote.lookups != 0 {
		t.Errorf("remote consulted %d times after warm-through", remote.lookups)
	}
}

func TestLayeredMiss(t *testing.T) {
	layered := Layered{Local: NewMemoryStore(), Remote: newFakeRemote()}

	got, src, err := layered.Lookup(context.Background(), "apps/web", "abc123")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != nil || src != "" {
		t.Errorf("Lookup = (%v, %q), want miss", got, src)
	}
}

func TestLayeredStoreWritesBothLayers(t *testing.T) {
	local := NewMemoryStore()
	remote := newFakeRemote()
	layered := Layered{Local: local, Remote: remote}

	want := artifactFixture("apps/web", "abc123")
	if err := layered.Store(context.Background(), "apps/web", "abc123", want); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if _, ok := local.Lookup("apps/web", "abc123"); !ok {
		t.Error("local store missing the entry")
	}
	if remote.stores != 1 {
		t.Errorf("remote stores = %d, want 1", remote.stores)
	}
}

func TestLayeredWithoutRemote(t *testing.T) {
	layered := Layered{Local: NewMemoryStore()}

	if err := layered.Store(context.Background(), "apps/web", "abc123", artifactFixture("apps/web", "abc123")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	got, src, err := layered.Lookup(context.Background(), "apps/web", "abc123")
	if err != nil || got == nil || src != SourceLocal {
		t.Fatalf("Lookup = (%v, %q, %v), want local hit", got, src, err)
	}
}
