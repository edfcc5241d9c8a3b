package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/monobuild/internal/domain"
)

// artifactFile is the sidecar name inside each cache entry directory.
const artifactFile = "artifact.json"

// DirStore is a filesystem-backed Store laying entries out as
// <root>/<target-with-slashes-as-underscores>/<hash>/artifact.json.
type DirStore struct {
	root string
}

// NewDirStore creates a directory store rooted at root. The directory is
// created lazily on first Store.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) entryDir(target, hash string) string {
	return filepath.Join(s.root, strings.ReplaceAll(target, "/", "_"), hash)
}

// Lookup reads the artifact sidecar for an exact (target, hash) match.
// Unreadable or malformed entries count as misses.
func (s *DirStore) Lookup(target, hash string) (*domain.CachedArtifact, bool) {
	data, err := os.ReadFile(filepath.Join(s.entryDir(target, hash), artifactFile))
	if err != nil {
		return nil, false
	}

	var artifact domain.CachedArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, false
	}
	return &artifact, true
}

// Store persists the artifact sidecar. An existing entry is left untouched.
func (s *DirStore) Store(target, hash string, artifact *domain.CachedArtifact) error {
	dir := s.entryDir(target, hash)
	path := filepath.Join(dir, artifactFile)

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize artifact: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", path, err)
	}
	return nil
}
