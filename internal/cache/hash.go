package cache

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"lukechampine.com/blake3"

	"github.com/example/monobuild/internal/domain"
	"github.com/example/monobuild/internal/graph"
	"github.com/example/monobuild/internal/toolchain"
)

// hashLength is the number of hex characters kept from the digest.
const hashLength = 12

// Directories never included in content hashes.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	".turbo":       true,
	".next":        true,
}

// Hasher computes deterministic content hashes over a target's transitive
// input set: the target's own files, every workspace package it depends on,
// and the resolved toolchain channel.
type Hasher struct {
	root string
}

// NewHasher creates a hasher over the workspace rooted at root.
func NewHasher(root string) *Hasher {
	return &Hasher{root: root}
}

// Hash computes the content hash for target. Any change to a file in the
// target or one of its transitive dependencies, or a different toolchain
// channel, changes the result.
func (h *Hasher) Hash(g *graph.Graph, target string, tc toolchain.Toolchain) (string, error) {
	if _, ok := g.Node(target); !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownTarget, target)
	}

	paths, err := g.DependencyPaths(target)
	if err != nil {
		return "", err
	}

	// Sort a copy so the hash depends only on the input set, not on the
	// traversal order.
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	hasher := blake3.New(32, nil)
	for _, pkgPath := range sorted {
		if err := h.hashTree(hasher, pkgPath); err != nil {
			return "", err
		}
	}

	// Toolchain identity participates so a channel change invalidates
	// everything built with it.
	hasher.Write([]byte(tc.Channel))
	hasher.Write([]byte(tc.Image))

	return hex.EncodeToString(hasher.Sum(nil))[:hashLength], nil
}

// hashTree feeds every file under the package directory into the hasher,
// relative path first, then content, in sorted order.
func (h *Hasher) hashTree(w io.Writer, pkgPath string) error {
	dir := filepath.Join(h.root, filepath.FromSlash(pkgPath))

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	sort.Strings(files)

	for _, path := range files {
		rel, err := filepath.Rel(h.root, path)
		if err != nil {
			rel = path
		}
		w.Write([]byte(filepath.ToSlash(rel)))

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to hash %s: %w", path, err)
		}
	}

	return nil
}
