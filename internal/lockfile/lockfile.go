// Package lockfile parses pnpm-lock.yaml (v9) and resolves intra-workspace
// link dependencies into workspace-relative package paths for graph
// construction.
package lockfile

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/monobuild/internal/domain"
)

// rootImporter is the synthetic importer for the workspace root. It is
// excluded from the produced package set.
const rootImporter = "."

// Lockfile is the subset of pnpm-lock.yaml needed for dependency resolution.
type Lockfile struct {
	LockfileVersion string              `yaml:"lockfileVersion"`
	Importers       map[string]Importer `yaml:"importers"`
}

// Importer is a single workspace package's entry in the lockfile.
type Importer struct {
	Dependencies         map[string]Dependency `yaml:"dependencies"`
	DevDependencies      map[string]Dependency `yaml:"devDependencies"`
	OptionalDependencies map[string]Dependency `yaml:"optionalDependencies"`
	PeerDependencies     map[string]Dependency `yaml:"peerDependencies"`
}

// Dependency is one dependency entry under an importer.
type Dependency struct {
	Specifier string `yaml:"specifier"`
	Version   string `yaml:"version"`
}

// Load reads and parses a pnpm-lock.yaml file.
func Load(filePath string) (*Lockfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return Parse(data)
}

// Parse parses pnpm-lock.yaml content. Only the v9 schema generation is
// supported; any other version is a hard error.
func Parse(data []byte) (*Lockfile, error) {
	var lock Lockfile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse pnpm-lock.yaml: %w", err)
	}

	if !strings.HasPrefix(lock.LockfileVersion, "9.") {
		return nil, fmt.Errorf("%w: %q (only v9.x is supported)",
			domain.ErrUnsupportedLockfile, lock.LockfileVersion)
	}

	return &lock, nil
}

// WorkspaceDeps returns the workspace package paths the given importer
// depends on via link: entries, sorted and deduplicated. Non-link specifiers
// (plain semver, registry-resolved versions) never become edges.
func (l *Lockfile) WorkspaceDeps(importerPath string) []string {
	importer, ok := l.Importers[importerPath]
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var deps []string
	collect := func(group map[string]Dependency) {
		for _, dep := range group {
			target, ok := ResolveLink(importerPath, dep.Version)
			if !ok || seen[target] {
				continue
			}
			seen[target] = true
			deps = append(deps, target)
		}
	}

	collect(importer.Dependencies)
	collect(importer.DevDependencies)
	collect(importer.OptionalDependencies)
	collect(importer.PeerDependencies)

	sort.Strings(deps)
	return deps
}

// ResolveLink resolves a link: version against the dependent package's own
// path, e.g. from "libs/supabase/client", "link:../types" resolves to
// "libs/supabase/types". The second return is false for non-link versions
// and for link targets that escape the workspace root; both are treated as
// non-edges rather than errors.
func ResolveLink(importerPath, version string) (string, bool) {
	target, ok := strings.CutPrefix(version, "link:")
	if !ok {
		return "", false
	}
	// Absolute targets are checked before joining; path.Join would
	// silently relativize the leading slash.
	if target == "" || strings.HasPrefix(target, "/") {
		return "", false
	}

	resolved := path.Join(importerPath, target)
	if resolved == "" || resolved == "." || resolved == ".." ||
		strings.HasPrefix(resolved, "../") {
		return "", false
	}

	return resolved, true
}

// Packages returns every workspace package described by the lockfile with
// its resolved workspace dependencies, sorted by ID. The root importer is
// excluded.
func (l *Lockfile) Packages() []domain.PackageNode {
	pkgs := make([]domain.PackageNode, 0, len(l.Importers))
	for importerPath := range l.Importers {
		if importerPath == rootImporter {
			continue
		}
		pkgs = append(pkgs, domain.PackageNode{
			ID:           importerPath,
			Path:         importerPath,
			Dependencies: l.WorkspaceDeps(importerPath),
		})
	}

	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].ID < pkgs[j].ID })
	return pkgs
}
