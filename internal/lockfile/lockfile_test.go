package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/monobuild/internal/domain"
)

const sampleLock = `lockfileVersion: '9.0'
importers:
  .:
    devDependencies:
      typescript:
        specifier: ^5.4.0
        version: 5.4.5
  apps/web:
    dependencies:
      '@acme/core':
        specifier: workspace:*
        version: link:../../libs/core
      react:
        specifier: ^18.2.0
        version: 18.3.1
  libs/core:
    dependencies:
      zod:
        specifier: ^3.22.0
        version: 3.23.8
`

func TestResolveLink(t *testing.T) {
	tests := []struct {
		importer string
		version  string
		want     string
		ok       bool
	}{
		{"apps/focustoday-api", "link:../../libs/env-config", "libs/env-config", true},
		{"libs/supabase/client", "link:../types", "libs/supabase/types", true},
		{"apps/foo", "1.2.3", "", false},
		{"apps/foo", "workspace:*", "", false},
		{"apps/web", "link:../../..", "", false},
		{"apps/web", "link:../../../outside", "", false},
		{"apps/web", "link:/abs/path", "", false},
		{"apps/web", "link:", "", false},
		{"apps/web", "link:./sub", "apps/web/sub", true},
	}

	for _, tt := range tests {
		got, ok := ResolveLink(tt.importer, tt.version)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ResolveLink(%q, %q) = (%q, %v), want (%q, %v)",
				tt.importer, tt.version, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseVersionGate(t *testing.T) {
	_, err := Parse([]byte("lockfileVersion: '6.0'\nimporters: {}\n"))
	if !errors.Is(err, domain.ErrUnsupportedLockfile) {
		t.Errorf("Parse() error = %v, want ErrUnsupportedLockfile", err)
	}
}

func TestPackagesExcludesRoot(t *testing.T) {
	lock, err := Parse([]byte(sampleLock))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	pkgs := lock.Packages()
	if len(pkgs) != 2 {
		t.Fatalf("Packages() returned %d packages, want 2", len(pkgs))
	}
	for _, p := range pkgs {
		if p.ID == "." {
			t.Error("Packages() included the root importer")
		}
	}
}

func TestPackagesResolvesWorkspaceEdges(t *testing.T) {
	lock, err := Parse([]byte(sampleLock))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	pkgs := lock.Packages()
	byID := make(map[string]domain.PackageNode)
	for _, p := range pkgs {
		byID[p.ID] = p
	}

	web, ok := byID["apps/web"]
	if !ok {
		t.Fatal("apps/web missing from package set")
	}
	if len(web.Dependencies) != 1 || web.Dependencies[0] != "libs/core" {
		t.Errorf("apps/web dependencies = %v, want [libs/core]", web.Dependencies)
	}

	core, ok := byID["libs/core"]
	if !ok {
		t.Fatal("libs/core missing from package set")
	}
	if len(core.Dependencies) != 0 {
		t.Errorf("libs/core dependencies = %v, want none", core.Dependencies)
	}
}

func TestWorkspaceDepsDeduplicatesAcrossGroups(t *testing.T) {
	lock := &Lockfile{
		LockfileVersion: "9.0",
		Importers: map[string]Importer{
			"apps/api": {
				Dependencies: map[string]Dependency{
					"@acme/core": {Specifier: "workspace:*", Version: "link:../../libs/core"},
				},
				DevDependencies: map[string]Dependency{
					"@acme/core-dev": {Specifier: "workspace:*", Version: "link:../../libs/core"},
					"@acme/types":    {Specifier: "workspace:*", Version: "link:../../libs/types"},
				},
			},
		},
	}

	deps := lock.WorkspaceDeps("apps/api")
	want := []string{"libs/core", "libs/types"}
	if len(deps) != len(want) {
		t.Fatalf("WorkspaceDeps() = %v, want %v", deps, want)
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Errorf("WorkspaceDeps()[%d] = %q, want %q", i, deps[i], want[i])
		}
	}
}

func TestWorkspaceDepsUnknownImporter(t *testing.T) {
	lock := &Lockfile{LockfileVersion: "9.0"}
	if deps := lock.WorkspaceDeps("apps/nope"); deps != nil {
		t.Errorf("WorkspaceDeps() = %v, want nil", deps)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "pnpm-lock.yaml")
	if err := os.WriteFile(lockPath, []byte(sampleLock), 0o644); err != nil {
		t.Fatal(err)
	}

	lock, err := Load(lockPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(lock.Importers) != 3 {
		t.Errorf("Load() importers = %d, want 3", len(lock.Importers))
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() on missing file did not return an error")
	}
}
