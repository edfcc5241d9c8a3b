// Package service wires the lockfile extractor, dependency graph, cache and
// executor into the build orchestration API used by the CLI and the status
// server.
package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/example/monobuild/internal/cache"
	"github.com/example/monobuild/internal/domain"
	"github.com/example/monobuild/internal/executor"
	"github.com/example/monobuild/internal/graph"
	"github.com/example/monobuild/internal/lockfile"
	"github.com/example/monobuild/internal/observability"
	"github.com/example/monobuild/internal/storage"
	"github.com/example/monobuild/internal/toolchain"
	"github.com/example/monobuild/pkg/id"
)

// Config configures a BuildService.
type Config struct {
	// Root is the workspace root directory.
	Root string

	// LockfilePath is the pnpm lockfile location. Defaults to
	// <root>/pnpm-lock.yaml.
	LockfilePath string

	// Channel is the runtime channel builds run on. Defaults to "lts".
	Channel string

	// MaxParallel bounds concurrent tasks. Values <= 0 fall back to the
	// executor default.
	MaxParallel int

	// RemoteURL configures the remote cache mirror. Empty disables it.
	RemoteURL string

	// Remote holds credentials and endpoints for the remote mirror.
	Remote cache.RemoteOptions
}

// DefaultConfig returns a config with default values for the given root.
func DefaultConfig(root string) Config {
	return Config{
		Root:         root,
		LockfilePath: filepath.Join(root, "pnpm-lock.yaml"),
		Channel:      "lts",
	}
}

// BuildService provides the core build orchestration logic.
type BuildService struct {
	cfg     Config
	local   cache.Store
	remote  cache.RemoteStore
	storage storage.Storage
	metrics *observability.Metrics
	hasher  *cache.Hasher
}

// New creates a BuildService. An invalid remote URL fails here, before any
// build starts.
func New(cfg Config) (*BuildService, error) {
	if cfg.LockfilePath == "" {
		cfg.LockfilePath = filepath.Join(cfg.Root, "pnpm-lock.yaml")
	}
	if cfg.Channel == "" {
		cfg.Channel = "lts"
	}

	s := &BuildService{
		cfg:    cfg,
		local:  cache.NewMemoryStore(),
		hasher: cache.NewHasher(cfg.Root),
	}

	if cfg.RemoteURL != "" {
		remote, err := cache.OpenRemote(cfg.RemoteURL, cfg.Remote)
		if err != nil {
			return nil, err
		}
		s.remote = remote
	}

	return s, nil
}

// WithLocalCache replaces the default in-memory cache.
func (s *BuildService) WithLocalCache(store cache.Store) *BuildService {
	s.local = store
	return s
}

// WithRemote replaces the remote mirror configured from the URL.
func (s *BuildService) WithRemote(remote cache.RemoteStore) *BuildService {
	s.remote = remote
	return s
}

// WithStorage enables durable build history and the artifact index.
func (s *BuildService) WithStorage(st storage.Storage) *BuildService {
	s.storage = st
	return s
}

// WithMetrics enables metrics collection.
func (s *BuildService) WithMetrics(m *observability.Metrics) *BuildService {
	s.metrics = m
	return s
}

// Graph loads the lockfile and builds the workspace dependency graph.
func (s *BuildService) Graph() (*graph.Graph, error) {
	start := time.Now()

	lf, err := lockfile.Load(s.cfg.LockfilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load lockfile: %w", err)
	}
	g := graph.FromPackages(lf.Packages())

	if s.metrics != nil {
		s.metrics.GraphDuration().Observe(time.Since(start))
	}
	return g, nil
}

// Plan returns the transitive dependency closure of target in build order,
// target last.
func (s *BuildService) Plan(target string) ([]*domain.PackageNode, error) {
	g, err := s.Graph()
	if err != nil {
		return nil, err
	}
	if _, ok := g.Node(target); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTarget, target)
	}
	return g.TopologicalOrder(target)
}

// Affected maps changed file paths to their owning workspace packages and
// returns those packages plus everything that transitively depends on them,
// sorted.
func (s *BuildService) Affected(changedPaths []string) ([]string, error) {
	g, err := s.Graph()
	if err != nil {
		return nil, err
	}

	owners := make(map[string]bool)
	for _, changed := range changedPaths {
		clean := path.Clean(filepath.ToSlash(changed))
		if owner, ok := owningPackage(g, clean); ok {
			owners[owner] = true
		}
	}

	seeds := make([]string, 0, len(owners))
	for owner := range owners {
		seeds = append(seeds, owner)
	}
	sort.Strings(seeds)

	return g.Dependents(seeds), nil
}

// owningPackage finds the deepest package whose directory contains the path.
func owningPackage(g *graph.Graph, filePath string) (string, bool) {
	for dir := filePath; dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, ok := g.Node(dir); ok {
			return dir, true
		}
	}
	return "", false
}

// BuildReport summarizes one build run.
type BuildReport struct {
	RunID    string              `json:"runId"`
	Target   string              `json:"target"`
	Channel  string              `json:"channel"`
	Success  bool                `json:"success"`
	Duration time.Duration       `json:"duration"`
	Results  []domain.TaskResult `json:"results"`
}

// Build plans and executes the target plus its transitive dependencies,
// consulting the cache before running each task through runner.
func (s *BuildService) Build(ctx context.Context, target string, runner executor.Runner) (*BuildReport, error) {
	tc, err := toolchain.Resolve(s.cfg.Channel)
	if err != nil {
		return nil, err
	}

	g, err := s.Graph()
	if err != nil {
		return nil, err
	}
	if _, ok := g.Node(target); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTarget, target)
	}

	order, err := g.TopologicalOrder(target)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(order))
	for _, node := range order {
		present[node.ID] = true
	}

	exec := executor.New(s.cfg.MaxParallel)
	for _, node := range order {
		// Dangling lockfile edges are leaves in the graph; the executor
		// only sees dependencies that resolve to real packages.
		var deps []string
		for _, dep := range node.Dependencies {
			if present[dep] {
				deps = append(deps, dep)
			}
		}
		task := domain.BuildTask{
			ID:           node.ID,
			Target:       node.ID,
			Metadata:     tc.Channel,
			Dependencies: deps,
		}
		if err := exec.Add(task); err != nil {
			return nil, err
		}
	}

	run := &domain.BuildRun{
		ID:        id.NewRunID(),
		Target:    target,
		Channel:   tc.Channel,
		StartedAt: time.Now().UTC(),
	}
	if err := s.recordRunStart(ctx, run); err != nil {
		return nil, err
	}

	log.Printf("build %s: target=%s channel=%s tasks=%d", run.ID, target, tc.Channel, len(order))

	cached := s.cachingRunner(g, tc, runner)
	results, execErr := exec.Execute(ctx, cached)

	success := execErr == nil
	for _, res := range results {
		if !res.Success {
			success = false
		}
	}

	run.Results = results
	run.Finish(time.Now().UTC(), success)
	if s.metrics != nil {
		s.metrics.BuildDuration().WithLabels(target).Observe(run.FinishedAt.Sub(run.StartedAt))
	}
	if err := s.recordRunFinish(ctx, run); err != nil {
		log.Printf("build %s: failed to record history: %v", run.ID, err)
	}

	report := &BuildReport{
		RunID:    run.ID,
		Target:   target,
		Channel:  tc.Channel,
		Success:  success,
		Duration: run.FinishedAt.Sub(run.StartedAt),
		Results:  results,
	}
	if execErr != nil {
		return report, execErr
	}
	return report, nil
}

func (s *BuildService) recordRunStart(ctx context.Context, run *domain.BuildRun) error {
	if s.storage == nil {
		return nil
	}

	uow, err := s.storage.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.Builds().Create(ctx, run); err != nil {
		return fmt.Errorf("failed to record build run: %w", err)
	}
	return uow.Commit()
}

func (s *BuildService) recordRunFinish(ctx context.Context, run *domain.BuildRun) error {
	if s.storage == nil {
		return nil
	}

	uow, err := s.storage.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.Builds().Finish(ctx, run); err != nil {
		return fmt.Errorf("failed to record build outcome: %w", err)
	}
	return uow.Commit()
}

func (s *BuildService) recordArtifact(ctx context.Context, artifact *domain.CachedArtifact) error {
	if s.storage == nil {
		return nil
	}

	uow, err := s.storage.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.Artifacts().Put(ctx, artifact); err != nil {
		return fmt.Errorf("failed to index artifact: %w", err)
	}
	return uow.Commit()
}

// artifactReference derives a human-readable artifact reference from the
// target and its content hash, e.g. "web:build-abc123def456".
func artifactReference(target, hash string) string {
	name := target
	if i := strings.LastIndex(target, "/"); i >= 0 {
		name = target[i+1:]
	}
	return fmt.Sprintf("%s:build-%s", name, hash)
}
