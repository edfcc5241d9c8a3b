package service

import (
	"context"
	"log"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/example/monobuild/internal/cache"
	"github.com/example/monobuild/internal/domain"
	"github.com/example/monobuild/internal/executor"
	"github.com/example/monobuild/internal/graph"
	"github.com/example/monobuild/internal/toolchain"
)

// cachingRunner wraps the build runner with content-addressed caching: a
// cache hit serves the task without invoking the runner, and a successful
// build is written back to every configured cache layer.
func (s *BuildService) cachingRunner(g *graph.Graph, tc toolchain.Toolchain, runner executor.Runner) executor.Runner {
	layered := cache.Layered{Local: s.local, Remote: s.remote}

	return executor.RunnerFunc(func(ctx context.Context, task domain.BuildTask) domain.TaskResult {
		start := time.Now()
		if s.metrics != nil {
			s.metrics.TasksDispatched().Inc()
			s.metrics.TasksRunning().Inc()
			defer s.metrics.TasksRunning().Dec()
		}

		hashStart := time.Now()
		hash, err := s.hasher.Hash(g, task.Target, tc)
		if err != nil {
			if s.metrics != nil {
				s.metrics.TasksFailed().Inc()
			}
			return domain.TaskResult{
				Success:  false,
				Duration: time.Since(start),
				Error:    err.Error(),
			}
		}
		if s.metrics != nil {
			s.metrics.HashDuration().Observe(time.Since(hashStart))
		}

		artifact, source, err := layered.Lookup(ctx, task.Target, hash)
		if err != nil {
			// A broken mirror degrades to a miss; the build still runs.
			log.Printf("cache lookup for %s@%s failed: %v", task.Target, hash, err)
		}
		if artifact != nil {
			log.Printf("cache hit (%s): %s@%s -> %s", source, task.Target, hash, artifact.Reference)
			if s.metrics != nil {
				s.metrics.CacheHits().WithLabels(string(source)).Inc()
				s.metrics.TasksCompleted().Inc()
			}
			return domain.TaskResult{
				Success:  true,
				Duration: time.Since(start),
				CacheHit: true,
			}
		}
		if s.metrics != nil {
			s.metrics.CacheMisses().Inc()
		}

		result := runner.Execute(ctx, task)
		result.Duration = time.Since(start)

		if s.metrics != nil {
			s.metrics.TaskDuration().WithLabels(task.Target).Observe(result.Duration)
			if result.Success {
				s.metrics.TasksCompleted().Inc()
			} else {
				s.metrics.TasksFailed().Inc()
			}
		}

		if result.Success {
			built := &domain.CachedArtifact{
				Reference: artifactReference(task.Target, hash),
				Hash:      hash,
				BuiltAt:   time.Now().UTC(),
				Target:    task.Target,
			}
			if err := layered.Store(ctx, task.Target, hash, built); err != nil {
				log.Printf("cache store for %s@%s failed: %v", task.Target, hash, err)
			}
			if err := s.recordArtifact(ctx, built); err != nil {
				log.Printf("artifact index for %s@%s failed: %v", task.Target, hash, err)
			}
		}
		return result
	})
}

// CommandRunner executes the build command in the task's package directory.
type CommandRunner struct {
	// Root is the workspace root.
	Root string

	// Command is the build command, e.g. {"pnpm", "run", "build"}.
	Command []string
}

// Execute runs the command for one task and captures its combined output
// into the result error on failure.
func (r *CommandRunner) Execute(ctx context.Context, task domain.BuildTask) domain.TaskResult {
	start := time.Now()

	if len(r.Command) == 0 {
		return domain.TaskResult{
			Success:  false,
			Duration: time.Since(start),
			Error:    "no build command configured",
		}
	}

	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Dir = filepath.Join(r.Root, filepath.FromSlash(task.Target))

	out, err := cmd.CombinedOutput()
	if err != nil {
		return domain.TaskResult{
			Success:  false,
			Duration: time.Since(start),
			Error:    err.Error() + ": " + string(out),
		}
	}
	return domain.TaskResult{
		Success:  true,
		Duration: time.Since(start),
	}
}
