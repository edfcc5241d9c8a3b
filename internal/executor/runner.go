package executor

import (
	"context"

	"github.com/example/monobuild/internal/domain"
)

// Runner executes a single build task. Implementations are called from
// worker goroutines and must be safe for concurrent use.
type Runner interface {
	Execute(ctx context.Context, task domain.BuildTask) domain.TaskResult
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, task domain.BuildTask) domain.TaskResult

// Execute calls f.
func (f RunnerFunc) Execute(ctx context.Context, task domain.BuildTask) domain.TaskResult {
	return f(ctx, task)
}
