// Package executor runs build tasks in dependency order with bounded
// parallelism. All lifecycle state lives in the Execute loop; worker
// goroutines only run the task and report the result back on a channel,
// so no state is shared under a lock.
package executor

import (
	"context"
	"fmt"
	"runtime"

	"github.com/example/monobuild/internal/domain"
)

// DefaultParallelism is the worker limit used when none is configured.
func DefaultParallelism() int {
	return runtime.NumCPU()
}

// Executor schedules a set of tasks. Tasks are added up front with Add;
// Execute then runs the whole set once. An Executor is single-use.
type Executor struct {
	maxParallel int
	tasks       map[string]domain.BuildTask
	order       []string
	executed    bool
}

// New creates an executor running at most maxParallel tasks concurrently.
// Values <= 0 fall back to DefaultParallelism.
func New(maxParallel int) *Executor {
	if maxParallel <= 0 {
		maxParallel = DefaultParallelism()
	}
	return &Executor{
		maxParallel: maxParallel,
		tasks:       make(map[string]domain.BuildTask),
	}
}

// Add registers a task. Task IDs must be unique within one executor.
func (e *Executor) Add(task domain.BuildTask) error {
	if task.ID == "" {
		return fmt.Errorf("task id must not be empty")
	}
	if _, ok := e.tasks[task.ID]; ok {
		return fmt.Errorf("duplicate task id %q", task.ID)
	}
	e.tasks[task.ID] = task
	e.order = append(e.order, task.ID)
	return nil
}

// Execute runs every added task, respecting dependencies, and returns one
// result per task in insertion order. A failed task never stops independent
// tasks, but every transitive dependent of a failure is marked failed
// without being dispatched. Execute returns an error only for invalid input,
// a second call, or context cancellation; per-task failures are reported in
// the results.
func (e *Executor) Execute(ctx context.Context, runner Runner) ([]domain.TaskResult, error) {
	if e.executed {
		return nil, domain.ErrAlreadyExecuted
	}
	e.executed = true

	if len(e.tasks) == 0 {
		return nil, nil
	}

	// Reject tasks whose dependency never arrives before running anything.
	for _, id := range e.order {
		for _, dep := range e.tasks[id].Dependencies {
			if _, ok := e.tasks[dep]; !ok {
				return nil, fmt.Errorf("task %s: %w: %s", id, domain.ErrUnknownDependency, dep)
			}
		}
	}

	// Reverse dependency map and per-task remaining counts.
	dependents := make(map[string][]string, len(e.tasks))
	remaining := make(map[string]int, len(e.tasks))
	states := make(map[string]domain.TaskState, len(e.tasks))
	for _, id := range e.order {
		task := e.tasks[id]
		remaining[id] = len(task.Dependencies)
		states[id] = domain.TaskStatePending
		for _, dep := range task.Dependencies {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	// Insertion order keeps the ready queue, and therefore dispatch order
	// under equal readiness, deterministic.
	var readyQueue []string
	for _, id := range e.order {
		if remaining[id] == 0 {
			states[id] = domain.TaskStateReady
			readyQueue = append(readyQueue, id)
		}
	}
	if len(readyQueue) == 0 {
		return nil, fmt.Errorf("%w: no task is free of dependencies", domain.ErrCyclicDependency)
	}

	completions := make(chan domain.TaskResult)
	results := make(map[string]domain.TaskResult, len(e.tasks))
	running := 0
	terminal := 0

	dispatch := func() {
		for running < e.maxParallel && len(readyQueue) > 0 {
			id := readyQueue[0]
			readyQueue = readyQueue[1:]
			states[id] = domain.TaskStateRunning
			running++

			task := e.tasks[id]
			go func() {
				result := runner.Execute(ctx, task)
				result.TaskID = task.ID
				completions <- result
			}()
		}
	}

	// failDependents marks every not-yet-dispatched transitive dependent of
	// cause as failed. Running tasks keep running; their own results arrive
	// on the completions channel.
	var failDependents func(cause string)
	failDependents = func(cause string) {
		for _, id := range dependents[cause] {
			if states[id] != domain.TaskStatePending {
				continue
			}
			states[id] = domain.TaskStateFailed
			terminal++
			results[id] = domain.TaskResult{
				TaskID:  id,
				Success: false,
				Error:   fmt.Sprintf("dependency %s failed", cause),
			}
			failDependents(id)
		}
	}

	settle := func(res domain.TaskResult) {
		running--
		terminal++
		results[res.TaskID] = res

		if res.Success {
			states[res.TaskID] = domain.TaskStateCompleted
			for _, id := range dependents[res.TaskID] {
				remaining[id]--
				if remaining[id] == 0 && states[id] == domain.TaskStatePending {
					states[id] = domain.TaskStateReady
					readyQueue = append(readyQueue, id)
				}
			}
		} else {
			states[res.TaskID] = domain.TaskStateFailed
			failDependents(res.TaskID)
		}
	}

	dispatch()

	for terminal < len(e.tasks) {
		// A stall with nothing running and nothing ready means the
		// remaining tasks form a cycle.
		if running == 0 && len(readyQueue) == 0 {
			return nil, fmt.Errorf("%w: remaining tasks cannot make progress", domain.ErrCyclicDependency)
		}

		select {
		case <-ctx.Done():
			// Fail everything not yet dispatched, then wait for in-flight
			// tasks so every task still gets exactly one result.
			for _, id := range e.order {
				if states[id] == domain.TaskStatePending || states[id] == domain.TaskStateReady {
					states[id] = domain.TaskStateFailed
					terminal++
					results[id] = domain.TaskResult{
						TaskID:  id,
						Success: false,
						Error:   ctx.Err().Error(),
					}
				}
			}
			for running > 0 {
				res := <-completions
				running--
				terminal++
				results[res.TaskID] = res
				if res.Success {
					states[res.TaskID] = domain.TaskStateCompleted
				} else {
					states[res.TaskID] = domain.TaskStateFailed
				}
			}
			return e.collect(results), ctx.Err()

		case res := <-completions:
			settle(res)
			dispatch()
		}
	}

	return e.collect(results), nil
}

// collect orders the result map by task insertion order.
func (e *Executor) collect(results map[string]domain.TaskResult) []domain.TaskResult {
	out := make([]domain.TaskResult, 0, len(results))
	for _, id := range e.order {
		if res, ok := results[id]; ok {
			out = append(out, res)
		}
	}
	return out
}
