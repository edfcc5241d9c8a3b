package domain

import "time"

// TaskState is the lifecycle state of a task in the executor.
type TaskState int

const (
	// TaskStatePending means the task is waiting for dependencies.
	TaskStatePending TaskState = iota
	// TaskStateReady means all dependencies completed; the task can be dispatched.
	TaskStateReady
	// TaskStateRunning means the task is currently executing.
	TaskStateRunning
	// TaskStateCompleted means the task finished successfully.
	TaskStateCompleted
	// TaskStateFailed means the task failed, or a dependency of it failed.
	TaskStateFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskStatePending:
		return "PENDING"
	case TaskStateReady:
		return "READY"
	case TaskStateRunning:
		return "RUNNING"
	case TaskStateCompleted:
		return "COMPLETED"
	case TaskStateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the state is final.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// BuildTask is a unit of work submitted to the executor.
type BuildTask struct {
	// ID is unique within one executor run.
	ID string

	// Target is the workspace package to build, e.g. "apps/web".
	Target string

	// Metadata is an opaque caller-supplied string carried through to the
	// build function, typically the runtime channel.
	Metadata string

	// Dependencies are IDs of other tasks in the same set that must
	// complete before this task may run.
	Dependencies []string
}

// TaskResult is the outcome of a single task. Exactly one is produced for
// every task that reaches a terminal state.
type TaskResult struct {
	TaskID   string        `json:"taskId"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
	// Error is empty on success.
	Error string `json:"error,omitempty"`
	// CacheHit is true when the result was served from the cache without
	// invoking the build function.
	CacheHit bool `json:"cacheHit,omitempty"`
}
