package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/monobuild/internal/domain"
)

func mustAdd(t *testing.T, e *Executor, tasks ...domain.BuildTask) {
	t.Helper()
	for _, task := range tasks {
		if err := e.Add(task); err != nil {
			t.Fatalf("Add(%s) failed: %v", task.ID, err)
		}
	}
}

// recordingRunner notes the order tasks start in and succeeds or fails
// based on the fail set.
type recordingRunner struct {
	mu      sync.Mutex
	started []string
	fail    map[string]bool
}

func (r *recordingRunner) Execute(_ context.Context, task domain.BuildTask) domain.TaskResult {
	r.mu.Lock()
	r.started = append(r.started, task.ID)
	r.mu.Unlock()

	if r.fail[task.ID] {
		return domain.TaskResult{Success: false, Error: "build failed"}
	}
	return domain.TaskResult{Success: true}
}

func (r *recordingRunner) startIndex(t *testing.T, id string) int {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, got := range r.started {
		if got == id {
			return i
		}
	}
	t.Fatalf("task %s never started", id)
	return -1
}

func resultByID(t *testing.T, results []domain.TaskResult, id string) domain.TaskResult {
	t.Helper()
	for _, res := range results {
		if res.TaskID == id {
			return res
		}
	}
	t.Fatalf("no result for task %s", id)
	return domain.TaskResult{}
}

func TestExecuteEmpty(t *testing.T) {
	results, err := New(4).Execute(context.Background(), &recordingRunner{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results for empty task set", len(results))
	}
}

func TestExecuteDependencyOrder(t *testing.T) {
	e := New(4)
	mustAdd(t, e,
		domain.BuildTask{ID: "apps/web", Target: "apps/web", Dependencies: []string{"libs/core", "libs/ui"}},
		domain.BuildTask{ID: "libs/core", Target: "libs/core"},
		domain.BuildTask{ID: "libs/ui", Target: "libs/ui", Dependencies: []string{"libs/core"}},
	)

	r := &recordingRunner{}
	results, err := e.Execute(context.Background(), r)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, res := range results {
		if !res.Success {
			t.Errorf("task %s failed: %s", res.TaskID, res.Error)
		}
	}

	core := r.startIndex(t, "libs/core")
	ui := r.startIndex(t, "libs/ui")
	web := r.startIndex(t, "apps/web")
	if core > ui || ui > web {
		t.Errorf("start order violates dependencies: core=%d ui=%d web=%d", core, ui, web)
	}
}

func TestExecuteDiamond(t *testing.T) {
	e := New(4)
	mustAdd(t, e,
		domain.BuildTask{ID: "base"},
		domain.BuildTask{ID: "left", Dependencies: []string{"base"}},
		domain.BuildTask{ID: "right", Dependencies: []string{"base"}},
		domain.BuildTask{ID: "top", Dependencies: []string{"left", "right"}},
	)

	r := &recordingRunner{}
	results, err := e.Execute(context.Background(), r)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	base := r.startIndex(t, "base")
	top := r.startIndex(t, "top")
	if base > r.startIndex(t, "left") || base > r.startIndex(t, "right") {
		t.Error("base did not start before its dependents")
	}
	if top != 3 {
		t.Errorf("top started at index %d, want last", top)
	}
}

func TestExecuteBoundedConcurrency(t *testing.T) {
	const limit = 3
	e := New(limit)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		mustAdd(t, e, domain.BuildTask{ID: id})
	}

	var inFlight, peak atomic.Int32
	runner := RunnerFunc(func(_ context.Context, _ domain.BuildTask) domain.TaskResult {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return domain.TaskResult{Success: true}
	})

	results, err := e.Execute(context.Background(), runner)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}
	if got := peak.Load(); got > limit {
		t.Errorf("observed %d concurrent tasks, limit is %d", got, limit)
	}
}

func TestExecuteFailurePropagation(t *testing.T) {
	e := New(4)
	mustAdd(t, e,
		domain.BuildTask{ID: "libs/core"},
		domain.BuildTask{ID: "libs/ui", Dependencies: []string{"libs/core"}},
		domain.BuildTask{ID: "apps/web", Dependencies: []string{"libs/ui"}},
		domain.BuildTask{ID: "apps/docs"},
	)

	r := &recordingRunner{fail: map[string]bool{"libs/core": true}}
	results, err := e.Execute(context.Background(), r)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want one per task", len(results))
	}

	seen := make(map[string]bool)
	for _, res := range results {
		if seen[res.TaskID] {
			t.Errorf("duplicate result for task %s", res.TaskID)
		}
		seen[res.TaskID] = true
	}

	if res := resultByID(t, results, "libs/core"); res.Success || res.Error != "build failed" {
		t.Errorf("libs/core result = %+v", res)
	}
	if res := resultByID(t, results, "libs/ui"); res.Success || res.Error != "dependency libs/core failed" {
		t.Errorf("libs/ui result = %+v", res)
	}
	if res := resultByID(t, results, "apps/web"); res.Success || res.Error != "dependency libs/ui failed" {
		t.Errorf("apps/web result = %+v", res)
	}
	if res := resultByID(t, results, "apps/docs"); !res.Success {
		t.Errorf("independent task failed: %+v", res)
	}

	// Neither dependent of the failure may have been dispatched.
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.started {
		if id == "libs/ui" || id == "apps/web" {
			t.Errorf("task %s was dispatched despite a failed dependency", id)
		}
	}
}

func TestExecuteUnknownDependency(t *testing.T) {
	e := New(4)
	mustAdd(t, e, domain.BuildTask{ID: "apps/web", Dependencies: []string{"libs/missing"}})

	r := &recordingRunner{}
	results, err := e.Execute(context.Background(), r)
	if !errors.Is(err, domain.ErrUnknownDependency) {
		t.Fatalf("Execute error = %v, want ErrUnknownDependency", err)
	}
	if results != nil {
		t.Errorf("got results %v before validation failure", results)
	}
	if len(r.started) != 0 {
		t.Error("tasks were dispatched despite invalid input")
	}
}

func TestExecuteCycle(t *testing.T) {
	e := New(4)
	mustAdd(t, e,
		domain.BuildTask{ID: "a", Dependencies: []string{"b"}},
		domain.BuildTask{ID: "b", Dependencies: []string{"a"}},
	)

	_, err := e.Execute(context.Background(), &recordingRunner{})
	if !errors.Is(err, domain.ErrCyclicDependency) {
		t.Fatalf("Execute error = %v, want ErrCyclicDependency", err)
	}
}

func TestExecutePartialCycle(t *testing.T) {
	e := New(4)
	mustAdd(t, e,
		domain.BuildTask{ID: "free"},
		domain.BuildTask{ID: "a", Dependencies: []string{"b"}},
		domain.BuildTask{ID: "b", Dependencies: []string{"a"}},
	)

	_, err := e.Execute(context.Background(), &recordingRunner{})
	if !errors.Is(err, domain.ErrCyclicDependency) {
		t.Fatalf("Execute error = %v, want ErrCyclicDependency", err)
	}
}

func TestExecuteTwice(t *testing.T) {
	e := New(4)
	mustAdd(t, e, domain.BuildTask{ID: "a"})

	if _, err := e.Execute(context.Background(), &recordingRunner{}); err != nil {
		t.Fatalf("first Execute failed: %v", err)
	}
	_, err := e.Execute(context.Background(), &recordingRunner{})
	if !errors.Is(err, domain.ErrAlreadyExecuted) {
		t.Fatalf("second Execute error = %v, want ErrAlreadyExecuted", err)
	}
}

func TestExecuteDuplicateTaskID(t *testing.T) {
	e := New(4)
	if err := e.Add(domain.BuildTask{ID: "a"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := e.Add(domain.BuildTask{ID: "a"}); err == nil {
		t.Error("Add accepted a duplicate task id")
	}
	if err := e.Add(domain.BuildTask{}); err == nil {
		t.Error("Add accepted an empty task id")
	}
}

func TestExecuteCancellation(t *testing.T) {
	e := New(1)
	mustAdd(t, e,
		domain.BuildTask{ID: "first"},
		domain.BuildTask{ID: "second", Dependencies: []string{"first"}},
		domain.BuildTask{ID: "third", Dependencies: []string{"second"}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	runner := RunnerFunc(func(ctx context.Context, task domain.BuildTask) domain.TaskResult {
		if task.ID == "first" {
			cancel()
			<-ctx.Done()
			// Linger so the scheduler observes the cancellation before
			// this completion arrives.
			time.Sleep(50 * time.Millisecond)
			return domain.TaskResult{Success: false, Error: ctx.Err().Error()}
		}
		return domain.TaskResult{Success: true}
	})

	results, err := e.Execute(ctx, runner)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute error = %v, want context.Canceled", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want one per task", len(results))
	}
	for _, res := range results {
		if res.Success {
			t.Errorf("task %s succeeded after cancellation", res.TaskID)
		}
	}
}
