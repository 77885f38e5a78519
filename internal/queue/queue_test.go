package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codesummary/internal/gate"
	"codesummary/internal/retry"
	"codesummary/internal/tree"
)

func makeTasks(n int) []Task {
	tasks := make([]Task, 0, n)
	for i := 0; i < n; i++ {
		rel := fmt.Sprintf("pkg/f%02d.py", i)
		tasks = append(tasks, NewTask(tree.NewFile("/src/"+rel, rel, 2)))
	}
	return tasks
}

func TestProcessAllRunsEveryTaskUnderGate(t *testing.T) {
	g := gate.New(3)
	var running, peak atomic.Int64
	exec := func(ctx context.Context, task Task) (string, error) {
		current := running.Add(1)
		for {
			p := peak.Load()
			if current <= p || peak.CompareAndSwap(p, current) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return "summary of " + task.Node.Name, nil
	}
	q := New(g, 8, exec, nil)

	var mu sync.Mutex
	completed := map[string]bool{}
	q.SetCallbacks(nil, func(ctx context.Context, result Result) error {
		mu.Lock()
		defer mu.Unlock()
		completed[result.Task.Node.Key()] = result.Success
		return nil
	})
	q.SubmitBatch(makeTasks(12)...)
	if q.Pending() != 12 {
		t.Fatalf("Pending = %d", q.Pending())
	}

	results := q.ProcessAll(context.Background())
	if len(results) != 12 || len(completed) != 12 {
		t.Fatalf("expected 12 results and callbacks, got %d/%d", len(results), len(completed))
	}
	for key, ok := range completed {
		if !ok {
			t.Fatalf("%s failed", key)
		}
	}
	if peak.Load() > 3 || g.Peak() > 3 {
		t.Fatalf("gate bound exceeded: exec peak %d gate peak %d", peak.Load(), g.Peak())
	}
	if g.Total() != 12 {
		t.Fatalf("unexpected gate accounting total=%d", g.Total())
	}
	if q.Pending() != 0 {
		t.Fatalf("queue not drained: pending=%d", q.Pending())
	}
	q.SubmitBatch(makeTasks(2)...)
	q.Reset()
	if q.Pending() != 0 || len(q.ProcessAll(context.Background())) != 0 {
		t.Fatal("Reset should drop queued tasks")
	}
}

func TestEmptyOutputIsFailure(t *testing.T) {
	q := New(gate.New(1), 1, func(context.Context, Task) (string, error) { return "  \n", nil }, nil)
	q.SubmitBatch(makeTasks(1)...)
	results := q.ProcessAll(context.Background())
	if len(results) != 1 || results[0].Success || !errors.Is(results[0].Err, retry.ErrEmptyOutput) {
		t.Fatalf("unexpected result %+v", results)
	}
}

func TestCallbackFailuresDoNotStopBatch(t *testing.T) {
	q := New(gate.New(2), 2, func(_ context.Context, task Task) (string, error) { return "ok", nil }, nil)
	var calls atomic.Int64
	q.SetCallbacks(nil, func(_ context.Context, result Result) error {
		n := calls.Add(1)
		switch n {
		case 1:
			panic("bad callback")
		case 2:
			return errors.New("save failed")
		}
		return nil
	})
	q.SubmitBatch(makeTasks(5)...)
	results := q.ProcessAll(context.Background())
	if len(results) != 5 || calls.Load() != 5 {
		t.Fatalf("expected all tasks to finish, results=%d calls=%d", len(results), calls.Load())
	}
}

func TestExhaustedErrorRecordsRetries(t *testing.T) {
	exhausted := &retry.ExhaustedError{Op: "analyze", Attempts: 4, Err: errors.New("503")}
	q := New(gate.New(1), 1, func(context.Context, Task) (string, error) { return "", exhausted }, nil)
	q.SubmitBatch(makeTasks(1)...)
	results := q.ProcessAll(context.Background())
	if results[0].Success || results[0].Task.Retries != 3 {
		t.Fatalf("unexpected result %+v", results[0])
	}
}

func TestCancelledContextSkipsWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var executed atomic.Int64
	q := New(gate.New(2), 2, func(context.Context, Task) (string, error) {
		executed.Add(1)
		return "ok", nil
	}, nil)
	var callbacks atomic.Int64
	q.SetCallbacks(nil, func(context.Context, Result) error {
		callbacks.Add(1)
		return nil
	})
	q.SubmitBatch(makeTasks(4)...)
	results := q.ProcessAll(ctx)
	if len(results) != 4 || executed.Load() != 0 || callbacks.Load() != 0 {
		t.Fatalf("expected no work after cancel: results=%d executed=%d callbacks=%d", len(results), executed.Load(), callbacks.Load())
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Fatalf("expected context error, got %v", r.Err)
		}
	}
}

func TestStatusUpdates(t *testing.T) {
	q := New(gate.New(1), 1, func(context.Context, Task) (string, error) { return "ok", nil }, nil)
	var mu sync.Mutex
	var statuses []string
	q.SetCallbacks(func(node *tree.Node, status string) {
		mu.Lock()
		statuses = append(statuses, status)
		mu.Unlock()
	}, nil)
	q.SubmitBatch(makeTasks(1)...)
	q.ProcessAll(context.Background())
	if len(statuses) != 2 || statuses[0] != "waiting" || statuses[1] != "analyzing" {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}

func TestProcessAllEmpty(t *testing.T) {
	q := New(gate.New(1), 1, nil, nil)
	if results := q.ProcessAll(context.Background()); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}
