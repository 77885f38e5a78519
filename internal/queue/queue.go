package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"codesummary/internal/gate"
	"codesummary/internal/logging"
	"codesummary/internal/retry"
	"codesummary/internal/tree"
)

// Task is one file awaiting analysis.
type Task struct {
	Node     *tree.Node
	Priority int
	Retries  int
}

// NewTask builds a task prioritized by node depth.
func NewTask(node *tree.Node) Task {
	return Task{Node: node, Priority: node.Depth}
}

// Result is the outcome of one task.
type Result struct {
	Task    Task
	Success bool
	Content string
	Err     error
	Elapsed time.Duration
}

// Executor performs a task and returns the produced text.
type Executor func(ctx context.Context, task Task) (string, error)

// CompletionFunc receives every finished result.
type CompletionFunc func(ctx context.Context, result Result) error

// StatusFunc receives human-readable per-node status updates.
type StatusFunc func(node *tree.Node, status string)

// Queue is a level-scoped worker pool.
type Queue struct {
	gate          *gate.Gate
	maxConcurrent int
	execute       Executor
	logger        *slog.Logger

	onStatus   StatusFunc
	onComplete CompletionFunc

	mu      sync.Mutex
	pending []Task
}

// New constructs a queue. maxConcurrent bounds the number of workers.
func New(g *gate.Gate, maxConcurrent int, execute Executor, logger *slog.Logger) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Queue{
		gate:          g,
		maxConcurrent: maxConcurrent,
		execute:       execute,
		logger:        logging.NewComponentLogger(logger, "queue"),
	}
}

// SetCallbacks installs status and completion hooks. Either may be nil.
func (q *Queue) SetCallbacks(onStatus StatusFunc, onComplete CompletionFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onStatus = onStatus
	q.onComplete = onComplete
}

// SubmitBatch enqueues tasks.
func (q *Queue) SubmitBatch(tasks ...Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, tasks...)
}

// Pending returns the number of queued tasks not yet handed to a worker.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Reset drops queued tasks.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}

// ProcessAll drains the queue with min(maxConcurrent, queued) workers and
// returns the results of this batch. Tasks are handed out highest priority
// first, then by path. When ctx ends, tasks not yet started are dropped and
// reported with the context error; their callbacks are not invoked.
func (q *Queue) ProcessAll(ctx context.Context) []Result {
	q.mu.Lock()
	tasks := q.pending
	q.pending = nil
	onStatus := q.onStatus
	onComplete := q.onComplete
	q.mu.Unlock()

	if len(tasks) == 0 {
		return nil
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}
		return tasks[i].Node.RelPath < tasks[j].Node.RelPath
	})

	work := make(chan Task, len(tasks))
	for _, task := range tasks {
		work <- task
	}
	close(work)

	workers := min(q.maxConcurrent, len(tasks))
	q.logger.Debug("processing batch",
		logging.Int("tasks", len(tasks)),
		logging.Int("workers", workers),
	)

	batch := make([]Result, 0, len(tasks))
	var batchMu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range work {
				result := q.run(ctx, task, onStatus, onComplete)
				batchMu.Lock()
				batch = append(batch, result)
				batchMu.Unlock()
			}
		}()
	}
	wg.Wait()
	return batch
}

func (q *Queue) run(ctx context.Context, task Task, onStatus StatusFunc, onComplete CompletionFunc) Result {
	if err := ctx.Err(); err != nil {
		return Result{Task: task, Err: err}
	}
	notify(onStatus, task.Node, "waiting")
	start := time.Now()
	if err := q.gate.Acquire(ctx); err != nil {
		return Result{Task: task, Err: err, Elapsed: time.Since(start)}
	}
	notify(onStatus, task.Node, "analyzing")
	content, err := q.execute(ctx, task)
	q.gate.Release()

	if err == nil && strings.TrimSpace(content) == "" {
		err = retry.ErrEmptyOutput
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		task.Retries = exhausted.Attempts - 1
	}
	result := Result{
		Task:    task,
		Success: err == nil,
		Content: content,
		Err:     err,
		Elapsed: time.Since(start),
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return result
	}
	q.complete(ctx, result, onComplete)
	return result
}

func (q *Queue) complete(ctx context.Context, result Result, onComplete CompletionFunc) {
	if onComplete == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(q.logger, "completion callback panicked", "queue_callback_panic",
				logging.String(logging.FieldNode, result.Task.Node.Key()),
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldErrorHint, "report this as a bug"),
			)
		}
	}()
	if err := onComplete(ctx, result); err != nil {
		logging.WarnWithContext(q.logger, "completion callback failed", "queue_callback_failed",
			logging.String(logging.FieldNode, result.Task.Node.Key()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "result may not be persisted"),
		)
	}
}

func notify(fn StatusFunc, node *tree.Node, status string) {
	if fn != nil {
		fn(node, status)
	}
}
