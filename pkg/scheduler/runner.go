package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a function run on a fixed interval.
type Task struct {
	Name     string
	Interval time.Duration
	Fn       func(context.Context) error
}

// Runner runs periodic tasks in-process until stopped.
type Runner struct {
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []Task
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a Runner. A nil logger uses slog.Default.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// AddTask registers a task. Tasks added after Start are not run.
func (r *Runner) AddTask(name string, interval time.Duration, fn func(context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = append(r.tasks, Task{Name: name, Interval: interval, Fn: fn})
}

// Start launches one goroutine per task.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	for _, task := range r.tasks {
		r.wg.Add(1)
		go r.run(ctx, task)
	}
	r.logger.Info("runner started", "tasks", len(r.tasks))
}

// Stop cancels every task and waits for in-flight runs to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.running = false
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("runner stopped")
}

func (r *Runner) run(ctx context.Context, task Task) {
	defer r.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		if err := task.Fn(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("task failed", "task", task.Name, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
