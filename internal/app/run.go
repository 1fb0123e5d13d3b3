package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/depsched/internal/config"
	"github.com/vk/depsched/internal/ctxlog"
	"github.com/vk/depsched/internal/pool"
	"github.com/vk/depsched/internal/sched"
	"github.com/vk/depsched/internal/task"
)

// taskRecord captures one task's outcome for the run summary. Fields are
// written from worker goroutines before the task's promise completes, so a
// read after the owning root's future is ready is safe.
type taskRecord struct {
	spec     *config.TaskSpec
	task     *task.Task
	ran      bool
	duration time.Duration
	err      error
}

// Run materializes the plan as scheduler tasks, enqueues the roots in order,
// waits for their futures, and reports the outcome. It returns the first
// root-level failure.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	p := pool.NewWithLogger(a.config.WorkerCount, a.logger)
	defer p.Shutdown()
	s := sched.New(p)

	records, err := a.buildTasks(s)
	if err != nil {
		return err
	}
	defer func() {
		for _, rec := range records {
			if !rec.task.IsActive() {
				_ = s.Unregister(rec.task)
			}
		}
	}()

	var firstErr error
	for _, rootName := range a.model.RootNames() {
		rec := records[rootName]
		fut, err := rec.task.Future()
		if err != nil {
			return fmt.Errorf("root %s: %w", rootName, err)
		}

		a.logger.Info("enqueueing root", "root", rootName)
		if err := a.enqueueWithRetry(ctx, s, rec.task); err != nil {
			return fmt.Errorf("root %s: %w", rootName, err)
		}
		if err := fut.Wait(ctx); err != nil {
			return fmt.Errorf("root %s: %w", rootName, err)
		}
		if _, err := fut.Value(); err != nil {
			a.logger.Error("root failed", "root", rootName, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("root %s: %w", rootName, err)
			}
		} else {
			a.logger.Info("root completed", "root", rootName)
		}
	}

	if a.config.Summary {
		a.writeSummary(records)
	}
	return firstErr
}

// buildTasks creates a scheduler task per plan spec, wires dependency edges,
// and registers everything. Edges must be wired before registration since
// structural edits are frozen on registered tasks.
func (a *App) buildTasks(s *sched.Scheduler) (map[string]*taskRecord, error) {
	records := make(map[string]*taskRecord, len(a.model.Tasks))
	for _, spec := range a.model.Tasks {
		fn, err := a.registry.Build(spec)
		if err != nil {
			return nil, err
		}
		rec := &taskRecord{spec: spec}
		rec.task = task.New(a.instrument(rec, fn), task.WithID(spec.Name), task.WithPriority(spec.Priority))
		records[spec.Name] = rec
	}

	for _, spec := range a.model.Tasks {
		rec := records[spec.Name]
		for _, dep := range spec.DependsOn {
			if err := rec.task.Deps().Add(records[dep].task); err != nil {
				return nil, fmt.Errorf("task %s: %w", spec.Name, err)
			}
		}
	}

	for _, spec := range a.model.Tasks {
		if err := s.Register(records[spec.Name].task); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// instrument wraps a functor to record its outcome for the summary.
func (a *App) instrument(rec *taskRecord, fn task.Func) task.Func {
	return func(ctx context.Context) (any, error) {
		start := time.Now()
		value, err := fn(ctx)
		rec.ran = true
		rec.duration = time.Since(start)
		rec.err = err
		return value, err
	}
}

// enqueueWithRetry retries briefly on ErrTaskActive: a previous root's
// interior tasks finalize moments after the root's future is ready, so two
// roots sharing upstream tasks can race the handover.
func (a *App) enqueueWithRetry(ctx context.Context, s *sched.Scheduler, root *task.Task) error {
	const retryFor = 2 * time.Second
	deadline := time.Now().Add(retryFor)
	for {
		err := s.Enqueue(ctx, root)
		if err == nil || !errors.Is(err, sched.ErrTaskActive) || time.Now().After(deadline) {
			return err
		}
		a.logger.Debug("subgraph still settling, retrying enqueue", "root", root.ID())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}
