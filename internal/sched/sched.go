// Package sched implements the dependency-graph scheduler: it owns the task
// graph and a worker pool reference, binds enqueue-time subgraphs, and keeps
// dependency order while maximizing parallelism among independent tasks.
package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/depsched/internal/ctxlog"
	"github.com/vk/depsched/internal/depgraph"
	"github.com/vk/depsched/internal/pool"
	"github.com/vk/depsched/internal/task"
)

var (
	// ErrNotRegistered is returned when an operation targets a task that is
	// not in the scheduler's graph.
	ErrNotRegistered = errors.New("depsched: task is not registered")
	// ErrTaskActive is returned when a task (or an upstream task) is already
	// part of an active subgraph, or when unregistering a live task.
	ErrTaskActive = errors.New("depsched: task is already active")
	// ErrCyclicDependency is returned when the bind pass detects a cycle in
	// the upstream closure.
	ErrCyclicDependency = errors.New("depsched: cyclic dependency detected")
)

// Scheduler serializes and parallelizes task execution given a dependency
// graph of tasks and a pool of worker threads. It never owns tasks outright;
// it references them through the graph, and task lifetimes belong to callers.
type Scheduler struct {
	pool *pool.Pool

	// mu guards the graph, the bind epoch, and the traversal stack. It is
	// held only during register, unregister, and the bind+initial-submission
	// portion of Enqueue; completion handling runs without it.
	mu    sync.Mutex
	graph *depgraph.Graph
	epoch uint64
	stack []bindFrame
}

// New creates a scheduler submitting to the given worker pool.
func New(p *pool.Pool) *Scheduler {
	return &Scheduler{pool: p, graph: depgraph.New()}
}

// Register links a task into the scheduler's dependency graph. It fails with
// depgraph.ErrDuplicateID when the id collides with a registered task. Tasks
// may be registered with several schedulers simultaneously.
func (s *Scheduler) Register(t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.graph.Insert(t); err != nil {
		return err
	}
	t.AddRegistration()
	return nil
}

// Unregister removes a task from the scheduler's graph. It fails with
// ErrNotRegistered when the task is absent and with ErrTaskActive when the
// task is part of an active subgraph.
func (s *Scheduler) Unregister(t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.graph.Contains(t) {
		return fmt.Errorf("unregister %s: %w", t.ID(), ErrNotRegistered)
	}
	if t.IsActive() {
		return fmt.Errorf("unregister %s: %w", t.ID(), ErrTaskActive)
	}
	s.graph.Remove(t)
	t.DropRegistration()
	return nil
}

// Registered reports whether the exact task is registered with this
// scheduler.
func (s *Scheduler) Registered(t *task.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Contains(t)
}

// runnable wraps a queued task for the worker pool. ctx is the enqueue
// context: it carries the logger and is the parent of the functor's
// cancellation token.
func (s *Scheduler) runnable(ctx context.Context, t *task.Task) pool.Runnable {
	return func(th *pool.Thread) {
		logger := ctxlog.FromContext(ctx).With("task", t.ID())
		if !t.MarkExecuting() {
			logger.Error("task state corrupt on dequeue", "state", t.State().String())
			return
		}
		logger.Debug("task executing", "workerID", th.ID())
		if err := t.Invoke(ctx, th); err != nil {
			logger.Debug("task functor failed", "error", err)
		} else {
			logger.Debug("task completed")
		}
		s.finish(ctx, t)
	}
}

// finish performs the post-execution accounting for t and for any dependent
// that could not be resubmitted because the pool shut down. It runs without
// the scheduler lock: only per-task atomics and per-task mutexes are touched,
// so concurrent completions of independent tasks never serialize globally.
func (s *Scheduler) finish(ctx context.Context, t *task.Task) {
	logger := ctxlog.FromContext(ctx)
	work := []*task.Task{t}
	for len(work) > 0 {
		cur := work[0]
		work = work[1:]

		// Upstream tasks wait on their dependents; the dependent whose
		// completion empties the gate finalizes them.
		for _, u := range cur.BoundUpstream() {
			if u.DownstreamDone() {
				logger.Debug("task finalized by dependent", "task", u.ID(), "dependent", cur.ID())
				u.Finalize()
			}
		}

		var unsubmitted []*task.Task
		cur.CompleteDownstream(func(d *task.Task) {
			if err := s.pool.Submit(s.runnable(ctx, d)); err != nil {
				logger.Error("resubmitting ready task failed", "task", d.ID(), "error", err)
				d.FailInvocation(fmt.Errorf("task %s: %w", d.ID(), err))
				unsubmitted = append(unsubmitted, d)
			} else {
				logger.Debug("task unlocked by completion", "task", d.ID(), "completed", cur.ID())
			}
		})
		// Aborted dependents still owe their own completion accounting,
		// processed outside cur's critical section to keep lock order
		// strictly upstream-to-downstream.
		work = append(work, unsubmitted...)
	}
}
