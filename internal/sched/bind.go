package sched

import (
	"context"
	"fmt"

	"github.com/vk/depsched/internal/ctxlog"
	"github.com/vk/depsched/internal/task"
)

// bindFrame is one entry of the scheduler-owned traversal stack used during
// the lock-held bind pass.
type bindFrame struct {
	t    *task.Task
	ups  []*task.Task
	next int
}

// Enqueue schedules root and its upstream closure for execution.
//
// Under the scheduler lock it performs a bind pass (depth-first traversal
// over upstream edges stamping a fresh bind epoch, detecting cycles via the
// transient on-stack flag, and rejecting active tasks) followed by a commit:
// wait counters are initialized from in-subgraph neighbor counts and every
// task with no pending upstream is submitted to the worker pool, the rest
// parked waiting. A detected cycle or active upstream aborts the enqueue
// before any counter, state, or root reference is mutated.
//
// ctx is the base context for every functor invocation of this subgraph and
// carries the logger.
//
// Errors: ErrNotRegistered, ErrTaskActive, ErrCyclicDependency, and
// pool.ErrClosed when submission fails because the pool shut down. In the
// pool-closed case tasks already submitted continue; the affected tasks fail
// their futures with the error and the subgraph unwinds cleanly.
func (s *Scheduler) Enqueue(ctx context.Context, root *task.Task) error {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.graph.Contains(root) {
		return fmt.Errorf("enqueue %s: %w", root.ID(), ErrNotRegistered)
	}
	if root.IsActive() {
		return fmt.Errorf("enqueue %s: %w", root.ID(), ErrTaskActive)
	}

	// A fresh epoch per attempt; stamps left behind by an aborted pass can
	// never match a later epoch, so they need no rollback.
	s.epoch++
	logger.Debug("binding root and its upstream closure", "root", root.ID(), "epoch", s.epoch)

	bound, err := s.collect(root)
	if err != nil {
		return err
	}

	// Commit: counters, root back-reference, bound neighbor sets.
	for _, t := range bound {
		up := s.graph.UpstreamOf(t)
		var down []*task.Task
		for _, d := range s.graph.DownstreamOf(t) {
			// Dependents outside the bound subgraph are not waited on.
			if d.BindEpoch() == s.epoch {
				down = append(down, d)
			}
		}
		t.Bind(root.ID(), up, down)
	}

	// State pass before any submission: every bound task must have left Idle
	// before the first functor can complete and start decrementing gates.
	ready := make([]*task.Task, 0, len(bound))
	for _, t := range bound {
		if t.PendingUpstream() == 0 {
			t.MarkQueued()
			ready = append(ready, t)
		} else {
			t.MarkWaitingUpstream()
		}
	}
	logger.Debug("subgraph bound", "root", root.ID(), "tasks", len(bound), "ready", len(ready))

	var submitErr error
	for _, t := range ready {
		if err := s.pool.Submit(s.runnable(ctx, t)); err != nil {
			logger.Error("submitting task failed", "task", t.ID(), "error", err)
			t.FailInvocation(fmt.Errorf("task %s: %w", t.ID(), err))
			s.finish(ctx, t)
			if submitErr == nil {
				submitErr = err
			}
		}
	}
	if submitErr != nil {
		return fmt.Errorf("enqueue %s: %w", root.ID(), submitErr)
	}
	return nil
}

// collect walks the upstream closure of root with the scheduler's traversal
// stack, stamping the current epoch and validating as it goes. On failure it
// clears the transient on-stack flags and reports the violation with no
// other state touched.
func (s *Scheduler) collect(root *task.Task) ([]*task.Task, error) {
	var bound []*task.Task

	fail := func(err error) ([]*task.Task, error) {
		for _, t := range bound {
			t.SetOnStack(false)
		}
		return nil, err
	}

	push := func(t *task.Task) {
		t.StampBind(s.epoch)
		t.SetOnStack(true)
		bound = append(bound, t)
		s.stack = append(s.stack, bindFrame{t: t, ups: s.graph.UpstreamOf(t)})
	}

	s.stack = s.stack[:0]
	push(root)
	for len(s.stack) > 0 {
		f := &s.stack[len(s.stack)-1]
		if f.next == len(f.ups) {
			f.t.SetOnStack(false)
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		u := f.ups[f.next]
		f.next++

		if u.BindEpoch() == s.epoch {
			if u.OnStack() {
				return fail(fmt.Errorf("enqueue %s: %w: %s -> %s", root.ID(), ErrCyclicDependency, f.t.ID(), u.ID()))
			}
			// Already visited through another dependent.
			continue
		}
		if u.IsActive() {
			return fail(fmt.Errorf("enqueue %s: upstream %s: %w", root.ID(), u.ID(), ErrTaskActive))
		}
		push(u)
	}
	return bound, nil
}
