package task

import (
	"context"
	"fmt"

	"github.com/vk/depsched/internal/future"
)

// This file is the scheduler-facing side of a task: bind bookkeeping, state
// transitions, functor invocation, and completion accounting. Callers other
// than the scheduler should not use these methods.

// StampBind marks the task as visited by the bind pass with the given epoch.
// Called under the scheduler's lock.
func (t *Task) StampBind(epoch uint64) {
	t.bindEpoch = epoch
}

// BindEpoch returns the epoch of the most recent bind pass that visited the
// task. Only meaningful under the scheduler's lock.
func (t *Task) BindEpoch() uint64 {
	return t.bindEpoch
}

// OnStack reports whether the task is on the bind pass's traversal stack.
func (t *Task) OnStack() bool {
	return t.onStack
}

// SetOnStack marks or clears the task's transient cycle-detection flag.
func (t *Task) SetOnStack(v bool) {
	t.onStack = v
}

// Bind commits the task into root's subgraph: it records the non-owning root
// reference and the resolved in-subgraph neighbor sets, and initializes both
// wait counters from their sizes. Called under the scheduler's lock, only on
// idle tasks.
func (t *Task) Bind(rootID string, up, down []*Task) {
	t.rootID = rootID
	t.boundUp = up
	t.boundDown = down
	t.upWaitInit = int32(len(up))
	t.downWaitInit = int32(len(down))
	t.upWait.reset(t.upWaitInit)
	t.downWait.reset(t.downWaitInit)
}

// RootID returns the identifier of the root task of the current enqueue
// operation, or "" when the task is not bound.
func (t *Task) RootID() string {
	return t.rootID
}

// BoundUpstream returns the task's upstream neighbors within the bound
// subgraph. Valid only while the subgraph is active.
func (t *Task) BoundUpstream() []*Task {
	return t.boundUp
}

// BoundDownstream returns the task's in-subgraph downstream neighbors.
func (t *Task) BoundDownstream() []*Task {
	return t.boundDown
}

// PendingUpstream returns the number of upstream tasks not yet completed.
func (t *Task) PendingUpstream() int32 {
	return t.upWait.pending()
}

// PendingDownstream returns the number of in-subgraph dependents not yet
// completed.
func (t *Task) PendingDownstream() int32 {
	return t.downWait.pending()
}

// DownstreamDone records the completion of one in-subgraph dependent and
// reports whether the caller drove the gate to zero and must finalize the
// task.
func (t *Task) DownstreamDone() bool {
	return t.downWait.done()
}

// MarkQueued transitions Idle -> Queued during the bind submission pass.
func (t *Task) MarkQueued() bool {
	return t.state.CompareAndSwap(int32(Idle), int32(Queued))
}

// MarkWaitingUpstream transitions Idle -> WaitingUpstream during the bind
// submission pass.
func (t *Task) MarkWaitingUpstream() bool {
	return t.state.CompareAndSwap(int32(Idle), int32(WaitingUpstream))
}

// MarkExecuting transitions Queued -> Executing when a worker dequeues the
// task.
func (t *Task) MarkExecuting() bool {
	return t.state.CompareAndSwap(int32(Queued), int32(Executing))
}

// Invoke runs the functor on the calling worker thread and captures its
// result, error, or panic into the invocation's future. The owning-thread
// reference and cancellation token are installed for the duration of the
// call and cleared before the promise is completed, so a late Interrupt or
// SetPriority is dropped rather than delivered to a recycled thread.
// The returned error mirrors what was captured; it is for logging only.
func (t *Task) Invoke(ctx context.Context, th ExecThread) error {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	t.mu.Lock()
	t.thread = th
	t.cancel = cancel
	nice := t.priority
	promise := t.promise
	t.mu.Unlock()

	if th != nil && nice != 0 {
		_ = th.SetPriority(nice)
	}

	var (
		value any
		err   error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %s panicked: %v", t.id, r)
			}
		}()
		value, err = t.fn(runCtx)
	}()

	t.mu.Lock()
	// restore priority to keep it task-local
	if t.thread != nil {
		_ = t.thread.ResetPriority()
	}
	t.thread = nil
	t.cancel = nil
	t.mu.Unlock()

	promise.Complete(value, err)
	return err
}

// FailInvocation completes the invocation's future with err without running
// the functor. Used when submission to the worker pool fails; the caller is
// expected to run the normal completion accounting afterwards so wait
// counters stay consistent.
func (t *Task) FailInvocation(err error) {
	t.mu.Lock()
	promise := t.promise
	t.mu.Unlock()
	t.state.CompareAndSwap(int32(Queued), int32(Executing))
	promise.Complete(nil, err)
}

// CompleteDownstream performs the completion accounting for a task whose
// functor has returned: it transitions Executing -> WaitingDownstream,
// decrements each in-subgraph dependent's upstream gate, and hands every
// dependent that reached zero to submit after transitioning it
// WaitingUpstream -> Queued. When the task has no in-subgraph dependents it
// finalizes immediately instead of waiting.
//
// The downstream decrements and the state transition share one critical
// section on t.mu. That ordering is load-bearing: a dependent submitted here
// can only observe this task after it has left Executing, so a dependent
// completing on another worker can never try to finalize a task that is
// still mid-completion.
func (t *Task) CompleteDownstream(submit func(*Task)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Store(int32(WaitingDownstream))
	for _, d := range t.boundDown {
		if d.upWait.done() {
			d.state.CompareAndSwap(int32(WaitingUpstream), int32(Queued))
			submit(d)
		}
	}
	if t.downWaitInit == 0 {
		t.finalizeLocked()
	}
}

// Finalize returns the task to Idle once every in-subgraph dependent has
// completed. Called by the dependent whose completion drove the downstream
// gate to zero.
func (t *Task) Finalize() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finalizeLocked()
}

func (t *Task) finalizeLocked() {
	t.upWait.reset(t.upWaitInit)
	t.downWait.reset(t.downWaitInit)
	t.rootID = ""
	t.boundUp = nil
	t.boundDown = nil
	t.promise = future.NewPromise()
	t.retrieved = false
	t.state.Store(int32(Idle))
}
