// Package task defines the schedulable unit of the dependency scheduler: a
// functor with identity, dependency-graph membership, a state machine, and
// the per-invocation plumbing (future, cancellation token, owning thread)
// that the scheduler drives.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vk/depsched/internal/future"
)

var (
	// ErrRegistered is returned for structural edits (id, dependency edges)
	// attempted while the task is registered with one or more schedulers.
	ErrRegistered = errors.New("depsched: task is registered; unregister before structural changes")
	// ErrInterrupted is the default cancellation cause delivered by Interrupt.
	ErrInterrupted = errors.New("depsched: task interrupted")
)

// Func is the unit of work a task executes. The context is derived from the
// enqueue context and is cancelled when the task is interrupted; functors
// observe cancellation cooperatively via ctx.Done() and context.Cause(ctx).
type Func func(ctx context.Context) (any, error)

// ExecThread is the handle to the worker thread currently executing a task.
// It routes live scheduling-priority changes to the underlying OS thread.
type ExecThread interface {
	// SetPriority applies a niceness value to the executing thread.
	SetPriority(nice int) error
	// ResetPriority restores the thread's base niceness.
	ResetPriority() error
}

// Task is a schedulable unit of work. The zero value is not usable; create
// tasks with New. All exported methods are safe for concurrent use unless
// noted otherwise.
type Task struct {
	fn Func

	// structural fields, frozen while regCount > 0
	id         string
	upstream   map[string]struct{}
	downstream map[string]struct{}

	state    atomic.Int32
	regCount atomic.Int32

	// mu guards the per-invocation fields below. It is distinct from the
	// scheduler's lock so unrelated tasks never contend.
	mu        sync.Mutex
	promise   *future.Promise
	retrieved bool
	cancel    context.CancelCauseFunc
	thread    ExecThread
	priority  int

	// bind state, written under the scheduler's lock during the bind pass
	// and read lock-free on completion paths. Valid only while the subgraph
	// is active.
	bindEpoch    uint64
	onStack      bool
	rootID       string
	boundUp      []*Task
	boundDown    []*Task
	upWaitInit   int32
	downWaitInit int32
	upWait       waitCount
	downWait     waitCount
}

// Option configures a task at construction time.
type Option func(*Task)

// WithID sets the task's identifier. Without it a random UUID is assigned.
func WithID(id string) Option {
	return func(t *Task) { t.id = id }
}

// WithPriority sets the task's execution niceness (see SetPriority).
func WithPriority(nice int) Option {
	return func(t *Task) { t.priority = nice }
}

// New creates an idle task that will run fn when scheduled.
func New(fn Func, opts ...Option) *Task {
	t := &Task{
		fn:         fn,
		upstream:   make(map[string]struct{}),
		downstream: make(map[string]struct{}),
		promise:    future.NewPromise(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.id == "" {
		t.id = uuid.NewString()
	}
	return t
}

// ID returns the task's identifier.
func (t *Task) ID() string {
	return t.id
}

// SetID changes the task's identifier. It fails with ErrRegistered while the
// task is registered with any scheduler.
func (t *Task) SetID(id string) error {
	if t.regCount.Load() > 0 {
		return fmt.Errorf("set id %q: %w", id, ErrRegistered)
	}
	t.id = id
	return nil
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	return State(t.state.Load())
}

// IsActive reports whether the task is part of an active subgraph (any state
// other than Idle).
func (t *Task) IsActive() bool {
	return t.State() != Idle
}

// Interrupt requests cooperative cancellation of the executing functor with
// the given reason. If the task is not currently executing the request is
// not deliverable and is dropped without error. A nil reason defaults to
// ErrInterrupted.
func (t *Task) Interrupt(reason error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil {
		return
	}
	if reason == nil {
		reason = ErrInterrupted
	}
	t.cancel(reason)
}

// SetPriority sets the task's execution niceness. If the task is currently
// executing, the change is forwarded live to the owning worker thread.
func (t *Task) SetPriority(nice int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.priority = nice
	if t.thread != nil {
		_ = t.thread.SetPriority(nice)
	}
}

// Priority returns the task's execution niceness.
func (t *Task) Priority() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.priority
}

// Future returns the handle for the current invocation's eventual result.
// It may be retrieved once per invocation; a second retrieval without an
// intervening return to Idle fails with future.ErrAlreadyRetrieved.
func (t *Task) Future() (*future.Future, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.retrieved {
		return nil, fmt.Errorf("task %s: %w", t.id, future.ErrAlreadyRetrieved)
	}
	t.retrieved = true
	return t.promise.Future(), nil
}

// Registrations returns the number of schedulers the task is registered with.
func (t *Task) Registrations() int32 {
	return t.regCount.Load()
}

// AddRegistration records registration with a scheduler.
func (t *Task) AddRegistration() {
	t.regCount.Add(1)
}

// DropRegistration records unregistration from a scheduler.
func (t *Task) DropRegistration() {
	t.regCount.Add(-1)
}
