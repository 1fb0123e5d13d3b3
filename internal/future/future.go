// Package future implements the promise/future pair used to deliver a task
// invocation's result or failure to callers.
//
// A Promise is held by the producing side (the task) and completed exactly
// once per invocation. The Future is the consuming handle: it becomes ready
// when the promise is completed and stays ready until the owning task is
// reset for its next invocation, at which point a fresh pair replaces it.
package future

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyRetrieved is returned when a task's future is retrieved more than
// once for the same invocation.
var ErrAlreadyRetrieved = errors.New("depsched: future already retrieved for this invocation")

// Promise is the producing half of a future pair.
type Promise struct {
	once sync.Once
	fut  *Future
}

// Future is the consuming half of a future pair. All methods are safe for
// concurrent use.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// NewPromise creates a fresh, unready promise/future pair.
func NewPromise() *Promise {
	return &Promise{fut: &Future{done: make(chan struct{})}}
}

// Complete stores the invocation's result and readies the future. Only the
// first call has any effect.
func (p *Promise) Complete(value any, err error) {
	p.once.Do(func() {
		p.fut.value = value
		p.fut.err = err
		close(p.fut.done)
	})
}

// Future returns the consuming handle associated with this promise.
func (p *Promise) Future() *Future {
	return p.fut
}

// Done returns a channel that is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the result is available without blocking.
func (f *Future) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is available or the context is cancelled.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Value blocks until the result is available and returns it along with the
// functor's error, if any.
func (f *Future) Value() (any, error) {
	<-f.done
	return f.value, f.err
}

// Err blocks until the result is available and returns the functor's error.
func (f *Future) Err() error {
	<-f.done
	return f.err
}
