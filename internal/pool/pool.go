// Package pool implements the worker pool collaborator: a bounded set of
// OS-thread-pinned workers draining an unbounded run queue.
//
// The queue is unbounded on purpose. Completion handling in the scheduler
// submits newly-ready tasks from worker threads; a bounded queue could fill
// while every worker is blocked submitting, deadlocking the pool against
// itself.
package pool

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned by Submit after the pool has been shut down.
var ErrClosed = errors.New("depsched: worker pool is shut down")

// Runnable is a unit of work executed on some worker. The worker passes its
// thread handle so the callable can route priority changes to the OS thread.
type Runnable func(th *Thread)

// Pool spreads execution of submitted runnables across a fixed set of
// workers. Each submitted runnable runs exactly once, on some worker,
// eventually, unless the pool is shut down first.
type Pool struct {
	logger *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Runnable
	closed bool
	wg     sync.WaitGroup
}

// New creates a pool with the given number of workers and starts them.
func New(workers int) *Pool {
	return NewWithLogger(workers, slog.Default())
}

// NewWithLogger is New with an explicit logger.
func NewWithLogger(workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{logger: logger}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

// Submit enqueues a runnable for execution. It never blocks on queue
// capacity. After Shutdown it fails with ErrClosed.
func (p *Pool) Submit(r Runnable) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.queue = append(p.queue, r)
	p.cond.Signal()
	return nil
}

// Shutdown stops accepting work, drains the queue, and joins the workers.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

// worker is the processing loop for a single pool thread.
func (p *Pool) worker(id int) {
	defer p.wg.Done()
	th := newThread(id, p.logger)
	defer th.release()
	p.logger.Debug("worker started", "workerID", id, "tid", th.TID())

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			p.logger.Debug("worker finished", "workerID", id)
			return
		}
		r := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		r(th)
	}
}
