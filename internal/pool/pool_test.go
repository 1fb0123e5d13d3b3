package pool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vk/depsched/internal/pool"
)

func TestPool_RunsEverySubmission(t *testing.T) {
	t.Parallel()

	p := pool.New(4)
	defer p.Shutdown()

	const jobs = 200
	var ran atomic.Int32
	var wg sync.WaitGroup
	wg.Add(jobs)
	for i := 0; i < jobs; i++ {
		err := p.Submit(func(th *pool.Thread) {
			defer wg.Done()
			ran.Add(1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	require.Equal(t, int32(jobs), ran.Load())
}

func TestPool_ThreadHandle(t *testing.T) {
	t.Parallel()

	p := pool.New(1)
	defer p.Shutdown()

	done := make(chan struct{})
	err := p.Submit(func(th *pool.Thread) {
		defer close(done)
		require.NotNil(t, th)
		require.Zero(t, th.ID())
		// Raising niceness never needs privileges; lowering it back may, so
		// only the error-free direction is asserted.
		require.NoError(t, th.SetPriority(5))
		_ = th.ResetPriority()
	})
	require.NoError(t, err)
	<-done
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	t.Parallel()

	p := pool.New(1)

	var ran atomic.Int32
	block := make(chan struct{})
	require.NoError(t, p.Submit(func(th *pool.Thread) {
		<-block
		ran.Add(1)
	}))
	// Queued behind the blocked runnable; must still run before Shutdown
	// returns.
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func(th *pool.Thread) { ran.Add(1) }))
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(block)
	}()
	p.Shutdown()

	require.Equal(t, int32(11), ran.Load())
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	t.Parallel()

	p := pool.New(2)
	p.Shutdown()

	err := p.Submit(func(th *pool.Thread) { t.Fatal("must not run") })
	require.ErrorIs(t, err, pool.ErrClosed)
}

func TestPool_ShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	p := pool.New(2)
	p.Shutdown()
	p.Shutdown()
}

func TestPool_SubmitFromWorker(t *testing.T) {
	t.Parallel()

	// A single worker re-submitting from inside a runnable must not deadlock.
	p := pool.New(1)
	defer p.Shutdown()

	done := make(chan struct{})
	err := p.Submit(func(th *pool.Thread) {
		innerErr := p.Submit(func(th *pool.Thread) { close(done) })
		require.NoError(t, innerErr)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("nested submission never ran")
	}
}
