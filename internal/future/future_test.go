package future_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vk/depsched/internal/future"
)

func TestFuture_NotReadyBeforeComplete(t *testing.T) {
	t.Parallel()

	p := future.NewPromise()
	f := p.Future()

	require.False(t, f.Ready())
	select {
	case <-f.Done():
		t.Fatal("Done() fired before the promise was completed")
	default:
	}
}

func TestFuture_DeliversValue(t *testing.T) {
	t.Parallel()

	p := future.NewPromise()
	f := p.Future()

	p.Complete("result", nil)

	require.True(t, f.Ready())
	v, err := f.Value()
	require.NoError(t, err)
	require.Equal(t, "result", v)
	require.NoError(t, f.Err())
}

func TestFuture_DeliversError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	p := future.NewPromise()
	f := p.Future()

	p.Complete(nil, boom)

	v, err := f.Value()
	require.Nil(t, v)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, f.Err(), boom)
}

func TestFuture_CompleteIsIdempotent(t *testing.T) {
	t.Parallel()

	p := future.NewPromise()
	f := p.Future()

	p.Complete(1, nil)
	p.Complete(2, errors.New("late"))

	v, err := f.Value()
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestFuture_WaitUnblocksOnComplete(t *testing.T) {
	t.Parallel()

	p := future.NewPromise()
	f := p.Future()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		p.Complete(42, nil)
	}()

	require.NoError(t, f.Wait(context.Background()))
	v, err := f.Value()
	require.NoError(t, err)
	require.Equal(t, 42, v)
	wg.Wait()
}

func TestFuture_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	p := future.NewPromise()
	f := p.Future()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := f.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
