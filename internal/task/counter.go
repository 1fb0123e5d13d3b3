package task

import "sync/atomic"

// waitCount is an atomic countdown gate. It starts at N and is decremented
// once per completed neighbor; the goroutine whose decrement reaches zero
// wins the right to advance the owning task's state.
type waitCount struct {
	n atomic.Int32
}

// reset rearms the gate to n outstanding completions.
func (w *waitCount) reset(n int32) {
	w.n.Store(n)
}

// done records one completion and reports whether this call was the one that
// drove the gate to zero. At most one caller ever observes true per reset.
func (w *waitCount) done() bool {
	return w.n.Add(-1) == 0
}

// pending returns the number of outstanding completions.
func (w *waitCount) pending() int32 {
	return w.n.Load()
}
