package pool

import (
	"log/slog"
	"runtime"
)

// Thread is a worker's handle to its underlying OS thread. Workers pin
// themselves with runtime.LockOSThread for their whole lifetime, so a Thread
// maps 1:1 to a kernel thread and niceness changes stick to it.
type Thread struct {
	id       int
	tid      int
	baseNice int
	logger   *slog.Logger
}

// newThread pins the calling goroutine to its OS thread and captures the
// thread id and base niceness.
func newThread(id int, logger *slog.Logger) *Thread {
	runtime.LockOSThread()
	tid, baseNice := currentThreadInfo()
	return &Thread{id: id, tid: tid, baseNice: baseNice, logger: logger}
}

// release undoes the OS-thread pinning when the worker exits.
func (t *Thread) release() {
	runtime.UnlockOSThread()
}

// ID returns the worker's index within its pool.
func (t *Thread) ID() int {
	return t.id
}

// TID returns the OS thread id, or 0 on platforms without thread ids.
func (t *Thread) TID() int {
	return t.tid
}

// SetPriority applies a niceness value to the worker's OS thread for the
// duration of the current task.
func (t *Thread) SetPriority(nice int) error {
	if err := setThreadPriority(t.tid, nice); err != nil {
		t.logger.Debug("setting thread priority failed", "tid", t.tid, "nice", nice, "error", err)
		return err
	}
	return nil
}

// ResetPriority restores the worker thread's base niceness.
func (t *Thread) ResetPriority() error {
	return setThreadPriority(t.tid, t.baseNice)
}
