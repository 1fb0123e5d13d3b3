//go:build linux

package pool

import "golang.org/x/sys/unix"

// currentThreadInfo returns the calling thread's kernel id and niceness.
// Must be called from a goroutine locked to its OS thread.
func currentThreadInfo() (tid, nice int) {
	tid = unix.Gettid()
	// getpriority(2) returns the niceness encoded as 20-nice to avoid
	// negative syscall results.
	raw, err := unix.Getpriority(unix.PRIO_PROCESS, tid)
	if err != nil {
		return tid, 0
	}
	return tid, 20 - raw
}

// setThreadPriority applies a niceness value to a specific kernel thread.
func setThreadPriority(tid, nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, tid, nice)
}
