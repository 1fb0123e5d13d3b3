//go:build !linux

package pool

// currentThreadInfo has no portable implementation off Linux; priority
// forwarding degrades to a no-op there.
func currentThreadInfo() (tid, nice int) {
	return 0, 0
}

func setThreadPriority(tid, nice int) error {
	return nil
}
