package task

// State is the position of a task in its lifecycle. Transitions only move
// forward along the cycle Idle -> (WaitingUpstream|Queued) -> Queued ->
// Executing -> WaitingDownstream -> Idle.
type State int32

const (
	// Idle means the task is not part of any active subgraph.
	Idle State = iota
	// Queued means the task has been submitted to the worker pool.
	Queued
	// WaitingUpstream means the task is bound but upstream tasks have not
	// yet completed.
	WaitingUpstream
	// Executing means the task's functor is running on a worker thread.
	Executing
	// WaitingDownstream means the functor has returned and the task is
	// waiting for its in-subgraph dependents to complete before it may be
	// recycled.
	WaitingDownstream
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Queued:
		return "queued"
	case WaitingUpstream:
		return "waiting-upstream"
	case Executing:
		return "executing"
	case WaitingDownstream:
		return "waiting-downstream"
	default:
		return "unknown"
	}
}
