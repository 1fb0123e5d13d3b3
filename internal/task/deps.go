package task

import (
	"fmt"
	"sort"
)

// DepSet is the mutable handle to a task's dependency edges. Edges are
// symmetric: when A depends on B, A lists B upstream and B lists A
// downstream, and every edit maintains both sides. Mutations fail with
// ErrRegistered while either endpoint is registered with a scheduler.
type DepSet struct {
	t *Task
}

// Deps returns the task's dependency edge handle.
func (t *Task) Deps() *DepSet {
	return &DepSet{t: t}
}

// Add records that the owning task depends on upstream. Adding an existing
// edge is a no-op. Self-edges are representable; they are rejected at bind
// time as cyclic, not here.
func (d *DepSet) Add(upstream *Task) error {
	if err := d.editable(upstream); err != nil {
		return err
	}
	d.t.upstream[upstream.id] = struct{}{}
	upstream.downstream[d.t.id] = struct{}{}
	return nil
}

// Remove deletes the dependency on upstream. Removing an absent edge is a
// no-op.
func (d *DepSet) Remove(upstream *Task) error {
	if err := d.editable(upstream); err != nil {
		return err
	}
	delete(d.t.upstream, upstream.id)
	delete(upstream.downstream, d.t.id)
	return nil
}

func (d *DepSet) editable(other *Task) error {
	if d.t.regCount.Load() > 0 {
		return fmt.Errorf("task %s: %w", d.t.id, ErrRegistered)
	}
	if other.regCount.Load() > 0 {
		return fmt.Errorf("task %s: %w", other.id, ErrRegistered)
	}
	return nil
}

// UpstreamIDs returns the sorted identifiers of tasks this task depends on.
func (d *DepSet) UpstreamIDs() []string {
	return sortedKeys(d.t.upstream)
}

// DownstreamIDs returns the sorted identifiers of tasks depending on this task.
func (d *DepSet) DownstreamIDs() []string {
	return sortedKeys(d.t.downstream)
}

func sortedKeys(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
