// Package depgraph holds the directed graph of registered tasks, keyed by
// task identifier.
//
// The graph itself carries no lock: it is mutated and traversed only under
// the owning scheduler's mutex. Edge lists are derived from each task's
// symmetric upstream/downstream sets; a snapshot taken without the scheduler
// lock is not coherent and must not be used for scheduling decisions.
package depgraph

import (
	"errors"
	"fmt"

	"github.com/vk/depsched/internal/task"
)

// ErrDuplicateID indicates an insertion collided with an already-registered
// task identifier.
var ErrDuplicateID = errors.New("depsched: duplicate task id")

// Graph maps task identifiers to task references. Insertion order is
// irrelevant.
type Graph struct {
	nodes map[string]*task.Task
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*task.Task)}
}

// Insert adds a task to the graph. It fails with ErrDuplicateID if a task
// with the same id is already present.
func (g *Graph) Insert(t *task.Task) error {
	if _, ok := g.nodes[t.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, t.ID())
	}
	g.nodes[t.ID()] = t
	return nil
}

// Remove deletes the task from the graph. It returns false if the task is
// not present under its id.
func (g *Graph) Remove(t *task.Task) bool {
	if g.nodes[t.ID()] != t {
		return false
	}
	delete(g.nodes, t.ID())
	return true
}

// Lookup resolves an identifier to its registered task.
func (g *Graph) Lookup(id string) (*task.Task, bool) {
	t, ok := g.nodes[id]
	return t, ok
}

// Contains reports whether this exact task is registered in the graph.
func (g *Graph) Contains(t *task.Task) bool {
	return g.nodes[t.ID()] == t
}

// Len returns the number of registered tasks.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// UpstreamOf resolves the task's upstream edge set against the graph. Edges
// naming unregistered ids are skipped: an unregistered dependency does not
// gate execution.
func (g *Graph) UpstreamOf(t *task.Task) []*task.Task {
	return g.resolve(t.Deps().UpstreamIDs())
}

// DownstreamOf resolves the task's downstream edge set against the graph,
// skipping unregistered ids.
func (g *Graph) DownstreamOf(t *task.Task) []*task.Task {
	return g.resolve(t.Deps().DownstreamIDs())
}

func (g *Graph) resolve(ids []string) []*task.Task {
	out := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
