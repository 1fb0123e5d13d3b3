// Package runner maps plan task kinds to the functors the scheduler
// executes. Each built-in runner decodes its arguments from the plan model
// and returns a context-aware task.Func.
package runner

import (
	"fmt"
	"io"

	"github.com/vk/depsched/internal/config"
	"github.com/vk/depsched/internal/task"
)

// Builder turns a task spec of one kind into an executable functor.
type Builder interface {
	Kind() string
	Build(spec *config.TaskSpec) (task.Func, error)
}

// Registry holds the runner builders available to a single application
// instance.
type Registry struct {
	kinds map[string]Builder
}

// NewRegistry creates a registry containing the given builders.
func NewRegistry(builders ...Builder) *Registry {
	r := &Registry{kinds: make(map[string]Builder)}
	for _, b := range builders {
		r.kinds[b.Kind()] = b
	}
	return r
}

// Register adds or replaces a builder.
func (r *Registry) Register(b Builder) {
	r.kinds[b.Kind()] = b
}

// Build constructs the functor for a task spec.
func (r *Registry) Build(spec *config.TaskSpec) (task.Func, error) {
	b, ok := r.kinds[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("task %q: unknown runner kind %q", spec.Name, spec.Kind)
	}
	fn, err := b.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", spec.Name, err)
	}
	return fn, nil
}

// Builtin returns the standard runner set. out receives the print runner's
// output.
func Builtin(out io.Writer) []Builder {
	return []Builder{
		&Shell{},
		&HTTP{},
		&Sleep{},
		&Print{Out: out},
		&Noop{},
	}
}
