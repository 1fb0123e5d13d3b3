// Package config defines the format-agnostic plan model produced by the
// plan loaders and consumed by the application. Argument values are carried
// as cty values so HCL and YAML frontends feed one runner pipeline.
package config

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// TaskSpec describes one task declared in a plan file.
type TaskSpec struct {
	// Kind selects the runner that builds the task's functor.
	Kind string
	// Name is the task's identifier, unique within a plan.
	Name string
	// DependsOn lists the names of upstream tasks.
	DependsOn []string
	// Priority is the task's execution niceness; 0 means unchanged.
	Priority int
	// Args holds the runner-specific arguments.
	Args map[string]cty.Value
}

// Model is a fully loaded plan.
type Model struct {
	Tasks []*TaskSpec
	// Roots names the tasks to enqueue. When empty, every task without a
	// dependent in the plan is a root.
	Roots []string
}

// Loader turns plan files into a Model. Implementations exist per file
// format.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Merge appends the tasks and roots of other into m.
func (m *Model) Merge(other *Model) {
	m.Tasks = append(m.Tasks, other.Tasks...)
	m.Roots = append(m.Roots, other.Roots...)
}

// Validate checks the plan for name collisions and dangling references.
func (m *Model) Validate() error {
	byName := make(map[string]*TaskSpec, len(m.Tasks))
	for _, t := range m.Tasks {
		if t.Name == "" {
			return fmt.Errorf("plan: task of kind %q has no name", t.Kind)
		}
		if _, ok := byName[t.Name]; ok {
			return fmt.Errorf("plan: duplicate task name %q", t.Name)
		}
		byName[t.Name] = t
	}
	for _, t := range m.Tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byName[dep]; !ok {
				return fmt.Errorf("plan: task %q depends on unknown task %q", t.Name, dep)
			}
		}
	}
	for _, r := range m.Roots {
		if _, ok := byName[r]; !ok {
			return fmt.Errorf("plan: root %q is not a declared task", r)
		}
	}
	return nil
}

// RootNames resolves the plan's root set: the explicit Roots when present,
// otherwise every task no other task depends on.
func (m *Model) RootNames() []string {
	if len(m.Roots) > 0 {
		return m.Roots
	}
	depended := make(map[string]bool)
	for _, t := range m.Tasks {
		for _, dep := range t.DependsOn {
			depended[dep] = true
		}
	}
	var roots []string
	for _, t := range m.Tasks {
		if !depended[t.Name] {
			roots = append(roots, t.Name)
		}
	}
	sort.Strings(roots)
	return roots
}
