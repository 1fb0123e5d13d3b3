// Package hclplan loads plan files written in HCL.
//
// A plan declares tasks and their dependency edges:
//
//	roots = ["report"]
//
//	task "shell" "build" {
//	  command    = "make build"
//	  depends_on = ["fetch"]
//	}
//
//	task "http" "fetch" {
//	  url = "https://example.com/data"
//	}
//
//	task "print" "report" {
//	  message    = "done"
//	  depends_on = ["build"]
//	  priority   = 5
//	}
package hclplan

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/depsched/internal/config"
	"github.com/vk/depsched/internal/ctxlog"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL plan loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes the top-level blocks and attributes of a plan file.
type fileRoot struct {
	Roots []string     `hcl:"roots,optional"`
	Tasks []*taskBlock `hcl:"task,block"`
}

// taskBlock is the header of a `task "<kind>" "<name>"` block.
type taskBlock struct {
	Kind   string   `hcl:"kind,label"`
	Name   string   `hcl:"name,label"`
	Remain hcl.Body `hcl:",remain"`
}

// taskBody splits a task block's body into the scheduling attributes and the
// runner-specific remainder.
type taskBody struct {
	DependsOn []string `hcl:"depends_on,optional"`
	Priority  *int     `hcl:"priority,optional"`
	Rest      hcl.Body `hcl:",remain"`
}

// Load parses every given file and merges the declared tasks into one model.
// Argument expressions are evaluated statically; plans reference no
// variables. Cross-file references are allowed, so validation happens on the
// fully merged model, not here.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &config.Model{}
	parser := hclparse.NewParser()

	for _, path := range paths {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing plan file %s: %w", path, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("decoding plan file %s: %w", path, diags)
		}

		for _, tb := range root.Tasks {
			spec, err := l.translateTask(tb)
			if err != nil {
				return nil, fmt.Errorf("plan file %s: %w", path, err)
			}
			model.Tasks = append(model.Tasks, spec)
		}
		model.Roots = append(model.Roots, root.Roots...)
		logger.Debug("plan file loaded", "path", path, "tasks", len(root.Tasks))
	}
	return model, nil
}

// translateTask converts one task block into the agnostic model.
func (l *Loader) translateTask(tb *taskBlock) (*config.TaskSpec, error) {
	var body taskBody
	if diags := gohcl.DecodeBody(tb.Remain, nil, &body); diags.HasErrors() {
		return nil, fmt.Errorf("task %q: %w", tb.Name, diags)
	}

	spec := &config.TaskSpec{
		Kind:      tb.Kind,
		Name:      tb.Name,
		DependsOn: body.DependsOn,
		Args:      make(map[string]cty.Value),
	}
	if body.Priority != nil {
		spec.Priority = *body.Priority
	}

	attrs, diags := body.Rest.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("task %q arguments: %w", tb.Name, diags)
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("task %q argument %q: %w", tb.Name, name, diags)
		}
		spec.Args[name] = val
	}
	return spec, nil
}
