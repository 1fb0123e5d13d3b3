// Package yamlplan loads plan files written in YAML.
//
// The document mirrors the HCL plan shape:
//
//	roots: [report]
//	tasks:
//	  - kind: shell
//	    name: build
//	    depends_on: [fetch]
//	    args:
//	      command: make build
//	  - kind: http
//	    name: fetch
//	    args:
//	      url: https://example.com/data
package yamlplan

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/depsched/internal/config"
	"github.com/vk/depsched/internal/ctxlog"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML plan loader.
func NewLoader() *Loader {
	return &Loader{}
}

type yamlPlan struct {
	Roots []string    `yaml:"roots"`
	Tasks []*yamlTask `yaml:"tasks"`
}

type yamlTask struct {
	Kind      string         `yaml:"kind"`
	Name      string         `yaml:"name"`
	DependsOn []string       `yaml:"depends_on"`
	Priority  int            `yaml:"priority"`
	Args      map[string]any `yaml:"args"`
}

// Load parses every given file and merges the declared tasks into one model.
// Validation happens on the fully merged model, not here.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &config.Model{}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading plan file %s: %w", path, err)
		}
		var plan yamlPlan
		if err := yaml.Unmarshal(data, &plan); err != nil {
			return nil, fmt.Errorf("decoding plan file %s: %w", path, err)
		}

		for _, yt := range plan.Tasks {
			spec, err := translateTask(yt)
			if err != nil {
				return nil, fmt.Errorf("plan file %s: %w", path, err)
			}
			model.Tasks = append(model.Tasks, spec)
		}
		model.Roots = append(model.Roots, plan.Roots...)
		logger.Debug("plan file loaded", "path", path, "tasks", len(plan.Tasks))
	}
	return model, nil
}

func translateTask(yt *yamlTask) (*config.TaskSpec, error) {
	spec := &config.TaskSpec{
		Kind:      yt.Kind,
		Name:      yt.Name,
		DependsOn: yt.DependsOn,
		Priority:  yt.Priority,
		Args:      make(map[string]cty.Value, len(yt.Args)),
	}
	for name, raw := range yt.Args {
		val, err := toCty(raw)
		if err != nil {
			return nil, fmt.Errorf("task %q argument %q: %w", yt.Name, name, err)
		}
		spec.Args[name] = val
	}
	return spec, nil
}

// toCty converts a decoded YAML scalar or collection to its cty equivalent.
func toCty(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(x), nil
	case string:
		return cty.StringVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case uint64:
		return cty.NumberUIntVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(x))
		for i, e := range x {
			ev, err := toCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(x))
		for k, e := range x {
			ev, err := toCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = ev
		}
		if len(attrs) == 0 {
			return cty.EmptyObjectVal, nil
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported argument type %T", v)
	}
}
