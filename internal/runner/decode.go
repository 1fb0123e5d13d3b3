package runner

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Argument decoding helpers shared by the built-in runners. Values come from
// the plan loaders as cty values; conversion applies cty's standard coercion
// rules so "5" satisfies a number argument and vice versa.

func stringArg(args map[string]cty.Value, name, def string) (string, error) {
	v, ok := args[name]
	if !ok || v.IsNull() {
		return def, nil
	}
	conv, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("argument %q: %w", name, err)
	}
	return conv.AsString(), nil
}

func requiredStringArg(args map[string]cty.Value, name string) (string, error) {
	v, ok := args[name]
	if !ok || v.IsNull() {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	return stringArg(args, name, "")
}

func intArg(args map[string]cty.Value, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v.IsNull() {
		return def, nil
	}
	conv, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("argument %q: %w", name, err)
	}
	var out int
	if err := gocty.FromCtyValue(conv, &out); err != nil {
		return 0, fmt.Errorf("argument %q: %w", name, err)
	}
	return out, nil
}

func durationArg(args map[string]cty.Value, name string, def time.Duration) (time.Duration, error) {
	s, err := stringArg(args, name, "")
	if err != nil {
		return 0, err
	}
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("argument %q: %w", name, err)
	}
	return d, nil
}

func stringMapArg(args map[string]cty.Value, name string) (map[string]string, error) {
	v, ok := args[name]
	if !ok || v.IsNull() {
		return nil, nil
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("argument %q: expected an object", name)
	}
	out := make(map[string]string)
	for key, elem := range v.AsValueMap() {
		conv, err := convert.Convert(elem, cty.String)
		if err != nil {
			return nil, fmt.Errorf("argument %q key %q: %w", name, key, err)
		}
		out[key] = conv.AsString()
	}
	return out, nil
}
