package yamlplan_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/depsched/internal/config"
	"github.com/vk/depsched/internal/yamlplan"
)

func writePlan(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_FullPlan(t *testing.T) {
	t.Parallel()

	path := writePlan(t, "plan.yaml", `
roots: [report]
tasks:
  - kind: http
    name: fetch
    args:
      url: https://example.com/data
      timeout: 5s
  - kind: shell
    name: build
    depends_on: [fetch]
    priority: 5
    args:
      command: make build
  - kind: print
    name: report
    depends_on: [build]
    args:
      message: done
`)

	model, err := yamlplan.NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, model.Validate())

	require.Equal(t, []string{"report"}, model.Roots)
	require.Len(t, model.Tasks, 3)

	byName := make(map[string]*config.TaskSpec)
	for _, ts := range model.Tasks {
		byName[ts.Name] = ts
	}

	fetch := byName["fetch"]
	require.Equal(t, "http", fetch.Kind)
	require.Equal(t, cty.StringVal("https://example.com/data"), fetch.Args["url"])
	require.Equal(t, cty.StringVal("5s"), fetch.Args["timeout"])

	build := byName["build"]
	require.Equal(t, []string{"fetch"}, build.DependsOn)
	require.Equal(t, 5, build.Priority)
	require.Equal(t, cty.StringVal("make build"), build.Args["command"])
}

func TestLoad_ArgumentTypes(t *testing.T) {
	t.Parallel()

	path := writePlan(t, "plan.yaml", `
tasks:
  - kind: noop
    name: a
    args:
      flag: true
      count: 3
      ratio: 0.5
      list: [one, two]
      nested:
        key: value
`)

	model, err := yamlplan.NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, model.Tasks, 1)

	args := model.Tasks[0].Args
	require.Equal(t, cty.True, args["flag"])
	require.True(t, cty.NumberIntVal(3).RawEquals(args["count"]))
	require.True(t, cty.NumberFloatVal(0.5).RawEquals(args["ratio"]))
	require.Equal(t, cty.TupleVal([]cty.Value{cty.StringVal("one"), cty.StringVal("two")}), args["list"])
	require.Equal(t, cty.ObjectVal(map[string]cty.Value{"key": cty.StringVal("value")}), args["nested"])
}

func TestLoad_DecodeError(t *testing.T) {
	t.Parallel()

	path := writePlan(t, "bad.yaml", "tasks: [\n")

	_, err := yamlplan.NewLoader().Load(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad.yaml")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := yamlplan.NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
