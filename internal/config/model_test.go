package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/depsched/internal/config"
)

func spec(kind, name string, deps ...string) *config.TaskSpec {
	return &config.TaskSpec{Kind: kind, Name: name, DependsOn: deps}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		model   *config.Model
		wantErr string
	}{
		{
			name:  "valid chain",
			model: &config.Model{Tasks: []*config.TaskSpec{spec("noop", "a"), spec("noop", "b", "a")}},
		},
		{
			name:    "unnamed task",
			model:   &config.Model{Tasks: []*config.TaskSpec{spec("shell", "")}},
			wantErr: "has no name",
		},
		{
			name:    "duplicate name",
			model:   &config.Model{Tasks: []*config.TaskSpec{spec("noop", "a"), spec("shell", "a")}},
			wantErr: `duplicate task name "a"`,
		},
		{
			name:    "dangling dependency",
			model:   &config.Model{Tasks: []*config.TaskSpec{spec("noop", "a", "ghost")}},
			wantErr: `depends on unknown task "ghost"`,
		},
		{
			name: "dangling root",
			model: &config.Model{
				Tasks: []*config.TaskSpec{spec("noop", "a")},
				Roots: []string{"ghost"},
			},
			wantErr: `root "ghost" is not a declared task`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.model.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	m := &config.Model{Tasks: []*config.TaskSpec{spec("noop", "a")}, Roots: []string{"a"}}
	m.Merge(&config.Model{Tasks: []*config.TaskSpec{spec("noop", "b")}, Roots: []string{"b"}})

	require.Len(t, m.Tasks, 2)
	require.Equal(t, []string{"a", "b"}, m.Roots)
}

func TestRootNames(t *testing.T) {
	t.Parallel()

	t.Run("explicit roots win", func(t *testing.T) {
		t.Parallel()
		m := &config.Model{
			Tasks: []*config.TaskSpec{spec("noop", "a"), spec("noop", "b", "a")},
			Roots: []string{"a"},
		}
		require.Equal(t, []string{"a"}, m.RootNames())
	})

	t.Run("inferred from dependents", func(t *testing.T) {
		t.Parallel()
		m := &config.Model{Tasks: []*config.TaskSpec{
			spec("noop", "a"),
			spec("noop", "b", "a"),
			spec("noop", "c", "a"),
			spec("noop", "d"),
		}}
		require.Equal(t, []string{"b", "c", "d"}, m.RootNames())
	})
}
