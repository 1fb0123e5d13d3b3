package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/depsched/internal/cli"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := cli.Parse([]string{"plan.hcl"}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	require.Equal(t, "plan.hcl", cfg.PlanPath)
	require.Equal(t, 4, cfg.WorkerCount)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
	require.True(t, cfg.Summary)
}

func TestParse_AllFlags(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	args := []string{
		"-plan", "plans/",
		"-workers", "8",
		"-log-level", "debug",
		"-log-format", "json",
		"-summary=false",
	}
	cfg, shouldExit, err := cli.Parse(args, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	require.Equal(t, "plans/", cfg.PlanPath)
	require.Equal(t, 8, cfg.WorkerCount)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.False(t, cfg.Summary)
}

func TestParse_ShorthandPlanFlag(t *testing.T) {
	t.Parallel()

	cfg, shouldExit, err := cli.Parse([]string{"-p", "plan.yaml"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, shouldExit)
	require.Equal(t, "plan.yaml", cfg.PlanPath)
}

func TestParse_NoPlanPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := cli.Parse([]string{}, out)
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Nil(t, cfg)
	require.Contains(t, out.String(), "Usage:")
}

func TestParse_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, shouldExit, err := cli.Parse([]string{"-h"}, out)
	require.NoError(t, err)
	require.True(t, shouldExit)
	require.Nil(t, cfg)
	require.Contains(t, out.String(), "Usage:")
}

func TestParse_UnknownFlag(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	_, _, err := cli.Parse([]string{"-bogus"}, out)
	require.Error(t, err)

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}
