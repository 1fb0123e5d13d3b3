package runner_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/depsched/internal/config"
	"github.com/vk/depsched/internal/runner"
)

func args(kv map[string]cty.Value) *config.TaskSpec {
	return &config.TaskSpec{Kind: "test", Name: "test", Args: kv}
}

func TestRegistry_UnknownKind(t *testing.T) {
	t.Parallel()

	r := runner.NewRegistry(runner.Builtin(&bytes.Buffer{})...)
	_, err := r.Build(&config.TaskSpec{Kind: "teleport", Name: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown runner kind "teleport"`)
}

func TestRegistry_CustomBuilderOverrides(t *testing.T) {
	t.Parallel()

	r := runner.NewRegistry(runner.Builtin(&bytes.Buffer{})...)
	r.Register(&runner.Noop{})

	fn, err := r.Build(&config.TaskSpec{Kind: "noop", Name: "x"})
	require.NoError(t, err)
	require.NotNil(t, fn)
}

func TestShell_CapturesStdout(t *testing.T) {
	t.Parallel()

	fn, err := (&runner.Shell{}).Build(args(map[string]cty.Value{
		"command": cty.StringVal("echo hello"),
	}))
	require.NoError(t, err)

	v, err := fn(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hello", strings.TrimSpace(v.(string)))
}

func TestShell_FailureIncludesStderr(t *testing.T) {
	t.Parallel()

	fn, err := (&runner.Shell{}).Build(args(map[string]cty.Value{
		"command": cty.StringVal("echo nope >&2; exit 3"),
	}))
	require.NoError(t, err)

	_, err = fn(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")
}

func TestShell_MissingCommand(t *testing.T) {
	t.Parallel()

	_, err := (&runner.Shell{}).Build(args(nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), `missing required argument "command"`)
}

func TestShell_CancellationWinsOverExitError(t *testing.T) {
	t.Parallel()

	fn, err := (&runner.Shell{}).Build(args(map[string]cty.Value{
		"command": cty.StringVal("sleep 30"),
	}))
	require.NoError(t, err)

	reason := errors.New("interrupted by test")
	ctx, cancel := context.WithCancelCause(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel(reason)
	}()

	_, err = fn(ctx)
	require.ErrorIs(t, err, reason)
}

func TestSleep(t *testing.T) {
	t.Parallel()

	t.Run("completes", func(t *testing.T) {
		t.Parallel()
		fn, err := (&runner.Sleep{}).Build(args(map[string]cty.Value{
			"duration": cty.StringVal("10ms"),
		}))
		require.NoError(t, err)

		v, err := fn(context.Background())
		require.NoError(t, err)
		require.Equal(t, "10ms", v)
	})

	t.Run("wakes early on cancellation", func(t *testing.T) {
		t.Parallel()
		fn, err := (&runner.Sleep{}).Build(args(map[string]cty.Value{
			"duration": cty.StringVal("30s"),
		}))
		require.NoError(t, err)

		reason := errors.New("interrupted by test")
		ctx, cancel := context.WithCancelCause(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel(reason)
		}()

		start := time.Now()
		_, err = fn(ctx)
		require.ErrorIs(t, err, reason)
		require.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("rejects missing duration", func(t *testing.T) {
		t.Parallel()
		_, err := (&runner.Sleep{}).Build(args(nil))
		require.Error(t, err)
	})
}

func TestPrint(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	fn, err := (&runner.Print{Out: out}).Build(args(map[string]cty.Value{
		"message": cty.StringVal("build finished"),
	}))
	require.NoError(t, err)

	v, err := fn(context.Background())
	require.NoError(t, err)
	require.Equal(t, "build finished", v)
	require.Equal(t, "build finished\n", out.String())
}

func TestHTTP(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			require.Equal(t, "depsched-test", r.Header.Get("X-Client"))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("payload"))
		case "/teapot":
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	t.Cleanup(srv.Close)

	t.Run("returns status and body", func(t *testing.T) {
		t.Parallel()
		fn, err := (&runner.HTTP{}).Build(args(map[string]cty.Value{
			"url": cty.StringVal(srv.URL + "/ok"),
			"headers": cty.ObjectVal(map[string]cty.Value{
				"X-Client": cty.StringVal("depsched-test"),
			}),
		}))
		require.NoError(t, err)

		v, err := fn(context.Background())
		require.NoError(t, err)
		result := v.(map[string]any)
		require.Equal(t, http.StatusOK, result["status_code"])
		require.Equal(t, "payload", result["body"])
	})

	t.Run("expect_status mismatch fails", func(t *testing.T) {
		t.Parallel()
		fn, err := (&runner.HTTP{}).Build(args(map[string]cty.Value{
			"url":           cty.StringVal(srv.URL + "/teapot"),
			"expect_status": cty.NumberIntVal(200),
		}))
		require.NoError(t, err)

		_, err = fn(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "unexpected status 418")
	})

	t.Run("missing url", func(t *testing.T) {
		t.Parallel()
		_, err := (&runner.HTTP{}).Build(args(nil))
		require.Error(t, err)
	})
}
