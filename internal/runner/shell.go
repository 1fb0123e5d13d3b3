package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vk/depsched/internal/config"
	"github.com/vk/depsched/internal/ctxlog"
	"github.com/vk/depsched/internal/task"
)

// Shell runs a command through the system shell.
//
// Arguments: command (required), shell (default "/bin/sh"), dir (optional
// working directory). The functor returns the command's stdout as a string.
type Shell struct{}

func (s *Shell) Kind() string { return "shell" }

func (s *Shell) Build(spec *config.TaskSpec) (task.Func, error) {
	command, err := requiredStringArg(spec.Args, "command")
	if err != nil {
		return nil, err
	}
	shell, err := stringArg(spec.Args, "shell", "/bin/sh")
	if err != nil {
		return nil, err
	}
	dir, err := stringArg(spec.Args, "dir", "")
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (any, error) {
		logger := ctxlog.FromContext(ctx)
		logger.Debug("running shell command", "command", command)

		cmd := exec.CommandContext(ctx, shell, "-c", command)
		cmd.Dir = dir
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if cause := context.Cause(ctx); cause != nil {
				return nil, cause
			}
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				return nil, fmt.Errorf("command failed: %w: %s", err, msg)
			}
			return nil, fmt.Errorf("command failed: %w", err)
		}
		return stdout.String(), nil
	}, nil
}
