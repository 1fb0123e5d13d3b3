package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vk/depsched/internal/config"
	"github.com/vk/depsched/internal/task"
)

// Sleep pauses for a duration, waking early when the task is interrupted.
//
// Arguments: duration (required, e.g. "250ms").
type Sleep struct{}

func (s *Sleep) Kind() string { return "sleep" }

func (s *Sleep) Build(spec *config.TaskSpec) (task.Func, error) {
	d, err := durationArg(spec.Args, "duration", 0)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, fmt.Errorf("missing or non-positive argument %q", "duration")
	}

	return func(ctx context.Context) (any, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return d.String(), nil
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		}
	}, nil
}

// Print writes a message to the application's output stream.
//
// Arguments: message (required).
type Print struct {
	Out io.Writer
}

func (p *Print) Kind() string { return "print" }

func (p *Print) Build(spec *config.TaskSpec) (task.Func, error) {
	message, err := requiredStringArg(spec.Args, "message")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (any, error) {
		if _, err := fmt.Fprintln(p.Out, message); err != nil {
			return nil, err
		}
		return message, nil
	}, nil
}

// Noop does nothing. It exists to express pure synchronization points in a
// plan.
type Noop struct{}

func (n *Noop) Kind() string { return "noop" }

func (n *Noop) Build(spec *config.TaskSpec) (task.Func, error) {
	return func(ctx context.Context) (any, error) {
		return nil, nil
	}, nil
}
