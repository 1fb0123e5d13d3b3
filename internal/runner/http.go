package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vk/depsched/internal/config"
	"github.com/vk/depsched/internal/ctxlog"
	"github.com/vk/depsched/internal/task"
)

// HTTP performs a single HTTP request.
//
// Arguments: url (required), method (default GET), body (optional), headers
// (optional object), timeout (optional duration, default 30s),
// expect_status (optional; when set, a different status fails the task).
// The functor returns a map with the status code and response body.
type HTTP struct {
	// Client overrides the per-task resty client; used by tests.
	Client *resty.Client
}

func (h *HTTP) Kind() string { return "http" }

func (h *HTTP) Build(spec *config.TaskSpec) (task.Func, error) {
	url, err := requiredStringArg(spec.Args, "url")
	if err != nil {
		return nil, err
	}
	method, err := stringArg(spec.Args, "method", "GET")
	if err != nil {
		return nil, err
	}
	method = strings.ToUpper(method)
	body, err := stringArg(spec.Args, "body", "")
	if err != nil {
		return nil, err
	}
	headers, err := stringMapArg(spec.Args, "headers")
	if err != nil {
		return nil, err
	}
	timeout, err := durationArg(spec.Args, "timeout", 30*time.Second)
	if err != nil {
		return nil, err
	}
	expectStatus, err := intArg(spec.Args, "expect_status", 0)
	if err != nil {
		return nil, err
	}

	client := h.Client
	if client == nil {
		client = resty.New().SetTimeout(timeout)
	}

	return func(ctx context.Context) (any, error) {
		logger := ctxlog.FromContext(ctx)
		logger.Debug("making http request", "method", method, "url", url)

		req := client.R().SetContext(ctx).SetHeaders(headers)
		if body != "" {
			req.SetBody(body)
		}
		resp, err := req.Execute(method, url)
		if err != nil {
			return nil, fmt.Errorf("http request failed: %w", err)
		}
		logger.Debug("received http response", "status", resp.StatusCode())

		if expectStatus != 0 && resp.StatusCode() != expectStatus {
			return nil, fmt.Errorf("unexpected status %d (want %d)", resp.StatusCode(), expectStatus)
		}
		return map[string]any{
			"status_code": resp.StatusCode(),
			"body":        resp.String(),
		}, nil
	}, nil
}
