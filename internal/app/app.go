// Package app wires the plan loaders, the runner registry, the worker pool,
// and the scheduler into a runnable application.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/vk/depsched/internal/config"
	"github.com/vk/depsched/internal/ctxlog"
	"github.com/vk/depsched/internal/fsutil"
	"github.com/vk/depsched/internal/hclplan"
	"github.com/vk/depsched/internal/runner"
	"github.com/vk/depsched/internal/yamlplan"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PlanPath    string
	WorkerCount int
	LogLevel    string
	LogFormat   string
	Summary     bool
}

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   Config
	model    *config.Model
	registry *runner.Registry
}

// New loads the plan and returns a fully initialized App instance with its
// own isolated logger. Results go to outW, logs to logW.
func New(outW, logW io.Writer, cfg Config, extraRunners ...runner.Builder) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("logger configured")

	model, err := loadPlan(ctx, cfg.PlanPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("plan loaded", "tasks", len(model.Tasks), "roots", len(model.RootNames()))

	reg := runner.NewRegistry(runner.Builtin(outW)...)
	for _, b := range extraRunners {
		reg.Register(b)
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		model:    model,
		registry: reg,
	}, nil
}

// Model returns the loaded plan. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// loadPlan discovers plan files under path and routes each to the loader
// for its format, merging everything into one validated model.
func loadPlan(ctx context.Context, path string) (*config.Model, error) {
	if path == "" {
		return nil, fmt.Errorf("no plan path provided")
	}
	files, err := fsutil.Discover(path, ".hcl", ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no plan files found under %s", path)
	}

	var hclFiles, yamlFiles []string
	for _, f := range files {
		switch filepath.Ext(f) {
		case ".hcl":
			hclFiles = append(hclFiles, f)
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, f)
		default:
			return nil, fmt.Errorf("unsupported plan format: %s", f)
		}
	}

	model := &config.Model{}
	if len(hclFiles) > 0 {
		m, err := hclplan.NewLoader().Load(ctx, hclFiles...)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}
	if len(yamlFiles) > 0 {
		m, err := yamlplan.NewLoader().Load(ctx, yamlFiles...)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}
