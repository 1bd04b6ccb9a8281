package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/fieldengine/internal/builder"
	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/ctxlog"
	"github.com/vk/fieldengine/internal/field"
	"github.com/vk/fieldengine/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	module   *field.Module
}

// NewApp is the constructor for the main application. It loads the model,
// registers the operator modules and builds the field module. Results are
// written to outW and logs to logW.
func NewApp(outW, logW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Load all configuration into the format-agnostic model first.
	model, converter, err := loader.Load(ctx, appConfig.ModelPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	logger.Debug("Model loaded and translated into unified model.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "types", len(reg.Types()))

	module, err := builder.New(reg).Build(ctx, model, converter)
	if err != nil {
		return nil, fmt.Errorf("failed to build fields: %w", err)
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		module:   module,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Module returns the built field module.
func (a *App) Module() *field.Module {
	return a.module
}

// List writes a table of the module's fields.
func (a *App) List() error {
	a.logger.Debug("Listing fields.", "count", len(a.module.Fields()))
	return a.module.List(a.outW)
}
