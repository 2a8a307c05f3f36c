package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/modgate/internal/ctxlog"
	"github.com/vk/modgate/internal/hostcfg"
	"github.com/vk/modgate/internal/registry"
)

const (
	defaultModulesPath = "modules"
	defaultLogLevel    = "info"
	defaultLogFormat   = "json"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle: build the registry once, exercise the configured invocations
// against it, discard.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	model    *hostcfg.Model
	registry *registry.Registry
}

// NewApp is the constructor for the main application. It loads the optional
// host config file, merges CLI values over it, and returns a fully
// initialized App with its own isolated logger. A failure to load the config
// file is a fatal startup error and panics; main recovers it for a clean
// exit message.
func NewApp(outW io.Writer, appConfig *Config) *App {
	model := &hostcfg.Model{}
	if appConfig.ConfigPath != "" {
		// The file is loaded with a bootstrap logger; the real one depends
		// on values the file itself may set.
		bootCtx := ctxlog.WithLogger(context.Background(), newLogger(defaultLogLevel, "text", outW))
		loaded, err := hostcfg.Load(bootCtx, appConfig.ConfigPath)
		if err != nil {
			panic(fmt.Errorf("failed to load configuration: %w", err))
		}
		model = loaded
	}

	model.ModulesPath = firstNonEmpty(appConfig.ModulesPath, model.ModulesPath, defaultModulesPath)
	model.LogLevel = firstNonEmpty(appConfig.LogLevel, model.LogLevel, defaultLogLevel)
	model.LogFormat = firstNonEmpty(appConfig.LogFormat, model.LogFormat, defaultLogFormat)

	logger := newLogger(model.LogLevel, model.LogFormat, outW)
	logger.Debug("Logger configured successfully.", "level", model.LogLevel, "format", model.LogFormat)

	return &App{
		outW:   outW,
		logger: logger,
		model:  model,
	}
}

// Registry returns the application's registry. This is primarily for
// testing; it is nil until Run has built it.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
