package app

import (
	"context"
	"fmt"

	"github.com/vk/modgate/internal/ctxlog"
	"github.com/vk/modgate/internal/invoker"
	"github.com/vk/modgate/internal/registry"
)

// Run executes the main application logic: build the registry from the
// modules directory, then drive every configured invocation through its
// module's invoker. Modules without a usable invoker are skipped with a
// warning, never an error.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	reg, err := registry.Build(ctx, a.model.ModulesPath)
	if err != nil {
		return fmt.Errorf("failed to build module registry: %w", err)
	}
	a.registry = reg
	a.logger.Info("Module registry ready.", "modules", reg.Len(), "names", reg.Names())

	for _, inv := range a.model.Invocations {
		entry, ok := reg.Lookup(inv.Module)
		if !ok {
			a.logger.Warn("Configured invocation names an unknown module, skipping.", "module", inv.Module)
			continue
		}
		if entry.Invoker == nil {
			a.logger.Warn("Module has no usable invoker, skipping.", "module", inv.Module)
			continue
		}

		req := &invoker.Request{RawBody: inv.RawBody}
		result, err := entry.Invoker.Invoke(ctx, req)
		switch {
		case err != nil:
			a.logger.Error("Handler failed.", "module", inv.Module, "error", err)
		case req.Status != 0:
			a.logger.Warn("Invocation rejected.", "module", inv.Module, "status", req.Status, "body", req.Body)
		default:
			a.logger.Info("Invocation succeeded.", "module", inv.Module, "result", result)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
