package app

import (
	"context"
	"fmt"

	"github.com/vk/loomgate/internal/ctxlog"
)

// Run executes the boot sequence: discovery, early registration, native
// discovery, then the construction transition with final re-selection. Each
// step's per-item failures degrade in logs; an error returned here is a
// fatal boot error.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if err := a.orch.DiscoverModules(ctx, a.config.ModulesPath); err != nil {
		return fmt.Errorf("module discovery failed: %w", err)
	}

	if err := a.orch.CoremodsReady(ctx, a.coremods); err != nil {
		return fmt.Errorf("coremod handling failed: %w", err)
	}

	if err := a.orch.NativeDiscovery(ctx, a.config.ModulesPath); err != nil {
		return fmt.Errorf("native descriptor discovery failed: %w", err)
	}

	if err := a.orch.ConstructionStarting(ctx, a.index, a.config.Env); err != nil {
		return fmt.Errorf("construction transition failed: %w", err)
	}

	a.logger.Info("Boot sequence finished.",
		"modules", a.orch.Presence().Modules(),
		"descriptors", len(a.engine.All()),
		"disabled", a.orch.Disabled().IDs(),
	)
	a.logger.Debug("App.Run method finished.")
	return nil
}
