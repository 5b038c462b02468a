package orchestrator

import (
	"context"
	"fmt"

	"github.com/vk/loomgate/internal/capability"
	"github.com/vk/loomgate/internal/descriptor"
	"github.com/vk/loomgate/internal/gather"
	"github.com/vk/loomgate/internal/manifest"
)

// DiscoverModules runs the boot-time metadata scan and freezes the presence
// view. A failure to enumerate resources is fatal, since nothing downstream
// can function without the presence registry.
func (o *Orchestrator) DiscoverModules(ctx context.Context, roots ...string) error {
	logger := o.logger(ctx)
	if err := o.presence.Scan(ctx, roots...); err != nil {
		return err
	}
	o.presence.Freeze()
	logger.Info("Module presence frozen.", "modules", o.presence.Modules())
	return nil
}

// CoremodsReady is the "coremod list ready" lifecycle callback. It fires
// exactly once: it arms the legacy patch table ahead of any admission, then
// runs the early gathering pass and registers the gathered providers'
// descriptors. A malformed coremod list is fatal.
func (o *Orchestrator) CoremodsReady(ctx context.Context, coremods []any) error {
	logger := o.logger(ctx)
	if !o.earlyFired.CompareAndSwap(false, true) {
		logger.Debug("Coremod list already consumed, ignoring repeat signal.")
		return nil
	}

	// Armed before the first admission so native discovery is observed too.
	o.patches.Arm(ctx, o.engine)

	providers, err := gather.GatherEarly(ctx, coremods, o.disabled)
	if err != nil {
		return fmt.Errorf("early gathering failed: %w", err)
	}
	o.earlyProviders = providers

	gather.ApplyEarly(ctx, o.engine, providers)
	logger.Info("Early registration finished.", "providers", len(providers), "disabled", o.disabled.IDs())
	return nil
}

// NativeDiscovery is the host's own descriptor-discovery pass: it loads the
// declarative manifests shipped inside module archives and registers every
// descriptor whose id has not been claimed by a hijacker.
func (o *Orchestrator) NativeDiscovery(ctx context.Context, dir string) error {
	logger := o.logger(ctx)

	descriptors, err := manifest.LoadDir(ctx, dir)
	if err != nil {
		return err
	}

	registered, skipped := 0, 0
	for _, d := range descriptors {
		if o.disabled.Contains(d.ID) {
			claimant, _ := o.disabled.Claimant(d.ID)
			logger.Info("Skipping natively discovered descriptor, id is claimed.", "id", d.ID, "claimant", claimant)
			skipped++
			continue
		}
		if err := o.engine.Register(ctx, d); err != nil {
			logger.Error("Failed to register natively discovered descriptor.", "id", d.ID, "source", d.Source, "error", err)
			continue
		}
		registered++
	}

	logger.Info("Native discovery finished.", "registered", registered, "skipped", skipped)
	return nil
}

// ConstructionStarting is the "module construction starting" lifecycle
// callback. It fires exactly once: propagates archives to the engine's
// search path, runs the late gathering pass, drains the scheduled legacy
// replacements, and forces re-selection. Re-selection failure is fatal —
// without it none of the late registrations would take effect.
func (o *Orchestrator) ConstructionStarting(ctx context.Context, index capability.Index, env string) error {
	logger := o.logger(ctx)
	if !o.lateFired.CompareAndSwap(false, true) {
		logger.Debug("Construction transition already handled, ignoring repeat signal.")
		return nil
	}

	for _, archive := range o.presence.Archives() {
		o.engine.AddSearchPath(archive)
	}

	containers := gather.DiscoverLate(ctx, index)
	gather.ApplyLate(ctx, o.engine, o.resolver, containers)

	replacements, err := o.patches.DrainScheduled()
	if err != nil {
		return fmt.Errorf("failed to consume scheduled legacy replacements: %w", err)
	}
	for _, id := range replacements {
		if err := o.engine.Register(ctx, descriptor.New(id)); err != nil {
			logger.Error("Failed to register legacy replacement descriptor.", "id", id, "error", err)
		}
	}
	logger.Info("Scheduled legacy replacements registered.", "count", len(replacements))

	if err := o.engine.Reselect(ctx, env); err != nil {
		return fmt.Errorf("re-selection after late registration failed: %w", err)
	}
	logger.Info("Late registration finished.", "providers", len(containers), "replacements", len(replacements), "env", env)
	return nil
}
