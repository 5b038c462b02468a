package gather

import (
	"context"
	"fmt"

	"github.com/vk/loomgate/internal/arbitration"
	"github.com/vk/loomgate/internal/capability"
	"github.com/vk/loomgate/internal/ctxlog"
	"github.com/vk/loomgate/internal/descriptor"
	"github.com/vk/loomgate/internal/owner"
	"github.com/vk/loomgate/internal/weaver"
)

// GatherEarly inspects the host-supplied coremod list in order, records every
// hijack claim into the disabled set, and returns the ordered,
// reference-de-duplicated list of early-provider instances. An entry of the
// wrong shape means the host handed us something we cannot interpret at all,
// which is fatal.
func GatherEarly(ctx context.Context, coremods []any, disabled *arbitration.DisabledSet) ([]any, error) {
	logger := ctxlog.FromContext(ctx)

	var providers []any
	seen := make(map[any]struct{})

	for i, raw := range coremods {
		cm, ok := raw.(*capability.Coremod)
		if !ok {
			return nil, fmt.Errorf("coremod list entry %d has unexpected shape %T", i, raw)
		}

		instance := cm.WrappedInstance()
		if instance == nil {
			logger.Warn("Coremod wraps no instance, skipping.", "coremod", cm.Name)
			continue
		}

		if hijacker, ok := instance.(capability.Hijacker); ok {
			for _, id := range hijacker.HijackedDescriptors() {
				disabled.Add(ctx, id, cm.Name)
			}
		}

		if _, ok := instance.(capability.EarlyProvider); ok {
			if _, dup := seen[instance]; dup {
				logger.Debug("Early provider already gathered, skipping duplicate.", "coremod", cm.Name)
				continue
			}
			seen[instance] = struct{}{}
			providers = append(providers, instance)
			logger.Debug("Gathered early provider.", "coremod", cm.Name)
		}
	}

	logger.Info("Early gathering finished.", "coremods", len(coremods), "providers", len(providers))
	return providers, nil
}

// ApplyEarly registers every admitted descriptor declared by the gathered
// providers. Each provider runs isolated: one provider failing or panicking
// is logged with its identity and does not abort the others.
func ApplyEarly(ctx context.Context, eng weaver.Engine, providers []any) {
	for _, p := range providers {
		provider := p
		runIsolated(ctx, providerName(provider), func() {
			applyProvider(ctx, eng, provider, provider.(capability.EarlyProvider).EarlyDescriptors(), capability.PhaseEarly, "", nil)
		})
	}
}

// applyProvider runs the admit-register-callback loop shared by the early
// and late passes. When the owning module is already known, it is memoized
// on each admitted descriptor through the resolver.
func applyProvider(ctx context.Context, eng weaver.Engine, provider any, refs []descriptor.Ref, phase capability.Phase, owningModule string, resolver *owner.Resolver) {
	logger := ctxlog.FromContext(ctx)
	filter, hasFilter := provider.(capability.AdmissionFilter)
	observer, hasObserver := provider.(capability.AdmissionObserver)

	for _, ref := range refs {
		ac := &capability.AdmissionContext{Ref: ref, Phase: phase, Owner: owningModule}
		if hasFilter && !filter.AdmitDescriptor(ac) {
			logger.Debug("Provider declined its own descriptor.", "provider", providerName(provider), "id", ref.ID, "phase", phase)
			continue
		}

		d := descriptor.FromRef(ref, "")
		if err := eng.Register(ctx, d); err != nil {
			logger.Error("Failed to register provider descriptor.", "provider", providerName(provider), "id", ref.ID, "error", err)
			continue
		}
		if resolver != nil && owningModule != "" && owningModule != owner.Unknown {
			resolver.Pin(d, owningModule)
		}
		if hasObserver {
			observer.DescriptorAdmitted(d)
		}
	}
}

// runIsolated runs fn and converts a panic into a logged per-provider
// failure, so the enclosing gathering loop keeps going.
func runIsolated(ctx context.Context, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Provider failed during registration pass.", "provider", name, "panic", r)
		}
	}()
	fn()
}

func providerName(p any) string {
	return fmt.Sprintf("%T", p)
}
