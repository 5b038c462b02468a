package gather

import (
	"context"

	"github.com/vk/loomgate/internal/capability"
	"github.com/vk/loomgate/internal/ctxlog"
	"github.com/vk/loomgate/internal/owner"
	"github.com/vk/loomgate/internal/weaver"
)

// DiscoverLate finds late-capability providers through both discovery
// mechanisms: the declarative marker scan and the direct capability-interface
// scan over all constructed containers. Results are merged into a single set
// de-duplicated by container identity, preserving first-seen order.
func DiscoverLate(ctx context.Context, index capability.Index) []*capability.Container {
	logger := ctxlog.FromContext(ctx)

	var merged []*capability.Container
	seen := make(map[*capability.Container]struct{})

	add := func(c *capability.Container, mechanism string) {
		if _, dup := seen[c]; dup {
			logger.Debug("Late provider already discovered, skipping duplicate.", "container", c.Name, "mechanism", mechanism)
			return
		}
		seen[c] = struct{}{}
		merged = append(merged, c)
		logger.Debug("Discovered late provider.", "container", c.Name, "mechanism", mechanism)
	}

	for _, c := range index.ByMarker(capability.LateProviderMarker) {
		add(c, "marker")
	}
	for _, c := range index.All() {
		if _, ok := c.Instance.(capability.LateProvider); ok {
			add(c, "interface")
		}
	}

	logger.Info("Late discovery finished.", "providers", len(merged))
	return merged
}

// ApplyLate registers the descriptors declared by the discovered late
// providers, with an owner-aware admission context. Errors are isolated per
// provider, as in the early pass.
func ApplyLate(ctx context.Context, eng weaver.Engine, resolver *owner.Resolver, containers []*capability.Container) {
	logger := ctxlog.FromContext(ctx)

	for _, c := range containers {
		container := c
		runIsolated(ctx, container.Name, func() {
			provider, ok := container.Instance.(capability.LateProvider)
			if !ok {
				// Indexed under the marker but never grew the capability.
				logger.Warn("Marked container does not provide late descriptors, skipping.", "container", container.Name)
				return
			}

			owningModule := resolver.OwnerForArchive(container.Archive)
			applyProvider(ctx, eng, container.Instance, provider.LateDescriptors(), capability.PhaseLate, owningModule, resolver)
		})
	}
}
