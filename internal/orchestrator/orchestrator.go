package orchestrator

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vk/loomgate/internal/arbitration"
	"github.com/vk/loomgate/internal/ctxlog"
	"github.com/vk/loomgate/internal/owner"
	"github.com/vk/loomgate/internal/patch"
	"github.com/vk/loomgate/internal/presence"
	"github.com/vk/loomgate/internal/weaver"
)

// Options configures a new Orchestrator.
type Options struct {
	// Engine is the weaving engine the orchestrator fronts. Required.
	Engine weaver.Engine
	// Patches overrides the legacy patch table. Defaults to the built-in
	// table with no core-loaded listener.
	Patches *patch.Table
	// Owners is the authoritative capability table for owner resolution.
	// Optional.
	Owners owner.CapabilityTable
}

// Orchestrator owns the process-scoped registration state for one boot
// session: the module presence registry, the disabled-descriptor set, the
// legacy patch table, and the owner resolver. It is constructed once at boot
// and passed by handle to every component, so tests get isolation from fresh
// instances.
type Orchestrator struct {
	sessionID string
	engine    weaver.Engine
	presence  *presence.Registry
	disabled  *arbitration.DisabledSet
	patches   *patch.Table
	resolver  *owner.Resolver

	earlyProviders []any
	earlyFired     atomic.Bool
	lateFired      atomic.Bool
}

// New creates an orchestrator for a single boot session.
func New(opts Options) *Orchestrator {
	if opts.Engine == nil {
		panic("orchestrator requires a weaving engine")
	}
	patches := opts.Patches
	if patches == nil {
		patches = patch.NewTable(patch.DefaultEntries(nil))
	}
	reg := presence.NewRegistry()
	return &Orchestrator{
		sessionID: uuid.NewString(),
		engine:    opts.Engine,
		presence:  reg,
		disabled:  arbitration.NewDisabledSet(),
		patches:   patches,
		resolver:  owner.NewResolver(opts.Owners, reg),
	}
}

// SessionID identifies this boot session in logs.
func (o *Orchestrator) SessionID() string { return o.sessionID }

// Presence returns the module presence registry.
func (o *Orchestrator) Presence() *presence.Registry { return o.presence }

// Disabled returns the disabled-descriptor set consulted by native discovery.
func (o *Orchestrator) Disabled() *arbitration.DisabledSet { return o.disabled }

// Patches returns the legacy patch table.
func (o *Orchestrator) Patches() *patch.Table { return o.patches }

// Resolver returns the owner resolution service.
func (o *Orchestrator) Resolver() *owner.Resolver { return o.resolver }

// EarlyProviders returns the ordered provider set gathered from the coremod
// list, for diagnostics and tests.
func (o *Orchestrator) EarlyProviders() []any { return o.earlyProviders }

// logger returns the context logger with the session id attached.
func (o *Orchestrator) logger(ctx context.Context) *slog.Logger {
	return ctxlog.FromContext(ctx).With("session", o.sessionID)
}
