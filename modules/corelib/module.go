package corelib

import (
	"context"
	"log/slog"

	"github.com/vk/loomgate/internal/capability"
	"github.com/vk/loomgate/internal/descriptor"
	"github.com/vk/loomgate/internal/weaver"
)

// Module is the core library module. It ships its own descriptors in the
// early phase and claims the compat descriptor id so its authored version
// supersedes the one other archives would natively declare.
type Module struct {
	core *Core
}

// New creates the module.
func New() *Module {
	return &Module{core: &Core{}}
}

// Name identifies the module.
func (m *Module) Name() string { return "corelib" }

// Register registers the corelib transformer with the engine.
func (m *Module) Register(r *weaver.Registry) {
	r.RegisterTransformer(&transformer{})
}

// Coremod wraps the inner capability instance for the host's coremod list.
// The factory defers construction until the early gathering pass unwraps it.
func (m *Module) Coremod() *capability.Coremod {
	return capability.NewCoremod(m.Name(), func() any { return m.core })
}

// NamespaceClaims feeds the authoritative owner lookup table.
func (m *Module) NamespaceClaims() map[string]string {
	return map[string]string{"com.corelib.": "corelib"}
}

// Core is the wrapped instance discovered through the coremod list.
type Core struct{}

// EarlyDescriptors implements capability.EarlyProvider.
func (c *Core) EarlyDescriptors() []descriptor.Ref {
	return []descriptor.Ref{
		{ID: "corelib.weave.cfg", Namespace: "com.corelib.weave"},
		{ID: "corelib.compat.cfg", Namespace: "com.corelib.compat"},
	}
}

// HijackedDescriptors implements capability.Hijacker. The compat descriptor
// is also shipped by older archives under the same id; corelib's own copy
// must win.
func (c *Core) HijackedDescriptors() []string {
	return []string{"corelib.compat.cfg"}
}

// DescriptorAdmitted implements capability.AdmissionObserver.
func (c *Core) DescriptorAdmitted(d *descriptor.Descriptor) {
	slog.Debug("corelib descriptor admitted.", "id", d.ID)
}

// transformer is the weaver backend for the corelib namespace. The rewrite
// itself lives in the weaving engine's toolchain; this backend only anchors
// the delegation.
type transformer struct{}

func (*transformer) Name() string      { return "corelib-weaver" }
func (*transformer) Namespace() string { return "com.corelib" }

func (*transformer) Transform(ctx context.Context, symbol string, code []byte) ([]byte, error) {
	return code, nil
}
