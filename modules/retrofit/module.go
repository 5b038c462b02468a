package retrofit

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/vk/loomgate/internal/capability"
	"github.com/vk/loomgate/internal/descriptor"
	"github.com/vk/loomgate/internal/weaver"
)

// Module ships the corrected descriptors that replace patched legacy ones.
// It contributes in the late phase only: its targets reference symbols that
// resolve only once module construction has started.
type Module struct {
	provider   *Provider
	coreLoaded atomic.Bool
}

// New creates the module.
func New() *Module {
	return &Module{provider: &Provider{}}
}

// Name identifies the module.
func (m *Module) Name() string { return "retrofit" }

// Register registers the retrofit transformer with the engine.
func (m *Module) Register(r *weaver.Registry) {
	r.RegisterTransformer(&transformer{})
}

// Container exposes the constructed provider for the host's lookup index.
func (m *Module) Container() *capability.Container {
	return &capability.Container{
		Name:     m.Name(),
		Archive:  "retrofit",
		Instance: m.provider,
	}
}

// Markers returns the declarative markers the container is indexed under.
func (m *Module) Markers() []string {
	return []string{capability.LateProviderMarker}
}

// CoreLoaded is the explicit notification target used by the legacy patch
// table for descriptors that need the core-loaded signal.
func (m *Module) CoreLoaded(ctx context.Context) {
	if m.coreLoaded.CompareAndSwap(false, true) {
		slog.Info("retrofit notified that core classes are loaded.")
	}
}

// CoreWasLoaded reports whether the notification arrived.
func (m *Module) CoreWasLoaded() bool {
	return m.coreLoaded.Load()
}

// Provider is the constructed container instance discovered in the late pass.
type Provider struct{}

// LateDescriptors implements capability.LateProvider.
func (p *Provider) LateDescriptors() []descriptor.Ref {
	return []descriptor.Ref{
		{ID: "retrofit.overlay.cfg", Namespace: "com.retrofit.overlay"},
	}
}

// AdmitDescriptor implements capability.AdmissionFilter. Retrofit admits its
// descriptors unconditionally; the hook exists so the owner-aware context is
// exercised end to end.
func (p *Provider) AdmitDescriptor(ac *capability.AdmissionContext) bool {
	return ac.Phase == capability.PhaseLate
}

type transformer struct{}

func (*transformer) Name() string      { return "retrofit-weaver" }
func (*transformer) Namespace() string { return "com.retrofit" }

func (*transformer) Transform(ctx context.Context, symbol string, code []byte) ([]byte, error) {
	return code, nil
}
