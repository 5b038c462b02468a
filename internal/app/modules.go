package app

import (
	"context"

	"github.com/vk/loomgate/internal/capability"
	"github.com/vk/loomgate/internal/weaver"
	"github.com/vk/loomgate/modules/corelib"
	"github.com/vk/loomgate/modules/retrofit"
)

// Module is a compiled-in loomgate module.
type Module interface {
	weaver.Module
	Name() string
}

// CoremodSupplier is implemented by modules that participate in the early
// gathering pass through the host's coremod list.
type CoremodSupplier interface {
	Coremod() *capability.Coremod
}

// ContainerSupplier is implemented by modules whose constructed container is
// visible to the late gathering pass through the host index.
type ContainerSupplier interface {
	Container() *capability.Container
	Markers() []string
}

// NamespaceClaimer is implemented by modules that claim target-symbol
// namespaces for the authoritative owner lookup.
type NamespaceClaimer interface {
	NamespaceClaims() map[string]string
}

// CoreLoadedListener is implemented by modules that need the explicit
// "core loaded" notification emitted by the legacy patch table.
type CoreLoadedListener interface {
	CoreLoaded(ctx context.Context)
}

// coreModules is the definitive list of all modules that are compiled into
// the loomgate binary.
var coreModules = []Module{
	corelib.New(),
	retrofit.New(),
}
