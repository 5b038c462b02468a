package weaver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/loomgate/internal/ctxlog"
	"github.com/vk/loomgate/internal/descriptor"
)

// AdmissionHook observes every descriptor at the moment it is admitted into
// the registry. Returning true means admission was fully handled by the hook
// and the default admission logic must not run.
type AdmissionHook func(ctx context.Context, d *descriptor.Descriptor) bool

// Engine is the surface the orchestrator needs from the weaving engine.
type Engine interface {
	Register(ctx context.Context, d *descriptor.Descriptor) error
	All() []*descriptor.Descriptor
	SetAdmissionHook(hook AdmissionHook)
	AddSearchPath(path string)
	Reselect(ctx context.Context, env string) error
}

// Module is the interface compiled-in modules implement to contribute
// transformers to the engine.
type Module interface {
	Register(r *Registry)
}

// Registry is the weaving engine's descriptor registry. It holds admitted
// descriptors in registration order, the admission-callback hook point, and
// the descriptor-to-transformer delegation map rebuilt by Reselect.
type Registry struct {
	mu           sync.Mutex
	order        []string
	descriptors  map[string]*descriptor.Descriptor
	hook         AdmissionHook
	transformers []Transformer
	delegation   map[string]Transformer
	searchPaths  []string
	env          string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		descriptors: make(map[string]*descriptor.Descriptor),
		delegation:  make(map[string]Transformer),
	}
}

// SetAdmissionHook installs the admission callback. The hook point is single
// occupancy; installing a second hook replaces the first.
func (r *Registry) SetAdmissionHook(hook AdmissionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = hook
}

// Register admits a descriptor into the registry. The admission hook is
// invoked exactly once per admitted descriptor, before insertion, regardless
// of where the descriptor came from. A duplicate id is not re-admitted: the
// first registration wins and the duplicate is logged.
func (r *Registry) Register(ctx context.Context, d *descriptor.Descriptor) error {
	logger := ctxlog.FromContext(ctx)
	if d == nil {
		return fmt.Errorf("cannot register a nil descriptor")
	}
	if d.ID == "" {
		return fmt.Errorf("cannot register a descriptor with an empty id")
	}

	r.mu.Lock()
	if _, exists := r.descriptors[d.ID]; exists {
		r.mu.Unlock()
		logger.Warn("Descriptor already registered, keeping first registration.", "id", d.ID)
		return nil
	}
	hook := r.hook
	r.mu.Unlock()

	if hook != nil && hook(ctx, d) {
		logger.Debug("Descriptor admission handled by hook.", "id", d.ID)
	}

	r.mu.Lock()
	r.descriptors[d.ID] = d
	r.order = append(r.order, d.ID)
	r.mu.Unlock()

	logger.Debug("Descriptor admitted.", "id", d.ID, "namespace", d.Namespace, "targets", d.Targets.Len())
	return nil
}

// All returns the admitted descriptors in registration order.
func (r *Registry) All() []*descriptor.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*descriptor.Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.descriptors[id])
	}
	return out
}

// Get returns the descriptor registered under id.
func (r *Registry) Get(id string) (*descriptor.Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.descriptors[id]
	return d, ok
}

// AddSearchPath appends an archive path to the engine's symbol search path so
// late-discovered code can resolve.
func (r *Registry) AddSearchPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchPaths = append(r.searchPaths, path)
}

// SearchPaths returns the accumulated search path entries.
func (r *Registry) SearchPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.searchPaths))
	copy(out, r.searchPaths)
	return out
}

// Reselect invalidates the cached descriptor-to-transformer delegation map
// and recomputes it against the current descriptor set. Descriptors that
// match no transformer are left undelegated and logged; having no
// transformers at all is an error, since nothing registered in this
// environment could ever take effect.
func (r *Registry) Reselect(ctx context.Context, env string) error {
	logger := ctxlog.FromContext(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.transformers) == 0 {
		return fmt.Errorf("reselect for environment %q: no transformers registered", env)
	}

	r.env = env
	r.delegation = make(map[string]Transformer, len(r.order))
	undelegated := 0
	for _, id := range r.order {
		d := r.descriptors[id]
		t := r.selectTransformer(d)
		if t == nil {
			undelegated++
			logger.Debug("Descriptor matches no transformer.", "id", id, "namespace", d.Namespace)
			continue
		}
		r.delegation[id] = t
	}

	logger.Info("Transformer delegation recomputed.",
		"env", env,
		"descriptors", len(r.order),
		"delegated", len(r.delegation),
		"undelegated", undelegated,
	)
	return nil
}

// selectTransformer picks the transformer with the longest namespace prefix
// matching the descriptor's declared namespace. Caller holds r.mu.
func (r *Registry) selectTransformer(d *descriptor.Descriptor) Transformer {
	var best Transformer
	bestLen := -1
	for _, t := range r.transformers {
		prefix := t.Namespace()
		if !strings.HasPrefix(d.Namespace, prefix) {
			continue
		}
		if len(prefix) > bestLen {
			best = t
			bestLen = len(prefix)
		}
	}
	return best
}

// TransformerFor returns the transformer currently delegated for the
// descriptor id, as computed by the last Reselect.
func (r *Registry) TransformerFor(id string) (Transformer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.delegation[id]
	return t, ok
}
