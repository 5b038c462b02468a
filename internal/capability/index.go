package capability

import "sync"

// LateProviderMarker is the declarative marker name late providers may be
// indexed under, as an alternative to implementing LateProvider directly.
const LateProviderMarker = "loomgate:late-provider"

// Container is an already-constructed module container as exposed by the
// host's lookup index.
type Container struct {
	Name     string
	Archive  string
	Instance any
}

// Index is the host-provided lookup used by the late gathering pass: by
// declarative marker name, and as a full scan for capability interfaces.
type Index interface {
	ByMarker(marker string) []*Container
	All() []*Container
}

// StaticIndex is an Index backed by in-memory maps, populated by the host
// from its constructed module containers.
type StaticIndex struct {
	mu       sync.Mutex
	all      []*Container
	byMarker map[string][]*Container
}

// NewStaticIndex creates an empty index.
func NewStaticIndex() *StaticIndex {
	return &StaticIndex{byMarker: make(map[string][]*Container)}
}

// Add indexes a container, optionally under one or more markers.
func (ix *StaticIndex) Add(c *Container, markers ...string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.all = append(ix.all, c)
	for _, m := range markers {
		ix.byMarker[m] = append(ix.byMarker[m], c)
	}
}

// ByMarker implements Index.
func (ix *StaticIndex) ByMarker(marker string) []*Container {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]*Container, len(ix.byMarker[marker]))
	copy(out, ix.byMarker[marker])
	return out
}

// All implements Index.
func (ix *StaticIndex) All() []*Container {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]*Container, len(ix.all))
	copy(out, ix.all)
	return out
}
