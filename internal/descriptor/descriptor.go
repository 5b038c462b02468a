package descriptor

import "sync"

// Ref is a lightweight reference to a descriptor as declared by a capability
// provider, before the full descriptor object is built.
type Ref struct {
	ID        string
	Namespace string
}

// Descriptor is a named, declarative unit describing which code targets a
// transformation should apply to. The weaving engine owns the descriptor
// after admission; the target list may only be swapped at the moment of the
// admission callback.
type Descriptor struct {
	ID        string
	Namespace string
	// Source is the path of the manifest file the descriptor was loaded
	// from. Empty for descriptors contributed programmatically by providers.
	Source  string
	Targets TargetList

	mu          sync.Mutex
	decorations map[string]string
}

// New creates a descriptor with an empty, retaining target list.
func New(id string) *Descriptor {
	return &Descriptor{
		ID:      id,
		Targets: NewSymbolList(),
	}
}

// FromRef builds a descriptor from a provider-declared reference.
func FromRef(ref Ref, source string) *Descriptor {
	d := New(ref.ID)
	d.Namespace = ref.Namespace
	d.Source = source
	return d
}

// Decoration returns the decoration stored under key, if any.
func (d *Descriptor) Decoration(key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.decorations[key]
	return v, ok
}

// DecorateOnce stores value under key unless a value is already present, and
// returns the value that ended up stored. First write wins, so memoized
// decorations are never recomputed.
func (d *Descriptor) DecorateOnce(key, value string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.decorations[key]; ok {
		return existing
	}
	if d.decorations == nil {
		d.decorations = make(map[string]string)
	}
	d.decorations[key] = value
	return value
}

// ReplaceTargets swaps the descriptor's target list. Callers other than the
// admission callback must not use this after the descriptor is admitted.
func (d *Descriptor) ReplaceTargets(l TargetList) {
	d.Targets = l
}
