package patch

import "context"

// DefaultEntries is the fixed table of known-broken legacy descriptors.
// These ids were shipped by abandoned modules and reference target symbols
// that no longer resolve against current module versions; their targets are
// absorbed and a corrected descriptor id is registered in the late phase
// instead. coreLoaded may be nil if no module listens for the signal.
func DefaultEntries(coreLoaded func(ctx context.Context)) []Entry {
	return []Entry{
		{
			ID:           "legacy.widgetlib.cfg",
			Replacements: []string{"widgetlib.retrofit.cfg"},
		},
		{
			// Only the chunkio namespace variant of this id is broken; the
			// fork living under a different namespace still works.
			ID:              "legacy.chunkio.cfg",
			TargetNamespace: "com.legacy.chunkio.**",
			Replacements:    []string{"chunkio.retrofit.cfg", "chunkio.unthread.cfg"},
		},
		{
			ID:           "legacy.uilib.cfg",
			Replacements: []string{"uilib.retrofit.cfg"},
			Notify:       coreLoaded,
		},
	}
}
