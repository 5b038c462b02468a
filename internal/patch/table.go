package patch

import (
	"context"
	"sync/atomic"

	"github.com/gobwas/glob"
	"github.com/vk/loomgate/internal/ctxlog"
	"github.com/vk/loomgate/internal/descriptor"
	"github.com/vk/loomgate/internal/weaver"
)

// Entry maps one known-broken legacy descriptor id to its repair actions.
type Entry struct {
	// ID is the legacy descriptor id the entry matches.
	ID string
	// TargetNamespace optionally refines the match with a glob over the
	// descriptor's declared target-symbol namespace. Empty matches any.
	TargetNamespace string
	// Replacements are scheduled for late-phase registration when the entry
	// fires.
	Replacements []string
	// Notify is an optional side effect, used by the few modules that need
	// an explicit "core loaded" signal.
	Notify func(ctx context.Context)
}

type compiledEntry struct {
	Entry
	matcher glob.Glob
}

// Table intercepts descriptor admissions and repairs the fixed set of legacy
// descriptors it knows about: their target lists are neutralized and their
// replacement ids are scheduled for late registration.
type Table struct {
	entries map[string][]compiledEntry
	armed   atomic.Bool
	sched   Scheduled
}

// NewTable builds a table from entries. A malformed namespace qualifier is a
// programmer error in the static table and panics.
func NewTable(entries []Entry) *Table {
	t := &Table{entries: make(map[string][]compiledEntry, len(entries))}
	for _, e := range entries {
		ce := compiledEntry{Entry: e}
		if e.TargetNamespace != "" {
			ce.matcher = glob.MustCompile(e.TargetNamespace, '.')
		}
		t.entries[e.ID] = append(t.entries[e.ID], ce)
	}
	return t
}

// Arm installs the table as the engine's admission hook. Arming happens
// exactly once; re-arm calls are no-ops.
func (t *Table) Arm(ctx context.Context, eng weaver.Engine) {
	logger := ctxlog.FromContext(ctx)
	if !t.armed.CompareAndSwap(false, true) {
		logger.Debug("Patch table already armed, ignoring re-arm.")
		return
	}
	eng.SetAdmissionHook(t.OnAdmission)
	logger.Info("Legacy patch table armed.", "entries", len(t.entries))
}

// Armed reports whether the table has been armed.
func (t *Table) Armed() bool {
	return t.armed.Load()
}

// OnAdmission is the admission callback. On a table hit it schedules the
// entry's replacements, swaps the descriptor's target list for an absorbing
// sink, runs the entry's side effect, and returns true so default admission
// logic is skipped. On a miss it returns false and the descriptor passes
// through unmodified.
func (t *Table) OnAdmission(ctx context.Context, d *descriptor.Descriptor) bool {
	logger := ctxlog.FromContext(ctx)

	entry, ok := t.match(d)
	if !ok {
		return false
	}

	t.sched.add(entry.Replacements...)

	if d.Targets == nil {
		// The host handed us a descriptor shape the table cannot repair.
		// Fatal for this descriptor's repair, but other modules' descriptors
		// must still be processed, so the boot continues.
		logger.Error("Legacy descriptor has no target list to neutralize, leaving it untouched.",
			"id", d.ID, "namespace", d.Namespace)
	} else {
		dropped := d.Targets.Len()
		d.ReplaceTargets(descriptor.NewAbsorbingList())
		logger.Info("Neutralized legacy descriptor.",
			"id", d.ID, "dropped_targets", dropped, "replacements", entry.Replacements)
	}

	if entry.Notify != nil {
		entry.Notify(ctx)
	}
	return true
}

// match finds the first entry for the descriptor's id whose namespace
// qualifier (if any) matches the descriptor's declared namespace.
func (t *Table) match(d *descriptor.Descriptor) (compiledEntry, bool) {
	for _, ce := range t.entries[d.ID] {
		if ce.matcher == nil || ce.matcher.Match(d.Namespace) {
			return ce, true
		}
	}
	return compiledEntry{}, false
}

// DrainScheduled consumes the scheduled legacy replacements exactly once.
func (t *Table) DrainScheduled() ([]string, error) {
	return t.sched.Drain()
}

// ScheduledIDs returns a snapshot of the currently scheduled replacement ids
// without consuming them.
func (t *Table) ScheduledIDs() []string {
	return t.sched.snapshot()
}
