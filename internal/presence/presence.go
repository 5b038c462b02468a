package presence

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vk/loomgate/internal/ctxlog"
)

// Registry records which modules are present in the process and which archive
// each module was loaded from. Population happens once during boot, but
// ordinary loading activity on other threads may query it mid-scan, so both
// maps are concurrency-safe and readers never observe torn entries.
type Registry struct {
	archives *xsync.MapOf[string, string]
	modids   *xsync.MapOf[string, struct{}]
	frozen   atomic.Bool
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		archives: xsync.NewMapOf[string, string](),
		modids:   xsync.NewMapOf[string, struct{}](),
	}
}

// record adds a module id, and optionally the first-seen archive mapping for
// it. Appends after Freeze are ignored and logged.
func (r *Registry) record(ctx context.Context, archive, modid string) {
	logger := ctxlog.FromContext(ctx)
	if r.frozen.Load() {
		logger.Warn("Presence registry is frozen, ignoring late discovery.", "modid", modid, "archive", archive)
		return
	}
	r.modids.Store(modid, struct{}{})
	if archive == "" {
		return
	}
	if prev, loaded := r.archives.LoadOrStore(archive, modid); loaded && prev != modid {
		logger.Debug("Archive already mapped, keeping first module id.", "archive", archive, "kept", prev, "ignored", modid)
	}
}

// Freeze publishes the read-only view. No mutation is visible to readers
// afterwards.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether discovery has completed.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Has reports whether the module id was discovered.
func (r *Registry) Has(modid string) bool {
	_, ok := r.modids.Load(modid)
	return ok
}

// ModuleForArchive returns the primary module id recorded for an archive.
func (r *Registry) ModuleForArchive(archive string) (string, bool) {
	return r.archives.Load(archive)
}

// Modules returns a sorted snapshot of all discovered module ids.
func (r *Registry) Modules() []string {
	var out []string
	r.modids.Range(func(modid string, _ struct{}) bool {
		out = append(out, modid)
		return true
	})
	sort.Strings(out)
	return out
}

// Archives returns a sorted snapshot of all recorded archive names.
func (r *Registry) Archives() []string {
	var out []string
	r.archives.Range(func(archive string, _ string) bool {
		out = append(out, archive)
		return true
	})
	sort.Strings(out)
	return out
}
