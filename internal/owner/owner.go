// Package owner resolves which module owns a transformation descriptor,
// falling back from an authoritative capability table to the archive the
// descriptor was loaded from, and finally to a sentinel unknown owner.
package owner

import (
	"context"
	"path/filepath"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vk/loomgate/internal/ctxlog"
	"github.com/vk/loomgate/internal/descriptor"
	"github.com/vk/loomgate/internal/presence"
)

// Unknown is the sentinel owner returned when no resolution step succeeds.
const Unknown = "unknown"

// DecorationKey is the descriptor decoration under which the resolved owner
// is memoized.
const DecorationKey = "ownerModId"

// CapabilityTable is the authoritative external lookup, indexed by a
// descriptor's declared namespace. Its result is used only when it yields
// exactly one owner.
type CapabilityTable interface {
	OwnersForNamespace(namespace string) ([]string, error)
}

// StaticTable is a CapabilityTable backed by a namespace-prefix map.
type StaticTable map[string]string

// OwnersForNamespace implements CapabilityTable by prefix match.
func (t StaticTable) OwnersForNamespace(namespace string) ([]string, error) {
	var owners []string
	seen := make(map[string]struct{})
	for prefix, modid := range t {
		if len(namespace) < len(prefix) || namespace[:len(prefix)] != prefix {
			continue
		}
		if _, dup := seen[modid]; dup {
			continue
		}
		seen[modid] = struct{}{}
		owners = append(owners, modid)
	}
	return owners, nil
}

// Resolver implements the owner resolution chain. Results are memoized both
// on the descriptor (as a decoration) and in a shared cache, so a given
// descriptor id is never resolved twice in one boot.
type Resolver struct {
	table    CapabilityTable
	presence *presence.Registry
	cache    *xsync.MapOf[string, string]
}

// NewResolver creates a resolver. The capability table may be nil, in which
// case resolution starts at the archive fallback.
func NewResolver(table CapabilityTable, reg *presence.Registry) *Resolver {
	return &Resolver{
		table:    table,
		presence: reg,
		cache:    xsync.NewMapOf[string, string](),
	}
}

// Resolve returns the module id that owns the descriptor. First hit wins:
// authoritative table, then source-archive lookup, then Unknown.
func (r *Resolver) Resolve(ctx context.Context, d *descriptor.Descriptor) string {
	if owner, ok := d.Decoration(DecorationKey); ok {
		return owner
	}
	if owner, ok := r.cache.Load(d.ID); ok {
		return d.DecorateOnce(DecorationKey, owner)
	}

	owner := r.resolve(ctx, d)
	owner = d.DecorateOnce(DecorationKey, owner)
	r.cache.Store(d.ID, owner)
	return owner
}

func (r *Resolver) resolve(ctx context.Context, d *descriptor.Descriptor) string {
	logger := ctxlog.FromContext(ctx)

	if r.table != nil && d.Namespace != "" {
		owners, err := r.table.OwnersForNamespace(d.Namespace)
		switch {
		case err != nil:
			// The authoritative registry being unavailable must not
			// propagate; fall through to the archive lookup.
			logger.Warn("Capability table lookup failed, falling back to archive lookup.", "id", d.ID, "error", err)
		case len(owners) == 1:
			return owners[0]
		case len(owners) > 1:
			logger.Debug("Capability table returned multiple owners, falling back.", "id", d.ID, "owners", owners)
		}
	}

	if modid, ok := r.OwnerForSource(d.Source); ok {
		return modid
	}

	return Unknown
}

// OwnerForSource maps a descriptor source path to a module id through the
// presence registry's archive map.
func (r *Resolver) OwnerForSource(source string) (string, bool) {
	if source == "" {
		return "", false
	}
	archive := filepath.Base(filepath.Dir(source))
	return r.presence.ModuleForArchive(archive)
}

// OwnerForArchive maps an archive name directly to its primary module id,
// returning Unknown when the archive was never discovered.
func (r *Resolver) OwnerForArchive(archive string) string {
	if modid, ok := r.presence.ModuleForArchive(archive); ok {
		return modid
	}
	return Unknown
}

// Pin memoizes a known owner on a descriptor without running the resolution
// chain, for descriptors whose owning container is already known.
func (r *Resolver) Pin(d *descriptor.Descriptor, modid string) string {
	owner := d.DecorateOnce(DecorationKey, modid)
	r.cache.Store(d.ID, owner)
	return owner
}
