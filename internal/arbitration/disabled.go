// Package arbitration holds the disabled-descriptor set consulted by the
// native discovery pass. A module claiming a descriptor id here supersedes
// the descriptor that would otherwise be auto-discovered under that id.
package arbitration

import (
	"context"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vk/loomgate/internal/ctxlog"
)

// DisabledSet is the set of descriptor ids withheld from native discovery.
// It is written only during the early gathering phase and read continuously
// by the host afterwards, so it is backed by a concurrency-safe map.
type DisabledSet struct {
	claims *xsync.MapOf[string, string]
}

// NewDisabledSet creates an empty set.
func NewDisabledSet() *DisabledSet {
	return &DisabledSet{claims: xsync.NewMapOf[string, string]()}
}

// Add records a claim on a descriptor id. The first claimant's identity is
// kept; a duplicate claim is accepted as a no-op and logged, not rejected.
// Reports whether the claim was the first one.
func (s *DisabledSet) Add(ctx context.Context, id, claimant string) bool {
	logger := ctxlog.FromContext(ctx)
	prev, loaded := s.claims.LoadOrStore(id, claimant)
	if loaded {
		logger.Info("Duplicate claim on descriptor id, already disabled.", "id", id, "first", prev, "duplicate", claimant)
		return false
	}
	logger.Info("Descriptor id disabled for native discovery.", "id", id, "claimant", claimant)
	return true
}

// Contains reports whether the id has been claimed.
func (s *DisabledSet) Contains(id string) bool {
	_, ok := s.claims.Load(id)
	return ok
}

// Claimant returns the identity that first claimed the id.
func (s *DisabledSet) Claimant(id string) (string, bool) {
	return s.claims.Load(id)
}

// IDs returns a sorted snapshot of the claimed ids.
func (s *DisabledSet) IDs() []string {
	var out []string
	s.claims.Range(func(id string, _ string) bool {
		out = append(out, id)
		return true
	})
	sort.Strings(out)
	return out
}
