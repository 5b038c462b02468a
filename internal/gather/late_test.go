package gather

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loomgate/internal/capability"
	"github.com/vk/loomgate/internal/descriptor"
	"github.com/vk/loomgate/internal/owner"
	"github.com/vk/loomgate/internal/presence"
	"github.com/vk/loomgate/internal/weaver"
)

// lateStub declares late descriptors and records the admission contexts it
// was consulted with.
type lateStub struct {
	refs     []descriptor.Ref
	contexts []*capability.AdmissionContext
}

func (s *lateStub) LateDescriptors() []descriptor.Ref { return s.refs }

func (s *lateStub) AdmitDescriptor(ac *capability.AdmissionContext) bool {
	s.contexts = append(s.contexts, ac)
	return true
}

// scannedResolver builds an owner resolver over a real scan of one archive.
func scannedResolver(t *testing.T, archive, modid string) *owner.Resolver {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, archive)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	metadata := fmt.Sprintf(`[{"modid": %q}]`, modid)
	require.NoError(t, os.WriteFile(filepath.Join(dir, presence.MetadataFileName), []byte(metadata), 0o600))

	reg := presence.NewRegistry()
	require.NoError(t, reg.Scan(context.Background(), root))
	reg.Freeze()
	return owner.NewResolver(nil, reg)
}

func TestDiscoverLate_MergesBothMechanismsWithoutDuplicates(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	both := &capability.Container{Name: "both", Instance: &lateStub{}}
	markerOnly := &capability.Container{Name: "marker-only", Instance: struct{}{}}
	interfaceOnly := &capability.Container{Name: "interface-only", Instance: &lateStub{}}
	plain := &capability.Container{Name: "plain", Instance: struct{}{}}

	ix := capability.NewStaticIndex()
	ix.Add(both, capability.LateProviderMarker)
	ix.Add(markerOnly, capability.LateProviderMarker)
	ix.Add(interfaceOnly)
	ix.Add(plain)

	// --- Act ---
	found := DiscoverLate(context.Background(), ix)

	// --- Assert ---
	require.Len(t, found, 3)
	assert.Same(t, both, found[0], "marker-discovered containers come first")
	assert.Same(t, markerOnly, found[1])
	assert.Same(t, interfaceOnly, found[2])
}

func TestApplyLate_SkipsMarkedContainerWithoutCapability(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	eng := weaver.New()
	resolver := owner.NewResolver(nil, frozenPresence())
	marked := &capability.Container{Name: "marked", Instance: struct{}{}}

	// --- Act ---
	ApplyLate(context.Background(), eng, resolver, []*capability.Container{marked})

	// --- Assert ---
	assert.Empty(t, eng.All())
}

func TestApplyLate_ResolvesAndPinsOwner(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	eng := weaver.New()
	resolver := scannedResolver(t, "delta-4.1", "delta")
	provider := &lateStub{refs: []descriptor.Ref{{ID: "delta.late.cfg", Namespace: "com.delta"}}}
	container := &capability.Container{Name: "delta-container", Archive: "delta-4.1", Instance: provider}

	// --- Act ---
	ApplyLate(context.Background(), eng, resolver, []*capability.Container{container})

	// --- Assert ---
	require.Len(t, provider.contexts, 1)
	assert.Equal(t, capability.PhaseLate, provider.contexts[0].Phase)
	assert.Equal(t, "delta", provider.contexts[0].Owner, "the late admission context carries the resolved owner")

	d, ok := eng.Get("delta.late.cfg")
	require.True(t, ok)
	stored, ok := d.Decoration(owner.DecorationKey)
	require.True(t, ok)
	assert.Equal(t, "delta", stored, "the resolved owner is memoized on the admitted descriptor")
}

func TestApplyLate_UnknownArchiveStillRegisters(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	eng := weaver.New()
	resolver := owner.NewResolver(nil, frozenPresence())
	provider := &lateStub{refs: []descriptor.Ref{{ID: "stray.cfg"}}}
	container := &capability.Container{Name: "stray", Archive: "never-scanned", Instance: provider}

	// --- Act ---
	ApplyLate(context.Background(), eng, resolver, []*capability.Container{container})

	// --- Assert ---
	d, ok := eng.Get("stray.cfg")
	require.True(t, ok)
	_, decorated := d.Decoration(owner.DecorationKey)
	assert.False(t, decorated, "an unresolvable owner is not memoized as a false positive")
	require.Len(t, provider.contexts, 1)
	assert.Equal(t, owner.Unknown, provider.contexts[0].Owner)
}

func frozenPresence() *presence.Registry {
	reg := presence.NewRegistry()
	reg.Freeze()
	return reg
}
