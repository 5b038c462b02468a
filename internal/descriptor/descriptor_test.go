package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecorateOnce_FirstWriteWins(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	d := New("example.cfg")

	// --- Act ---
	first := d.DecorateOnce("ownerModId", "alpha")
	second := d.DecorateOnce("ownerModId", "beta")

	// --- Assert ---
	assert.Equal(t, "alpha", first)
	assert.Equal(t, "alpha", second, "a memoized decoration must never be recomputed")

	stored, ok := d.Decoration("ownerModId")
	require.True(t, ok)
	assert.Equal(t, "alpha", stored)
}

func TestSymbolList_DeduplicatesAndPreservesOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	l := NewSymbolList("a.One", "a.Two")

	// --- Act ---
	addedNew := l.Add("a.Three")
	addedDup := l.Add("a.One")

	// --- Assert ---
	assert.True(t, addedNew)
	assert.False(t, addedDup)
	assert.Equal(t, []string{"a.One", "a.Two", "a.Three"}, l.Symbols())
	assert.Equal(t, 3, l.Len())
}

func TestAbsorbingList_ReportsSuccessWithoutGrowing(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	l := NewAbsorbingList()

	// --- Act & Assert ---
	for i := 0; i < 10; i++ {
		assert.True(t, l.Add("b.Symbol"), "the sink must always report success")
	}
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Symbols())
}

func TestFromRef_CarriesNamespaceAndSource(t *testing.T) {
	t.Parallel()

	// --- Act ---
	d := FromRef(Ref{ID: "x.cfg", Namespace: "com.x"}, "mods/x/manifest.hcl")

	// --- Assert ---
	assert.Equal(t, "x.cfg", d.ID)
	assert.Equal(t, "com.x", d.Namespace)
	assert.Equal(t, "mods/x/manifest.hcl", d.Source)
	require.NotNil(t, d.Targets, "a fresh descriptor must carry a retaining target list")
}
