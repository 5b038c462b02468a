package weaver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loomgate/internal/descriptor"
)

type namedTransformer struct {
	name      string
	namespace string
}

func (t *namedTransformer) Name() string      { return t.name }
func (t *namedTransformer) Namespace() string { return t.namespace }
func (t *namedTransformer) Transform(_ context.Context, _ string, code []byte) ([]byte, error) {
	return code, nil
}

func TestRegister_HookFiresOncePerAdmission(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	hookCalls := 0
	r.SetAdmissionHook(func(_ context.Context, _ *descriptor.Descriptor) bool {
		hookCalls++
		return false
	})

	// --- Act ---
	require.NoError(t, r.Register(context.Background(), descriptor.New("one.cfg")))
	require.NoError(t, r.Register(context.Background(), descriptor.New("two.cfg")))
	// A duplicate id is not re-admitted, so the hook must not fire again.
	require.NoError(t, r.Register(context.Background(), descriptor.New("one.cfg")))

	// --- Assert ---
	assert.Equal(t, 2, hookCalls)
	assert.Len(t, r.All(), 2)
}

func TestRegister_KeepsFirstRegistrationForDuplicateID(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	first := descriptor.New("dup.cfg")
	second := descriptor.New("dup.cfg")

	// --- Act ---
	require.NoError(t, r.Register(context.Background(), first))
	require.NoError(t, r.Register(context.Background(), second))

	// --- Assert ---
	got, ok := r.Get("dup.cfg")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestRegister_RejectsNilAndEmptyID(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()

	// --- Act & Assert ---
	assert.Error(t, r.Register(context.Background(), nil))
	assert.Error(t, r.Register(context.Background(), &descriptor.Descriptor{}))
}

func TestReselect_DelegatesByLongestNamespacePrefix(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	broad := &namedTransformer{name: "broad", namespace: "com.acme"}
	narrow := &namedTransformer{name: "narrow", namespace: "com.acme.gui"}
	r.RegisterTransformer(broad)
	r.RegisterTransformer(narrow)

	d1 := descriptor.New("core.cfg")
	d1.Namespace = "com.acme.core"
	d2 := descriptor.New("gui.cfg")
	d2.Namespace = "com.acme.gui.widgets"
	d3 := descriptor.New("other.cfg")
	d3.Namespace = "org.elsewhere"
	require.NoError(t, r.Register(context.Background(), d1))
	require.NoError(t, r.Register(context.Background(), d2))
	require.NoError(t, r.Register(context.Background(), d3))

	// --- Act ---
	err := r.Reselect(context.Background(), "default")

	// --- Assert ---
	require.NoError(t, err)

	got, ok := r.TransformerFor("core.cfg")
	require.True(t, ok)
	assert.Equal(t, "broad", got.Name())

	got, ok = r.TransformerFor("gui.cfg")
	require.True(t, ok)
	assert.Equal(t, "narrow", got.Name())

	_, ok = r.TransformerFor("other.cfg")
	assert.False(t, ok, "a descriptor matching no transformer stays undelegated")
}

func TestReselect_FailsWithoutTransformers(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	require.NoError(t, r.Register(context.Background(), descriptor.New("lonely.cfg")))

	// --- Act ---
	err := r.Reselect(context.Background(), "default")

	// --- Assert ---
	require.Error(t, err, "re-selection with nothing to delegate to must fail loudly")
}

func TestRegisterTransformer_PanicsOnDuplicateName(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	r.RegisterTransformer(&namedTransformer{name: "dup", namespace: "a"})

	// --- Act & Assert ---
	assert.Panics(t, func() {
		r.RegisterTransformer(&namedTransformer{name: "dup", namespace: "b"})
	})
}

func TestAddSearchPath_Accumulates(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()

	// --- Act ---
	r.AddSearchPath("mods/alpha-1.0")
	r.AddSearchPath("mods/beta-2.0")

	// --- Assert ---
	assert.Equal(t, []string{"mods/alpha-1.0", "mods/beta-2.0"}, r.SearchPaths())
}
