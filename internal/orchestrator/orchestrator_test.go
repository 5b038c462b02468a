package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loomgate/internal/capability"
	"github.com/vk/loomgate/internal/descriptor"
	"github.com/vk/loomgate/internal/presence"
	"github.com/vk/loomgate/internal/weaver"
)

// countingEngine wraps the real registry and counts re-selection passes.
type countingEngine struct {
	*weaver.Registry
	reselects int
}

func (e *countingEngine) Reselect(ctx context.Context, env string) error {
	e.reselects++
	return e.Registry.Reselect(ctx, env)
}

// passthroughTransformer delegates for every namespace.
type passthroughTransformer struct{}

func (passthroughTransformer) Name() string      { return "passthrough" }
func (passthroughTransformer) Namespace() string { return "" }
func (passthroughTransformer) Transform(_ context.Context, _ string, code []byte) ([]byte, error) {
	return code, nil
}

// betaCore hijacks a descriptor id and provides one early descriptor.
type betaCore struct{}

func (*betaCore) HijackedDescriptors() []string { return []string{"legacy.cfg"} }
func (*betaCore) EarlyDescriptors() []descriptor.Ref {
	return []descriptor.Ref{{ID: "beta.early.cfg", Namespace: "com.beta"}}
}

// alphaLate provides one descriptor during construction.
type alphaLate struct{}

func (*alphaLate) LateDescriptors() []descriptor.Ref {
	return []descriptor.Ref{{ID: "alpha.late.cfg", Namespace: "com.alpha"}}
}

// countingEarly records how many times its descriptors were requested.
type countingEarly struct {
	calls int
}

func (p *countingEarly) EarlyDescriptors() []descriptor.Ref {
	p.calls++
	return []descriptor.Ref{{ID: "counted.cfg"}}
}

func writeFixture(t *testing.T, root, archive string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, archive)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
}

func newCountingEngine() *countingEngine {
	reg := weaver.New()
	reg.RegisterTransformer(passthroughTransformer{})
	return &countingEngine{Registry: reg}
}

func TestBootSequence_EndToEnd(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	writeFixture(t, root, "alpha-1.0", map[string]string{
		presence.MetadataFileName: `[{"modid": "alpha"}]`,
		"weave.hcl": `
descriptor "alpha.native.cfg" {
  namespace = "com.alpha"
  targets   = ["alpha.Widget"]
}

descriptor "legacy.cfg" {
  namespace = "com.alpha.legacy"
  targets   = ["alpha.Old"]
}

descriptor "legacy.widgetlib.cfg" {
  namespace = "com.legacy.widgetlib"
  targets   = ["widgetlib.Broken"]
}
`,
	})
	writeFixture(t, root, "beta-2.0", map[string]string{
		presence.MetadataFileName: `[{"modid": "beta"}]`,
	})

	eng := newCountingEngine()
	o := New(Options{Engine: eng})

	coremods := []any{capability.NewCoremod("beta", &betaCore{})}

	ix := capability.NewStaticIndex()
	ix.Add(&capability.Container{Name: "alpha", Archive: "alpha-1.0", Instance: &alphaLate{}})

	ctx := context.Background()

	// --- Act ---
	require.NoError(t, o.DiscoverModules(ctx, root))
	require.NoError(t, o.CoremodsReady(ctx, coremods))
	require.NoError(t, o.NativeDiscovery(ctx, root))
	require.NoError(t, o.ConstructionStarting(ctx, ix, "default"))

	// --- Assert ---
	assert.True(t, o.Presence().Has("alpha"))
	assert.True(t, o.Presence().Has("beta"))

	// The hijack claim kept the natively discovered duplicate out.
	assert.True(t, o.Disabled().Contains("legacy.cfg"))
	_, ok := eng.Get("legacy.cfg")
	assert.False(t, ok, "a claimed id must never enter the engine through native discovery")

	_, ok = eng.Get("beta.early.cfg")
	assert.True(t, ok)
	_, ok = eng.Get("alpha.native.cfg")
	assert.True(t, ok)
	_, ok = eng.Get("alpha.late.cfg")
	assert.True(t, ok)

	// The broken legacy descriptor was neutralized and its replacement
	// registered in the late phase.
	broken, ok := eng.Get("legacy.widgetlib.cfg")
	require.True(t, ok)
	assert.Equal(t, 0, broken.Targets.Len())
	_, ok = eng.Get("widgetlib.retrofit.cfg")
	assert.True(t, ok)

	assert.Equal(t, []string{"alpha-1.0", "beta-2.0"}, eng.SearchPaths())
	assert.Equal(t, 1, eng.reselects, "re-selection runs exactly once per boot")
}

func TestCoremodsReady_SecondSignalIsIgnored(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	eng := newCountingEngine()
	o := New(Options{Engine: eng})
	provider := &countingEarly{}
	coremods := []any{capability.NewCoremod("counted", provider)}
	ctx := context.Background()

	// --- Act ---
	require.NoError(t, o.CoremodsReady(ctx, coremods))
	require.NoError(t, o.CoremodsReady(ctx, coremods))

	// --- Assert ---
	assert.Equal(t, 1, provider.calls, "the early pass must not run twice")
	assert.Len(t, o.EarlyProviders(), 1)
}

func TestConstructionStarting_SecondSignalIsIgnored(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	eng := newCountingEngine()
	o := New(Options{Engine: eng})
	ix := capability.NewStaticIndex()
	ctx := context.Background()

	// --- Act ---
	require.NoError(t, o.ConstructionStarting(ctx, ix, "default"))
	err := o.ConstructionStarting(ctx, ix, "default")

	// --- Assert ---
	require.NoError(t, err, "a repeat signal is a logged no-op, not a drain failure")
	assert.Equal(t, 1, eng.reselects)
}

func TestCoremodsReady_MalformedListIsFatal(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	o := New(Options{Engine: newCountingEngine()})

	// --- Act ---
	err := o.CoremodsReady(context.Background(), []any{"bogus"})

	// --- Assert ---
	require.Error(t, err)
}

func TestNew_RequiresEngine(t *testing.T) {
	t.Parallel()

	// --- Act & Assert ---
	assert.Panics(t, func() { New(Options{}) })
	assert.NotEmpty(t, New(Options{Engine: newCountingEngine()}).SessionID())
}
