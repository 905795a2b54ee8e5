package engine

import (
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pyxgo/internal/testutil"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

type harness struct {
	ctx     context.Context
	log     *testutil.SafeBuffer
	streams *testutil.Streams
	fs      afero.Fs
	level   *slog.LevelVar
	e       *Engine
}

// newHarness builds an engine on fs. Commands are looked up in /bin and
// /usr/bin.
func newHarness(t *testing.T, fs afero.Fs) *harness {
	t.Helper()
	ctx, log := testutil.NewContext(t)
	streams := &testutil.Streams{}
	level := &slog.LevelVar{}
	e := New(Options{
		Fs:         fs,
		Stdout:     streams.Stdout(),
		Stderr:     streams.Stderr(),
		Level:      level,
		SearchPath: func() string { return "/bin:/usr/bin" },
		WorkDir:    "/work",
	})
	return &harness{ctx: ctx, log: log, streams: streams, fs: fs, level: level, e: e}
}

func TestEngine_IsolatedSessions(t *testing.T) {
	a := newHarness(t, afero.NewMemMapFs())
	b := newHarness(t, afero.NewMemMapFs())

	a.e.Set(a.ctx, "MS", "a.ms")
	assert.Equal(t, "a.ms", a.e.Get("MS", nil))
	assert.Nil(t, b.e.Get("MS", nil))
}

func TestEngine_GetDefaults(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	h.e.Context().Set("OUTDIR", "out")
	h.e.Context().Set("EMPTY", nil)

	assert.Equal(t, "out", h.e.Get("OUTDIR", "x"))
	assert.Equal(t, "out/plots", h.e.Get("MISSING", "$OUTDIR/plots"), "string defaults are interpolated")
	assert.Equal(t, int64(3), h.e.Get("EMPTY", int64(3)), "nil counts as absent")
	assert.Equal(t, "d", h.e.Get("nosuch.NAME", "d"))
}

func TestEngine_AssignDotted(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	std := vars.NewTableFrom("std", map[string]any{"STEP": int64(1), "OUTDIR": ""})
	h.e.Register(h.ctx, "std", std, "OUTDIR")

	h.e.Assign(h.ctx, "std.STEP", int64(2))
	assert.Equal(t, int64(2), std.Get("STEP", nil))
	assert.False(t, h.e.Context().Has("STEP"))

	h.e.Assign(h.ctx, "v.MS", "obs.ms")
	assert.Equal(t, "obs.ms", h.e.Context().Get("MS", nil))

	h.e.Assign(h.ctx, "std.OUTDIR", "out")
	assert.Equal(t, "out", h.e.Context().Get("OUTDIR", nil), "superglobals are assigned in the context")
	assert.Equal(t, "out", std.Get("OUTDIR", nil))

	h.e.Assign(h.ctx, "nosuch.X", "1")
	assert.Contains(t, h.log.String(), "Cannot assign to unknown namespace")
}

func TestEngine_SuperglobalPropagation(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())

	m1 := vars.NewTableFrom("m1", map[string]any{"X": "5"})
	h.e.Register(h.ctx, "pyxides.m1", m1, "X")
	assert.Equal(t, "5", h.e.Get("X", nil))

	m2 := vars.NewTableFrom("m2", map[string]any{"X": "9"})
	h.e.Register(h.ctx, "m2", m2, "X")
	assert.Equal(t, "5", m2.Get("X", nil))

	h.e.Set(h.ctx, "X", "7")
	assert.Equal(t, "7", m1.Get("X", nil))
	assert.Equal(t, "7", m2.Get("X", nil))

	ns, ok := h.e.Registry().Namespace("m1")
	require.True(t, ok, "package prefix is stripped")
	assert.Same(t, m1, ns)
}

func TestEngine_Describe(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	std := vars.NewTable("std")
	std.Define("OUTDIR", "", "base output directory")
	std.Define("LABEL", "", "decorative label")
	h.e.Register(h.ctx, "std", std, "OUTDIR")
	h.e.Context().Define("MS", "", "measurement set")

	assert.Equal(t, map[string]string{
		"v.MS":      "measurement set",
		"v.OUTDIR":  "base output directory",
		"std.LABEL": "decorative label",
	}, h.e.Describe())
}

func TestEngine_InterpolateLocals(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	h.e.Context().Set("A", "img")
	h.e.Context().Set("NAME_Template", "$A-final")

	got := h.e.InterpolateLocals(h.ctx, vars.Bindings{"a": "$A", "b": "$a.1", "c": "$NAME"}, "a b", "c")
	assert.Equal(t, []any{"img", "img.1", "img-final"}, got)
}

func TestEngine_InterpolateMapSelfReference(t *testing.T) {
	h := newHarness(t, afero.NewMemMapFs())
	h.e.Context().Set("OUT", "global")

	got := h.e.InterpolateMap(h.ctx, map[string]any{"a": "$a", "b": "${OUT}.fits"})
	assert.Equal(t, map[string]any{"a": "$a", "b": "global.fits"}, got)

	testutil.RequireAbort(t, "did not converge", func() {
		h.e.InterpolateMap(h.ctx, map[string]any{"OUT": "${OUT}.fits"})
	})
}

func TestEngine_MakeDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := newHarness(t, fs)
	require.NoError(t, fs.MkdirAll("/data", 0o755))
	h.e.Context().Set("OUTDIR", "/data/out")

	require.NoError(t, h.e.MakeDir(h.ctx, "$OUTDIR/plots/spw0"))
	ok, err := afero.DirExists(fs, "/data/out/plots/spw0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, h.log.String(), "creating directory /data/out")

	require.NoError(t, h.e.MakeDir(h.ctx, "$OUTDIR/plots"), "existing directories are fine")

	require.NoError(t, h.e.MakeDirLiteral(h.ctx, "/data/$lit"))
	ok, _ = afero.DirExists(fs, "/data/$lit")
	assert.True(t, ok)
}
