package registry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/fatal"
	"github.com/specialistvlad/pyxgo/internal/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(buf *bytes.Buffer) context.Context {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

func TestRegister_SuperglobalPropagation(t *testing.T) {
	ctx := newTestContext(&bytes.Buffer{})
	global := vars.NewTable("")
	reg := New(global)

	m1 := vars.NewTableFrom("m1", map[string]any{"X": "5"})
	reg.Register(ctx, "m1", m1, "X")
	assert.Equal(t, "5", global.Get("X", nil), "first registrant seeds the context")

	m2 := vars.NewTableFrom("m2", map[string]any{"X": "9"})
	reg.Register(ctx, "m2", m2, "X")
	assert.Equal(t, "5", m2.Get("X", nil), "later registrant inherits the context value")
	assert.Equal(t, "5", global.Get("X", nil))
}

func TestRegister_PreseededContextWins(t *testing.T) {
	ctx := newTestContext(&bytes.Buffer{})
	global := vars.NewTableFrom("", map[string]any{"MS": "obs.ms"})
	reg := New(global)

	mod := vars.NewTableFrom("cal", map[string]any{"MS": ""})
	reg.Register(ctx, "cal", mod, "MS LSM", "DDID")

	assert.Equal(t, "obs.ms", mod.Get("MS", nil))
	assert.True(t, global.Has("LSM"), "absent superglobals are created in the context")
	assert.Nil(t, global.Get("LSM", nil))
	assert.Equal(t, []string{"DDID", "LSM", "MS"}, reg.Superglobals(mod))
}

func TestRegister_DuplicateAborts(t *testing.T) {
	ctx := newTestContext(&bytes.Buffer{})
	reg := New(vars.NewTable(""))
	mod := vars.NewTable("std")
	reg.Register(ctx, "std", mod)

	err := fatal.Catch(func() { reg.Register(ctx, "std2", mod) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegister_ContextAliasesReserved(t *testing.T) {
	ctx := newTestContext(&bytes.Buffer{})
	global := vars.NewTable("")
	reg := New(global)

	err := fatal.Catch(func() { reg.Register(ctx, "v", vars.NewTable("v")) })
	require.Error(t, err)

	err = fatal.Catch(func() { reg.Register(ctx, "again", global) })
	require.Error(t, err)
}

func TestRegister_StripsPackagePrefix(t *testing.T) {
	ctx := newTestContext(&bytes.Buffer{})
	global := vars.NewTable("")
	reg := New(global)
	mod := vars.NewTable("std")

	name := reg.Register(ctx, "pyxides.std", mod)

	assert.Equal(t, "std", name)
	got, ok := reg.Namespace("std")
	require.True(t, ok)
	assert.Same(t, mod, got)
	assert.Equal(t, []string{"std"}, reg.Namespaces())

	for _, alias := range []string{"", "v"} {
		got, ok := reg.Namespace(alias)
		require.True(t, ok)
		assert.Same(t, global, got)
	}
}

func TestPropagate(t *testing.T) {
	ctx := newTestContext(&bytes.Buffer{})
	reg := New(vars.NewTable(""))
	a := vars.NewTable("a")
	b := vars.NewTable("b")
	c := vars.NewTable("c")
	reg.Register(ctx, "a", a, "OUTDIR")
	reg.Register(ctx, "b", b, "OUTDIR")
	reg.Register(ctx, "c", c)

	updated := reg.Propagate("OUTDIR", "/out")

	assert.Equal(t, []string{"a", "b"}, updated)
	assert.Equal(t, "/out", a.Get("OUTDIR", nil))
	assert.Equal(t, "/out", b.Get("OUTDIR", nil))
	assert.False(t, c.Has("OUTDIR"))
}

type fakeTool struct{}

func (fakeTool) ShellCommand() string { return "/bin/true" }
func (fakeTool) Invoke(context.Context, []any, map[string]any) error {
	return nil
}

func TestClassify(t *testing.T) {
	table := vars.NewTableFrom("std", map[string]any{
		"OUTDIR":           "",
		"STEP":             int64(1),
		"OUTFILE_Template": "${DESTDIR>/}out",
		"stamp_Template":   vars.Formula(func() any { return "x" }),
		"makedir":          vars.Func(func(context.Context, []any, map[string]any) error { return nil }),
		"remove":           fakeTool{},
		"_private":         "hidden",
	})

	syms := Classify(table, []string{"OUTDIR"})

	assert.Equal(t, []string{"STEP"}, syms.Variables)
	assert.Equal(t, []string{"makedir"}, syms.Functions)
	assert.Equal(t, []string{"remove"}, syms.Tools)
	assert.Equal(t, []string{"OUTFILE", "stamp"}, syms.Templates)
	assert.Equal(t, []string{"OUTDIR"}, syms.Superglobals)
}

func TestReport_LogsAtTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	ctx := newTestContext(&buf)
	reg := New(vars.NewTable(""))
	reg.Register(ctx, "std", vars.NewTableFrom("std", map[string]any{"LABEL": ""}))

	assert.Contains(t, buf.String(), "std variables: LABEL")
}
