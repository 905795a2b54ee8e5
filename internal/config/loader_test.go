package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/pyxgo/internal/testutil"
)

type flat struct {
	Target string
	Value  any
}

func flatten(as []Assignment) []flat {
	out := make([]flat, len(as))
	for i, a := range as {
		out[i] = flat{Target: a.Target(), Value: a.Value}
	}
	return out
}

func TestLoader_Load(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	fs := afero.NewMemMapFs()
	src := `
OUTDIR = "out"
MS     = "obs.ms"
NITER  = 1000
CELL   = 0.5
CLEAN  = true
DEST   = "$${OUTDIR}/plots-$MS"
LABEL  = "${upper(PREFIX)}-${MS}"
BANDS  = [1, 2]

namespace "std" {
  STEP = 2
  NEXT = std.STEP + 1
}
`
	require.NoError(t, afero.WriteFile(fs, "/cfg/pyxis.hcl", []byte(src), 0o644))

	got, err := NewLoader(fs).Load(ctx, "/cfg/pyxis.hcl", Variables{
		Globals:    map[string]any{"PREFIX": "img"},
		Namespaces: map[string]map[string]any{"std": {"STEP": int64(1)}},
	})
	require.NoError(t, err)

	want := []flat{
		{Target: "OUTDIR", Value: "out"},
		{Target: "MS", Value: "obs.ms"},
		{Target: "NITER", Value: int64(1000)},
		{Target: "CELL", Value: 0.5},
		{Target: "CLEAN", Value: true},
		{Target: "DEST", Value: "${OUTDIR}/plots-$MS"},
		{Target: "LABEL", Value: "IMG-obs.ms"},
		{Target: "BANDS", Value: []any{int64(1), int64(2)}},
		{Target: "std.STEP", Value: int64(2)},
		{Target: "std.NEXT", Value: int64(3)},
	}
	if diff := cmp.Diff(want, flatten(got)); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_NamespaceBlocksBetweenAttributes(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	fs := afero.NewMemMapFs()
	src := "A = \"1\"\nnamespace \"m\" {\n  X = \"2\"\n}\nB = \"${A}3\"\nnamespace \"n\" {\n  Y = m.X\n}\n"
	require.NoError(t, afero.WriteFile(fs, "/w/c.hcl", []byte(src), 0o644))

	got, err := NewLoader(fs).Load(ctx, "/w/c.hcl", Variables{})
	require.NoError(t, err)

	want := []flat{
		{Target: "A", Value: "1"},
		{Target: "B", Value: "13"},
		{Target: "m.X", Value: "2"},
		{Target: "n.Y", Value: "2"},
	}
	if diff := cmp.Diff(want, flatten(got)); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_Errors(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	fs := afero.NewMemMapFs()
	loader := NewLoader(fs)

	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{name: "syntax", src: `A = "unterminated`, wantErr: "failed to parse"},
		{name: "unknown variable", src: `A = MISSING`, wantErr: "MISSING"},
		{name: "unknown block", src: "other {\n}\n", wantErr: "Unexpected \"other\" block"},
		{name: "nested block", src: "namespace \"m\" {\n  inner {\n  }\n}\n", wantErr: "Blocks are not allowed here"},
		{name: "unlabeled namespace", src: "namespace {\n}\n", wantErr: "failed to decode"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, afero.WriteFile(fs, "/bad.hcl", []byte(tc.src), 0o644))
			_, err := loader.Load(ctx, "/bad.hcl", Variables{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	_, err := loader.Load(ctx, "/missing.hcl", Variables{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestLoader_Discover(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{"/work/pyxis-b.hcl", "/work/pyxis-a.hcl", "/work/other.hcl", "/work/sub/pyxis.hcl"} {
		require.NoError(t, afero.WriteFile(fs, name, []byte(""), 0o644))
	}
	loader := NewLoader(fs)

	files, err := loader.Discover("/work", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/pyxis-a.hcl", "/work/pyxis-b.hcl"}, files)

	files, err = loader.Discover("/work", "**/*.hcl")
	require.NoError(t, err)
	assert.Len(t, files, 4)

	files, err = loader.Discover("/nowhere", "")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestToCty_SkipsCallables(t *testing.T) {
	_, ok := ToCty(func() any { return 1 })
	assert.False(t, ok)
	_, ok = ToCty(&struct{ N int }{N: 1})
	assert.False(t, ok, "executors and other structs are not config values")

	v, ok := ToCty(int64(7))
	require.True(t, ok)
	got, err := FromCty(v)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	got, err = FromCty(mustCty(t, map[string]any{"a": "x"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "x"}, got)
}

func mustCty(t *testing.T, v any) cty.Value {
	t.Helper()
	val, ok := ToCty(v)
	require.True(t, ok)
	return val
}
