package subst

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/fatal"
	"github.com/specialistvlad/pyxgo/internal/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namespaces map[string]*vars.Table

func (n namespaces) Namespace(name string) (*vars.Table, bool) {
	t, ok := n[name]
	return t, ok
}

func newTestContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

func TestString_Placeholders(t *testing.T) {
	global := vars.NewTableFrom("", map[string]any{
		"A":     "X",
		"MS":    "/data/obs1.ms/",
		"FITS":  "/tmp/foo.fits",
		"PLAIN": "foo",
		"STAGE": "",
		"DDID":  int64(0),
		"N":     int64(5),
		"NAME":  "5",
		"NONE":  nil,
	})
	std := vars.NewTableFrom("std", map[string]any{"OUTDIR": "/out"})
	ip := New(namespaces{"std": std, "": global})
	scope := NewScope(global)

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"bare name", "$A", "X"},
		{"undefined bare name", "$B", ""},
		{"braced", "${A}", "X"},
		{"literal without placeholders", "plain text", "plain text"},
		{"escaped dollar", "cost $$5", "cost $5"},
		{"lone dollar kept", "a $ b", "a $ b"},
		{"malformed braced kept", "${not valid}", "${not valid}"},
		{"embedded", "pre-$A-post", "pre-X-post"},
		{"BASE", "${FITS:BASE}", "foo"},
		{"BASE lower case command", "${FITS:base}", "foo"},
		{"BASE strips trailing slash", "${MS:BASE}", "obs1"},
		{"DIR", "${FITS:DIR}", "/tmp"},
		{"DIR without parent", "${PLAIN:DIR}", "."},
		{"prefix and suffix with value", "${X<NAME>Y}", "X5Y"},
		{"prefix and suffix with empty value", "${-stage<STAGE}", ""},
		{"prefix and suffix with absent value", "${X<MISSING>Y}", ""},
		{"zero is not empty", "${_spw<DDID}", "_spw0"},
		{"default for absent", "${MISSING?fallback}", "fallback"},
		{"default for nil", "${NONE?fallback}", "fallback"},
		{"default not used when set", "${A?fallback}", "X"},
		{"default with decoration", "${-<MISSING?d>-}", "-d-"},
		{"dotted namespace", "${std.OUTDIR}/plots", "/out/plots"},
		{"dotted missing variable", "${std.NOPE}", ""},
		{"dotted missing namespace", "${nope.OUTDIR}", ""},
		{"dotted default", "${std.NOPE?dflt}", "dflt"},
		{"empty namespace alias", "${.A}", "X"},
		{"integer value", "n=$N", "n=5"},
		{"percent form", "%(A)s and %(N)s", "X and 5"},
		{"percent escape", "100%%", "100%"},
		{"stray percent kept", "50% done", "50% done"},
		{"case-insensitive grammar", "${a?low}", "low"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ip.String(tc.in, scope))
		})
	}
}

func TestString_ScopeChainOrder(t *testing.T) {
	global := vars.NewTableFrom("", map[string]any{"A": "global", "B": "global-b"})
	locals := vars.Bindings{"A": "local", "B": nil}
	ip := New(nil)

	got := ip.String("$A/$B", NewScope(global, locals))
	assert.Equal(t, "local/global-b", got, "nil locals fall through to the next source")

	inner := vars.Bindings{"A": "inner"}
	got = ip.String("$A", NewScope(global, inner, locals))
	assert.Equal(t, "inner", got)
}

func TestString_Ignore(t *testing.T) {
	global := vars.NewTableFrom("", map[string]any{"A": "x", "B": "y"})
	ip := New(nil)
	assert.Equal(t, "-y", ip.String("$A-$B", NewScope(global), "A"))
}

func TestString_Idempotent(t *testing.T) {
	ip := New(nil)
	global := vars.NewTable("")
	in := "/data/obs1.ms plots-spw0"
	assert.Equal(t, in, ip.String(in, NewScope(global)))
	assert.Equal(t, in, ip.String(ip.String(in, NewScope(global)), NewScope(global)))
}

func TestValue_NonString(t *testing.T) {
	ip := New(nil)
	assert.Equal(t, int64(3), ip.Value(int64(3), nil))
	assert.Nil(t, ip.Value(nil, nil))
}

func TestMap_Converges(t *testing.T) {
	ctx := newTestContext()
	ip := New(nil)
	global := vars.NewTable("")

	got := ip.Map(ctx, map[string]any{"a": "$b", "b": "1"}, NewScope(global))
	assert.Empty(t, cmp.Diff(map[string]any{"a": "1", "b": "1"}, got))
}

func TestMap_ChainedEntriesAndGlobals(t *testing.T) {
	ctx := newTestContext()
	ip := New(nil)
	global := vars.NewTableFrom("", map[string]any{"OUTDIR": "/out"})
	in := map[string]any{
		"image":    "$prefix.fits",
		"residual": "${prefix}-residual.fits",
		"prefix":   "$OUTDIR/img",
		"npix":     int64(2048),
	}

	got := ip.Map(ctx, in, NewScope(global))

	want := map[string]any{
		"image":    "/out/img.fits",
		"residual": "/out/img-residual.fits",
		"prefix":   "/out/img",
		"npix":     int64(2048),
	}
	assert.Empty(t, cmp.Diff(want, got))
	assert.Equal(t, "$prefix.fits", in["image"], "input mapping is not modified")
}

func TestMap_SelfReference(t *testing.T) {
	ctx := newTestContext()
	ip := New(nil)
	global := vars.NewTableFrom("", map[string]any{"a": "global"})

	got := ip.Map(ctx, map[string]any{"a": "$a", "b": "${a}"}, NewScope(global))
	assert.Empty(t, cmp.Diff(map[string]any{"a": "$a", "b": "$a"}, got))
}

func TestMap_GrowingSelfReferenceAborts(t *testing.T) {
	ctx := newTestContext()
	ip := New(nil)
	global := vars.NewTableFrom("", map[string]any{"OUT": "global"})

	err := fatal.Catch(func() {
		ip.Map(ctx, map[string]any{"OUT": "${OUT}.fits"}, NewScope(global))
	})

	var fe *fatal.Error
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Message, "did not converge after 20 passes")
}

func TestMap_LongChainConverges(t *testing.T) {
	ctx := newTestContext()
	ip := New(nil)
	in := map[string]any{"k21": "end"}
	for i := 0; i < 21; i++ {
		in[fmt.Sprintf("k%d", i)] = fmt.Sprintf("$k%d", i+1)
	}

	got := ip.Map(ctx, in, NewScope(vars.NewTable("")))

	for k, v := range got {
		assert.Equal(t, "end", v, k)
	}
}

func TestMap_Skip(t *testing.T) {
	ctx := newTestContext()
	ip := New(nil)
	got := ip.Map(ctx, map[string]any{"a": "$b", "b": "1", "raw": "$b"}, NewScope(vars.NewTable("")), "raw")
	assert.Equal(t, "$b", got["raw"])
	assert.Equal(t, "1", got["a"])
}

func TestMap_CircularReferenceAborts(t *testing.T) {
	ctx := newTestContext()
	ip := New(nil)

	err := fatal.Catch(func() {
		ip.Map(ctx, map[string]any{"a": "$b", "b": "$a"}, NewScope(vars.NewTable("")))
	})

	require.Error(t, err)
	var fe *fatal.Error
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Message, "a -> b -> a")
}

func TestReferences(t *testing.T) {
	got := References("$A ${-<B>-} ${ns.C} %(D)s $A $$E")
	assert.Equal(t, []string{"D", "A", "B"}, got)
}
