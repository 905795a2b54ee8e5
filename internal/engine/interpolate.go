package engine

import (
	"context"
	"strings"

	"github.com/specialistvlad/pyxgo/internal/subst"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// Scope builds a lookup chain: locals in the given order, then the Context.
func (e *Engine) Scope(locals ...vars.Lookup) subst.Scope {
	return subst.NewScope(e.vars, locals...)
}

// Interpolate expands the placeholders of s through locals and the Context.
func (e *Engine) Interpolate(s string, locals ...vars.Lookup) string {
	return e.interp.String(s, e.Scope(locals...))
}

// InterpolateMap resolves the string values of m against each other, then
// against locals and the Context. The input is not modified.
func (e *Engine) InterpolateMap(ctx context.Context, m map[string]any, locals ...vars.Lookup) map[string]any {
	return e.interp.Map(ctx, m, e.Scope(locals...))
}

// InterpolateLocals resolves templates, then resolves the local bindings of a
// function against themselves and the Context and returns the values of the
// requested names in order. Each names argument may hold several
// space-separated names.
//
//	out := e.InterpolateLocals(ctx, vars.Bindings{"a": "$A", "b": "$a.1"}, "a b")
func (e *Engine) InterpolateLocals(ctx context.Context, locals map[string]any, names ...string) []any {
	e.ResolveTemplates(ctx)
	resolved := e.interp.Map(ctx, locals, e.Scope())
	var out []any
	for _, group := range names {
		for _, name := range strings.Fields(group) {
			out = append(out, resolved[name])
		}
	}
	return out
}
