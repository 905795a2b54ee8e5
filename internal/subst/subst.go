// Package subst implements placeholder interpolation over an explicit scope
// chain.
//
// Placeholders take the form $name or ${[PREFIX<]NAME[?DEFAULT][:BASE|DIR][>SUFFIX]}.
// Substitution is safe: anything that cannot be resolved becomes an empty
// string, never an error.
package subst

import (
	"context"
	"sort"
	"strings"

	"github.com/specialistvlad/pyxgo/internal/fatal"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// MaxMapPasses bounds the self-referential mapping resolution in Map.
const MaxMapPasses = 20

// Scope is an ordered chain of lookup sources: caller-local bindings first,
// the Context last. It is built per call and never stored by the interpolator.
type Scope []vars.Lookup

// NewScope builds a chain of locals (innermost first) followed by global.
func NewScope(global vars.Lookup, locals ...vars.Lookup) Scope {
	s := make(Scope, 0, len(locals)+1)
	s = append(s, locals...)
	return append(s, global)
}

// Resolve walks the chain and returns the first non-nil value for name.
func (s Scope) Resolve(name string) any {
	for _, src := range s {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(name); ok && v != nil {
			return v
		}
	}
	return nil
}

// Namespaces gives access to explicitly named namespaces for dotted
// placeholders such as ${std.OUTDIR}.
type Namespaces interface {
	Namespace(name string) (*vars.Table, bool)
}

// Interpolator substitutes placeholders.
type Interpolator struct {
	namespaces Namespaces
}

// New creates an interpolator. ns may be nil, in which case every dotted
// placeholder resolves to the empty string.
func New(ns Namespaces) *Interpolator {
	return &Interpolator{namespaces: ns}
}

// String interpolates s through scope. Names listed in ignore always resolve
// to the empty string.
func (ip *Interpolator) String(s string, scope Scope, ignore ...string) string {
	var ig map[string]struct{}
	if len(ignore) > 0 {
		ig = make(map[string]struct{}, len(ignore))
		for _, name := range ignore {
			ig[name] = struct{}{}
		}
	}
	return ip.expand(s, scope, ig)
}

// Value interpolates v if it is a string and returns any other value as is.
func (ip *Interpolator) Value(v any, scope Scope) any {
	if s, ok := v.(string); ok {
		return ip.expand(s, scope, nil)
	}
	return v
}

// Values interpolates a positional argument list.
func (ip *Interpolator) Values(args []any, scope Scope) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = ip.Value(a, scope)
	}
	return out
}

// Keywords interpolates a keyword argument mapping into a new map.
func (ip *Interpolator) Keywords(kwargs map[string]any, scope Scope) map[string]any {
	out := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		out[k] = ip.Value(v, scope)
	}
	return out
}

// Map resolves a mapping whose string entries may reference each other. It
// works on a copy of m with the chain [copy, scope...], re-interpolating every
// string entry not listed in skip until nothing changes. While an entry is
// resolved, a placeholder naming exactly its current value expands to "".
// Circular references between entries, or a mapping still changing after
// MaxMapPasses passes, abort the run.
func (ip *Interpolator) Map(ctx context.Context, m map[string]any, scope Scope, skip ...string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, k := range skip {
		skipped[k] = struct{}{}
	}

	if cycle := findCycle(out, skipped); cycle != nil {
		fatal.Abort(ctx, "mapping interpolation does not converge: circular reference %s", strings.Join(cycle, " -> "))
	}

	chain := append(Scope{vars.Bindings(out)}, scope...)
	keys := sortedKeys(out)
	for pass := 0; pass < MaxMapPasses; pass++ {
		updates := make(map[string]string)
		for _, k := range keys {
			if _, ok := skipped[k]; ok {
				continue
			}
			s, ok := out[k].(string)
			if !ok {
				continue
			}
			if nv := ip.expand(s, chain, map[string]struct{}{s: {}}); nv != s {
				updates[k] = nv
			}
		}
		if len(updates) == 0 {
			return out
		}
		for k, v := range updates {
			out[k] = v
		}
	}
	fatal.Abort(ctx, "mapping interpolation did not converge after %d passes", MaxMapPasses)
	return nil
}

func (ip *Interpolator) expand(s string, scope Scope, ignore map[string]struct{}) string {
	if !strings.ContainsAny(s, "$%") {
		return s
	}
	s = percentPattern.ReplaceAllStringFunc(s, func(match string) string {
		if match == "%%" {
			return "%"
		}
		return ip.lookupItem(match[2:len(match)-2], scope, ignore)
	})
	if !strings.Contains(s, "$") {
		return s
	}

	var b strings.Builder
	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(s[last:loc[0]])
		last = loc[1]
		switch {
		case loc[2*groupEscaped] >= 0:
			b.WriteByte('$')
		case loc[2*groupNamed] >= 0:
			b.WriteString(ip.lookupItem(s[loc[2*groupNamed]:loc[2*groupNamed+1]], scope, ignore))
		case loc[2*groupBraced] >= 0:
			b.WriteString(ip.lookupItem(s[loc[2*groupBraced]:loc[2*groupBraced+1]], scope, ignore))
		default:
			b.WriteByte('$')
		}
	}
	b.WriteString(s[last:])
	return b.String()
}

// lookupItem resolves one placeholder item to its final text.
func (ip *Interpolator) lookupItem(item string, scope Scope, ignore map[string]struct{}) string {
	ph, ok := parseItem(item)
	if !ok {
		return ""
	}
	if _, skip := ignore[ph.Name]; skip {
		return ""
	}

	var value any
	if nsName, varName, dotted := splitNamespace(ph.Name); dotted {
		if ip.namespaces == nil {
			return ""
		}
		ns, ok := ip.namespaces.Namespace(nsName)
		if !ok {
			return ""
		}
		value, _ = ns.Lookup(varName)
	} else {
		value = scope.Resolve(ph.Name)
	}
	if value == nil && ph.HasDefault {
		value = ph.Default
	}

	if str, ok := value.(string); ok {
		switch ph.Command {
		case "BASE":
			value = baseName(str)
		case "DIR":
			value = dirName(str)
		}
	}

	text := vars.String(value)
	if text == "" {
		return ""
	}
	return ph.Prefix + text + ph.Suffix
}

// findCycle looks for a chain of string entries referencing each other in a
// loop and returns it, or nil. Self references are left to the pass bound:
// "$a" in entry a is stable, "${a}.fits" keeps growing.
func findCycle(m map[string]any, skipped map[string]struct{}) []string {
	edges := make(map[string][]string)
	for k, v := range m {
		if _, ok := skipped[k]; ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		for _, ref := range References(s) {
			if ref == k {
				continue
			}
			if _, ok := skipped[ref]; ok {
				continue
			}
			if _, ok := m[ref].(string); ok {
				edges[k] = append(edges[k], ref)
			}
		}
	}

	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int)
	var stack []string
	var visit func(k string) []string
	visit = func(k string) []string {
		state[k] = active
		stack = append(stack, k)
		for _, next := range edges[k] {
			switch state[next] {
			case active:
				for i, name := range stack {
					if name == next {
						return append(append([]string{}, stack[i:]...), next)
					}
				}
			case unvisited:
				if c := visit(next); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[k] = done
		return nil
	}
	for _, k := range sortedKeys(m) {
		if state[k] == unvisited {
			if c := visit(k); c != nil {
				return c
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
