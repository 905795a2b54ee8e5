package registry

import (
	"context"
	"sort"
	"strings"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/fatal"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// DefaultPackagePrefix is stripped from module names on registration.
const DefaultPackagePrefix = "pyxides."

// contextAliases name the Context itself.
var contextAliases = []string{"", "v"}

// Registry holds the Context and all registered namespaces of one engine.
type Registry struct {
	context      *vars.Table
	namespaces   map[string]*vars.Table
	superglobals map[*vars.Table]map[string]struct{}
	prefix       string
}

// New creates a registry rooted at the given Context.
func New(context *vars.Table) *Registry {
	r := &Registry{
		context:      context,
		namespaces:   make(map[string]*vars.Table),
		superglobals: make(map[*vars.Table]map[string]struct{}),
		prefix:       DefaultPackagePrefix,
	}
	for _, alias := range contextAliases {
		r.namespaces[alias] = context
	}
	return r
}

// SetPackagePrefix changes the prefix stripped from registered module names.
func (r *Registry) SetPackagePrefix(prefix string) {
	r.prefix = prefix
}

// Context returns the global variable table.
func (r *Registry) Context() *vars.Table {
	return r.context
}

// Register adds table under name and synchronises its superglobals with the
// Context. Each superglobals argument may hold several whitespace-separated
// names. Registering the same table twice aborts the run. The canonical
// (prefix-stripped) module name is returned.
func (r *Registry) Register(ctx context.Context, name string, table *vars.Table, superglobals ...string) string {
	logger := ctxlog.FromContext(ctx)

	if table == r.context {
		fatal.Abort(ctx, "module '%s' attempts to register the global context", name)
	}
	if _, exists := r.superglobals[table]; exists {
		fatal.Abort(ctx, "module '%s' is already registered", name)
	}

	modname := strings.TrimPrefix(name, r.prefix)
	if old, exists := r.namespaces[modname]; exists {
		if old == r.context {
			fatal.Abort(ctx, "module name '%s' is reserved for the global context", modname)
		}
		logger.Warn("Module name already in use, replacing namespace.", "module", modname)
	}

	declared := make(map[string]struct{})
	for _, group := range superglobals {
		for _, sym := range strings.Fields(group) {
			declared[sym] = struct{}{}
		}
	}

	r.namespaces[modname] = table
	r.superglobals[table] = declared
	ctxlog.Verbose(ctx, 1, "Registered module.", "module", modname)

	for _, sym := range sortedSet(declared) {
		if v, ok := r.context.Lookup(sym); ok && v != nil {
			table.Set(sym, v)
			continue
		}
		r.context.Set(sym, table.Get(sym, nil))
	}

	r.Report(ctx, modname, table)
	return modname
}

// Namespace returns the table registered under name. "" and "v" return the
// Context.
func (r *Registry) Namespace(name string) (*vars.Table, bool) {
	t, ok := r.namespaces[name]
	return t, ok
}

// Namespaces returns the registered module names, sorted, without the Context
// aliases.
func (r *Registry) Namespaces() []string {
	names := make([]string, 0, len(r.namespaces))
	for name, t := range r.namespaces {
		if t == r.context {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSuperglobal reports whether table declared name as a superglobal.
func (r *Registry) IsSuperglobal(table *vars.Table, name string) bool {
	_, ok := r.superglobals[table][name]
	return ok
}

// Superglobals returns the names table declared, sorted.
func (r *Registry) Superglobals(table *vars.Table) []string {
	return sortedSet(r.superglobals[table])
}

// Propagate copies value into every namespace that declared name as a
// superglobal and returns the names of the namespaces updated.
func (r *Registry) Propagate(name string, value any) []string {
	var updated []string
	for _, modname := range r.Namespaces() {
		table := r.namespaces[modname]
		if r.IsSuperglobal(table, name) {
			table.Set(name, value)
			updated = append(updated, modname)
		}
	}
	return updated
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
