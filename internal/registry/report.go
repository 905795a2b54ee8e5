package registry

import (
	"context"
	"sort"
	"strings"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// ShellTool is implemented by values wrapping an external command.
type ShellTool interface {
	ShellCommand() string
}

// Symbols is the classification of a table's exposed names.
type Symbols struct {
	Variables    []string
	Functions    []string
	Tools        []string
	Templates    []string
	Superglobals []string
}

// Classify sorts the public names of table into variables, functions, external
// tools and templates. Names starting with "_" and the given superglobals are
// left out of the first four groups.
func Classify(table *vars.Table, superglobals []string) Symbols {
	skip := make(map[string]struct{}, len(superglobals))
	for _, s := range superglobals {
		skip[s] = struct{}{}
	}

	syms := Symbols{Superglobals: superglobals}
	for _, name := range table.Keys() {
		if strings.HasPrefix(name, "_") {
			continue
		}
		if _, ok := skip[name]; ok {
			continue
		}
		if vars.IsTemplate(name) {
			syms.Templates = append(syms.Templates, vars.TemplateBase(name))
			continue
		}
		v, _ := table.Lookup(name)
		switch v.(type) {
		case ShellTool:
			syms.Tools = append(syms.Tools, name)
		case vars.Callable, vars.Formula, func() any:
			syms.Functions = append(syms.Functions, name)
		default:
			syms.Variables = append(syms.Variables, name)
		}
	}
	sort.Strings(syms.Templates)
	return syms
}

// Report logs the classification of table. It has no effect on the engine.
func (r *Registry) Report(ctx context.Context, modname string, table *vars.Table) Symbols {
	var superglobals []string
	if table != r.context {
		superglobals = r.Superglobals(table)
	}
	syms := Classify(table, superglobals)
	label := modname
	if label == "" {
		label = "global"
	}
	report := func(kind string, names []string) {
		if len(names) > 0 {
			ctxlog.Verbose(ctx, 2, label+" "+kind+": "+strings.Join(names, " "))
		}
	}
	report("superglobals", syms.Superglobals)
	report("functions", syms.Functions)
	report("external tools", syms.Tools)
	report("variables", syms.Variables)
	report("templates for", syms.Templates)
	return syms
}
