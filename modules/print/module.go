// Package print provides the "print" command, which writes its interpolated
// arguments to the current output destination.
package print

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/pyxgo/internal/engine"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// Module implements the engine.Module interface for this package.
type Module struct{}

// Register defines the print command in the Context.
func (m *Module) Register(ctx context.Context, e *engine.Engine) {
	e.Context().Define("print", vars.Func(func(ctx context.Context, args []any, kwargs map[string]any) error {
		return Print(e, args, kwargs)
	}), "print positional arguments on one line, then one 'key = value' line per keyword")
}

// Print writes args space-separated on one line, followed by kwargs sorted by
// key.
func Print(e *engine.Engine, args []any, kwargs map[string]any) error {
	w := e.Output().Stdout()
	if len(args) > 0 {
		words := make([]string, len(args))
		for i, a := range args {
			words[i] = vars.String(a)
		}
		if _, err := fmt.Fprintln(w, strings.Join(words, " ")); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "      %s = %q\n", k, vars.String(kwargs[k])); err != nil {
			return err
		}
	}
	return nil
}
