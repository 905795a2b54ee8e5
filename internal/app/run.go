package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/engine"
	"github.com/specialistvlad/pyxgo/internal/fatal"
)

// Run registers the modules, loads configuration and executes the
// directives, then waits for background commands. A fatal abort is returned
// as a *fatal.Error.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	err := fatal.Catch(func() {
		for _, mod := range a.modules {
			mod.Register(ctx, a.engine)
		}
		a.logger.Debug("All Go modules registered.", "count", len(a.modules))

		a.engine.LoadConfig(ctx, a.config.ConfigFiles...)
		if a.config.Verbose != NoVerbosity {
			a.engine.Set(ctx, engine.VarVerbose, int64(a.config.Verbose))
		}

		if a.config.List {
			a.list()
			return
		}
		a.engine.Run(ctx, a.config.Directives...)
	})

	if werr := a.engine.Close(ctx); werr != nil && err == nil {
		err = fmt.Errorf("background commands failed: %w", werr)
	}
	a.logger.Debug("App.Run method finished.")
	return err
}

// list prints the documented variables and commands.
func (a *App) list() {
	docs := a.engine.Describe()
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.outW, "  %-20s %s\n", name, docs[name])
	}
}
