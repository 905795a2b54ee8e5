package engine

import (
	"context"

	"github.com/specialistvlad/pyxgo/internal/config"
	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/fatal"
)

// LoadConfig loads configuration files into the Context and the registered
// namespaces, then resolves templates and reports the global symbols. Without
// arguments the files matching config.DefaultPattern in the working directory
// are loaded. File names are interpolated. Unreadable or malformed files abort
// the run.
func (e *Engine) LoadConfig(ctx context.Context, files ...string) {
	logger := ctxlog.FromContext(ctx)
	if len(files) == 0 {
		found, err := e.loader.Discover(e.workDir, config.DefaultPattern)
		if err != nil {
			fatal.Abort(ctx, "cannot list configuration files: %v", err)
		}
		if len(found) > 0 {
			ctxlog.Verbose(ctx, 1, "auto-loading config files from '"+config.DefaultPattern+"'")
		}
		files = found
	}

	for _, file := range files {
		file = e.Interpolate(file)
		ctxlog.Verbose(ctx, 1, "loading "+file)
		assignments, err := e.loader.Load(ctx, file, e.configVariables())
		if err != nil {
			fatal.Abort(ctx, "error parsing %s: %v", file, err)
		}
		for _, a := range assignments {
			e.Assign(ctx, a.Target(), a.Value)
		}
		logger.Debug("Configuration applied.", "file", file, "assignments", len(assignments))
	}

	e.ResolveTemplates(ctx)
	e.registry.Report(ctx, "global", e.vars)
}

func (e *Engine) configVariables() config.Variables {
	v := config.Variables{
		Globals:    e.vars.Snapshot(),
		Namespaces: make(map[string]map[string]any),
	}
	for _, ns := range e.registry.Namespaces() {
		table, _ := e.registry.Namespace(ns)
		v.Namespaces[ns] = table.Snapshot()
	}
	return v
}
