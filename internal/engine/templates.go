package engine

import (
	"context"
	"fmt"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/fatal"
	"github.com/specialistvlad/pyxgo/internal/subst"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// MaxTemplatePasses bounds ResolveTemplates.
const MaxTemplatePasses = 100

type templateUpdate struct {
	table  *vars.Table
	module string
	name   string
	old    any
	value  any
}

// ResolveTemplates recomputes every templated variable until nothing changes.
// Each pass evaluates the templates of all namespaces and then the Context;
// updates are applied together at the end of the pass. String templates are
// interpolated through their own table and the Context, formulas are called.
// A configuration still changing after MaxTemplatePasses aborts the run.
// Afterwards the LOG and VERBOSE settings are applied.
func (e *Engine) ResolveTemplates(ctx context.Context) {
	stable := false
	for pass := 0; pass < MaxTemplatePasses; pass++ {
		var updates []templateUpdate
		for _, ns := range e.registry.Namespaces() {
			table, _ := e.registry.Namespace(ns)
			updates = append(updates, e.evalTemplates(ns, table, subst.NewScope(e.vars, table))...)
		}
		updates = append(updates, e.evalTemplates("", e.vars, e.Scope())...)

		if len(updates) == 0 {
			stable = true
			break
		}
		for _, u := range updates {
			u.table.Set(u.name, u.value)
			verb := "updated"
			if u.old == nil {
				verb = "initialized"
			}
			ctxlog.Verbose(ctx, 2, fmt.Sprintf("%s templated value %s.%s=%s", verb, u.module, u.name, vars.String(u.value)))
		}
	}
	if !stable {
		fatal.Abort(ctx, "Too many template assignment steps. This can be caused by templates that cross-reference each other")
	}
	e.syncLog(ctx)
	e.syncVerbose(ctx)
}

func (e *Engine) evalTemplates(module string, table *vars.Table, scope subst.Scope) []templateUpdate {
	var updates []templateUpdate
	for _, key := range table.Keys() {
		if !vars.IsTemplate(key) {
			continue
		}
		var value any
		switch t := table.Get(key, nil).(type) {
		case string:
			value = e.interp.String(t, scope)
		case vars.Formula:
			value = t()
		case func() any:
			value = t()
		default:
			continue
		}
		name := vars.TemplateBase(key)
		old := table.Get(name, nil)
		if vars.Equal(old, value) {
			continue
		}
		updates = append(updates, templateUpdate{table: table, module: module, name: name, old: old, value: value})
	}
	return updates
}

// syncLog points the output switch at the LOG destination.
func (e *Engine) syncLog(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	var dest string
	switch v := e.vars.Get(VarLog, nil).(type) {
	case nil:
	case string:
		dest = v
	default:
		logger.Warn(fmt.Sprintf("invalid %s variable of type %T, ignoring", VarLog, v))
		return
	}
	if err := e.out.Set(ctx, dest); err != nil {
		fatal.Abort(ctx, "cannot redirect log output: %v", err)
	}
}

// syncVerbose applies VERBOSE to the engine's log level.
func (e *Engine) syncVerbose(ctx context.Context) {
	if e.level == nil {
		return
	}
	raw := e.vars.Get(VarVerbose, nil)
	if raw == nil {
		return
	}
	var verbosity int64
	switch v := raw.(type) {
	case int64:
		verbosity = v
	case int:
		verbosity = int64(v)
	case string:
		parsed, kind := vars.ParseToken(v)
		if kind != vars.KindInteger {
			ctxlog.FromContext(ctx).Warn(fmt.Sprintf("invalid %s value %q, ignoring", VarVerbose, v))
			return
		}
		verbosity = parsed.(int64)
	default:
		ctxlog.FromContext(ctx).Warn(fmt.Sprintf("invalid %s variable of type %T, ignoring", VarVerbose, raw))
		return
	}
	e.level.Set(ctxlog.VerbosityLevel(int(verbosity)))
}
