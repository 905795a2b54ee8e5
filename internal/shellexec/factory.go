package shellexec

import (
	"context"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/subst"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// Factory creates executors sharing a fail policy and background flag. An
// engine exposes three: mandatory (x), optional (xo) and optional background
// (xz).
type Factory struct {
	rt         *Runtime
	policy     Policy
	background bool
}

// NewFactory creates a factory.
func NewFactory(rt *Runtime, policy Policy, background bool) *Factory {
	return &Factory{rt: rt, policy: policy, background: background}
}

// Policy returns the policy given to created executors.
func (f *Factory) Policy() Policy {
	return f.policy
}

// Command creates an executor for a command name, interpolated through scope.
// An unresolvable name is not an error until the executor is called.
func (f *Factory) Command(scope subst.Scope, name string) *Executor {
	name = f.rt.Interp.String(name, f.rt.scope(scope))
	return f.newExecutor(name, nil, nil)
}

// Parse creates an executor from a command line such as "run-imager.sh -v".
// Arguments are interpolated through scope; a single string argument is split
// on whitespace into the command and its fixed arguments.
func (f *Factory) Parse(scope subst.Scope, args []any, kwargs map[string]any) *Executor {
	s := f.rt.scope(scope)
	args = f.rt.Interp.Values(args, s)
	kwargs = f.rt.Interp.Keywords(kwargs, s)
	if len(args) == 1 {
		if line, ok := args[0].(string); ok {
			args = nil
			for _, word := range strings.Fields(line) {
				args = append(args, word)
			}
		}
	}
	if len(args) == 0 {
		return f.newExecutor("", nil, kwargs)
	}
	return f.newExecutor(vars.String(args[0]), args[1:], kwargs)
}

func (f *Factory) newExecutor(name string, args []any, kwargs map[string]any) *Executor {
	if kwargs == nil {
		kwargs = make(map[string]any)
	}
	return &Executor{
		rt:         f.rt,
		name:       name,
		path:       LookPath(f.rt.Fs, f.rt.SearchPath(), name),
		args:       args,
		kwargs:     kwargs,
		policy:     f.policy,
		background: f.background,
	}
}

// Sh runs a command line through an embedded POSIX shell. The parts are
// interpolated through scope and joined with spaces. The factory policy
// applies to an empty command line, parse errors and non-zero exit statuses.
func (f *Factory) Sh(ctx context.Context, scope subst.Scope, parts ...any) Result {
	s := f.rt.scope(scope)
	words := make([]string, 0, len(parts))
	for _, p := range f.rt.Interp.Values(parts, s) {
		words = append(words, vars.String(p))
	}
	script := strings.TrimSpace(strings.Join(words, " "))
	res := Result{Argv: words}
	if script == "" {
		res.ExitCode = -1
		return applyPolicy(ctx, f.policy, res, "empty shell command line")
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "")
	if err != nil {
		res.ExitCode = -1
		return applyPolicy(ctx, f.policy, res, fmt.Sprintf("'%s' cannot be parsed: %v", script, err))
	}
	runner, err := interp.New(
		interp.StdIO(f.rt.Stdin, f.rt.Output.Stdout(), f.rt.Output.Stderr()),
		interp.Env(expand.ListEnviron(os.Environ()...)),
	)
	if err != nil {
		res.ExitCode = -1
		return applyPolicy(ctx, f.policy, res, fmt.Sprintf("failed to create shell: %v", err))
	}

	ctxlog.Verbose(ctx, 1, fmt.Sprintf("executing '%s':", script))
	f.rt.Output.Flush()
	if err := runner.Run(ctx, prog); err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			res.ExitCode = int(status)
		} else {
			res.ExitCode = -1
		}
		return applyPolicy(ctx, f.policy, res, fmt.Sprintf("'%s' returns error code %d", script, res.ExitCode))
	}
	ctxlog.Verbose(ctx, 2, fmt.Sprintf("'%s' succeeded", script))
	return res
}
