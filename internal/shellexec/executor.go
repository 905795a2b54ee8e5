// Package shellexec binds external commands to fixed arguments and runs them
// under a fail policy.
//
// An Executor is immutable. Deriving one with Args or Derive freezes the
// parent's fixed arguments (interpolated through the parent's scope) and
// captures the caller's scope for the new ones, which stay uninterpolated until
// the command actually runs.
package shellexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"mvdan.cc/sh/v3/syntax"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/fatal"
	"github.com/specialistvlad/pyxgo/internal/subst"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// Policy decides what happens when a command cannot run or exits non-zero.
type Policy int

const (
	// Abort terminates the run.
	Abort Policy = iota
	// Warn logs a warning and lets the caller continue.
	Warn
)

func (p Policy) String() string {
	if p == Warn {
		return "warn"
	}
	return "abort"
}

// Streams is the destination of command output.
type Streams interface {
	Stdout() io.Writer
	Stderr() io.Writer
	Flush()
}

// Runtime is the environment shared by all executors of one engine.
type Runtime struct {
	Interp    *subst.Interpolator
	Global    vars.Lookup
	Fs        afero.Fs
	Stdin     io.Reader
	Output    Streams
	Processes *ProcessList
	// SearchPath returns the colon-separated directory list used to find
	// commands.
	SearchPath func() string
}

// scope returns s, or a chain holding only the global table when s is empty.
func (rt *Runtime) scope(s subst.Scope) subst.Scope {
	if len(s) == 0 {
		return subst.Scope{rt.Global}
	}
	return s
}

// Executor is a bound external command.
type Executor struct {
	rt         *Runtime
	name       string
	path       string
	args       []any
	kwargs     map[string]any
	scope      subst.Scope
	policy     Policy
	background bool
}

// Name returns the command token the executor was created for.
func (e *Executor) Name() string {
	return e.name
}

// Path returns the resolved executable, or "" if it was not found.
func (e *Executor) Path() string {
	return e.path
}

// Policy returns the fail policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Background reports whether calls return without waiting.
func (e *Executor) Background() bool {
	return e.background
}

// ShellCommand returns the path, or the name when unresolved.
func (e *Executor) ShellCommand() string {
	if e.path == "" {
		return e.name
	}
	return e.path
}

// String renders the command with its fixed arguments, uninterpolated.
func (e *Executor) String() string {
	parts := []string{e.ShellCommand()}
	for _, a := range e.args {
		parts = append(parts, vars.String(a))
	}
	for _, k := range sortedKeys(e.kwargs) {
		parts = append(parts, k+"="+vars.String(e.kwargs[k]))
	}
	return strings.Join(parts, " ")
}

// WithPolicy returns a copy of the executor using policy p.
func (e *Executor) WithPolicy(p Policy) *Executor {
	child := *e
	child.policy = p
	return &child
}

// Args derives an executor with extra positional arguments bound in scope.
func (e *Executor) Args(scope subst.Scope, args ...any) *Executor {
	return e.Derive(scope, args, nil)
}

// Derive returns a new executor whose fixed arguments are the parent's,
// interpolated now through the parent's scope, followed by args; kwargs are
// merged over the parent's keywords. The new executor captures scope for later
// interpolation of its own additions. The parent is not modified.
func (e *Executor) Derive(scope subst.Scope, args []any, kwargs map[string]any) *Executor {
	parentScope := e.rt.scope(e.scope)
	fixed := append(e.rt.Interp.Values(e.args, parentScope), args...)
	kw := e.rt.Interp.Keywords(e.kwargs, parentScope)
	for k, v := range kwargs {
		kw[k] = v
	}
	child := *e
	child.args = fixed
	child.kwargs = kw
	child.scope = scope
	return &child
}

// Result describes one invocation.
type Result struct {
	Argv       []string
	ExitCode   int
	Pid        int
	Background bool
	// Failed is set when the command could not run or exited non-zero under
	// the Warn policy.
	Failed bool
}

// CallOption adjusts a single invocation.
type CallOption func(*callConfig)

type callConfig struct {
	noSplit bool
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NoSplit passes string arguments as single tokens instead of splitting them
// on whitespace.
func NoSplit() CallOption {
	return func(c *callConfig) { c.noSplit = true }
}

// WithStdio overrides the standard streams of a synchronous call. Nil
// arguments keep the defaults.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) CallOption {
	return func(c *callConfig) {
		if stdin != nil {
			c.stdin = stdin
		}
		if stdout != nil {
			c.stdout = stdout
		}
		if stderr != nil {
			c.stderr = stderr
		}
	}
}

// Command assembles the argument vector for a call without running it.
func (e *Executor) Command(scope subst.Scope, args []any, kwargs map[string]any, opts ...CallOption) []string {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return e.assemble(scope, args, kwargs, cfg)
}

func (e *Executor) assemble(scope subst.Scope, args []any, kwargs map[string]any, cfg callConfig) []string {
	fixedScope := e.rt.scope(e.scope)
	callScope := e.rt.scope(scope)

	all := append(e.rt.Interp.Values(e.args, fixedScope), e.rt.Interp.Values(args, callScope)...)
	kw := e.rt.Interp.Keywords(e.kwargs, fixedScope)
	for k, v := range e.rt.Interp.Keywords(kwargs, callScope) {
		kw[k] = v
	}

	argv := []string{e.ShellCommand()}
	for _, a := range all {
		if s, ok := a.(string); ok && !cfg.noSplit {
			argv = append(argv, strings.Fields(s)...)
			continue
		}
		if s := vars.String(a); s != "" {
			argv = append(argv, s)
		}
	}
	for _, k := range sortedKeys(kw) {
		argv = append(argv, k+"="+vars.String(kw[k]))
	}
	return argv
}

// Run calls the executor with positional arguments only.
func (e *Executor) Run(ctx context.Context, scope subst.Scope, args ...any) Result {
	return e.Call(ctx, scope, args, nil)
}

// Invoke implements vars.Callable. Arguments are interpolated against the
// Context only. The Result is dropped: under the Warn policy a failure has
// already been logged as a warning and Invoke still returns nil, so callers
// that need to tell failure from success use Call and check Result.Failed.
// Under the Abort policy a failure never returns.
func (e *Executor) Invoke(ctx context.Context, args []any, kwargs map[string]any) error {
	e.Call(ctx, nil, args, kwargs)
	return nil
}

// Call runs the command. Fixed arguments are interpolated through the
// executor's captured scope and args/kwargs through scope; call-time keywords
// override fixed ones. Under the Abort policy a missing command or a non-zero
// exit terminates the run.
func (e *Executor) Call(ctx context.Context, scope subst.Scope, args []any, kwargs map[string]any, opts ...CallOption) Result {
	logger := ctxlog.FromContext(ctx)
	if e.path == "" {
		return e.fail(ctx, Result{Argv: []string{e.name}, ExitCode: -1}, fmt.Sprintf("shell command '%s' not found", e.name))
	}

	cfg := callConfig{stdin: e.rt.Stdin, stdout: e.rt.Output.Stdout(), stderr: e.rt.Output.Stderr()}
	for _, opt := range opts {
		opt(&cfg)
	}
	argv := e.assemble(scope, args, kwargs, cfg)
	res := Result{Argv: argv, Background: e.background}

	e.rt.Output.Flush()
	cmd := exec.Command(argv[0], argv[1:]...)

	if e.background {
		cmd.Stdout, cmd.Stderr = e.rt.Output.Stdout(), e.rt.Output.Stderr()
		if err := cmd.Start(); err != nil {
			res.ExitCode = -1
			return e.fail(ctx, res, fmt.Sprintf("'%s' failed to start: %v", e.path, err))
		}
		p := e.rt.Processes.add(cmd, argv)
		res.Pid = p.Pid()
		ctxlog.Verbose(ctx, 1, fmt.Sprintf("executing '%s' in background: pid %d", quote(argv), res.Pid))
		return res
	}

	cmd.Stdin, cmd.Stdout, cmd.Stderr = cfg.stdin, cfg.stdout, cfg.stderr
	ctxlog.Verbose(ctx, 1, fmt.Sprintf("executing '%s':", quote(argv)))
	err := cmd.Run()
	if cmd.Process != nil {
		res.Pid = cmd.Process.Pid
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return e.fail(ctx, res, fmt.Sprintf("'%s' returns error code %d", e.path, res.ExitCode))
		}
		res.ExitCode = -1
		return e.fail(ctx, res, fmt.Sprintf("'%s' failed to run: %v", e.path, err))
	}
	logger.Log(ctx, ctxlog.LevelTrace, fmt.Sprintf("'%s' succeeded", e.path))
	return res
}

// fail applies the policy to a failed invocation.
func (e *Executor) fail(ctx context.Context, res Result, msg string) Result {
	return applyPolicy(ctx, e.policy, res, msg)
}

func applyPolicy(ctx context.Context, policy Policy, res Result, msg string) Result {
	if policy == Abort {
		fatal.Abort(ctx, "%s", msg)
	}
	ctxlog.FromContext(ctx).Warn(msg)
	res.Failed = true
	return res
}

// quote renders argv as a shell command line for log messages.
func quote(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = a
		}
		parts[i] = q
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
