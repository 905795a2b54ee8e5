package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/specialistvlad/pyxgo/internal/config"
	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/logdest"
	"github.com/specialistvlad/pyxgo/internal/registry"
	"github.com/specialistvlad/pyxgo/internal/shellexec"
	"github.com/specialistvlad/pyxgo/internal/subst"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// Reserved Context variables.
const (
	VarLog     = "LOG"
	VarVerbose = "VERBOSE"
)

// TemplateSuffix marks a variable as the formula source of another.
const TemplateSuffix = vars.TemplateSuffix

// Module is a named set of variables and commands that registers itself with
// an engine.
type Module interface {
	Register(ctx context.Context, e *Engine)
}

// Options configures a new Engine. Zero values select the process defaults.
type Options struct {
	Fs     afero.Fs
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Output overrides the destination switch built from Stdout and Stderr.
	Output *logdest.Output
	// Level is adjusted when VERBOSE changes.
	Level *slog.LevelVar
	// SearchPath returns the command search path. Defaults to $PATH.
	SearchPath func() string
	// WorkDir is searched for default configuration files.
	WorkDir string
	// PackagePrefix is stripped from registered module names.
	PackagePrefix string
}

// Engine is an interpolation session.
type Engine struct {
	vars     *vars.Table
	registry *registry.Registry
	interp   *subst.Interpolator
	out      *logdest.Output
	level    *slog.LevelVar
	fs       afero.Fs
	loader   *config.Loader
	workDir  string
	procs    *shellexec.ProcessList
	rt       *shellexec.Runtime

	// X creates mandatory executors, XO optional ones and XZ optional
	// background ones.
	X, XO, XZ *shellexec.Factory
}

// New creates an engine with an empty Context.
func New(opts Options) *Engine {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Output == nil {
		opts.Output = logdest.New(opts.Fs, opts.Stdout, opts.Stderr)
	}
	if opts.SearchPath == nil {
		opts.SearchPath = func() string { return os.Getenv("PATH") }
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}

	table := vars.NewTable("")
	reg := registry.New(table)
	if opts.PackagePrefix != "" {
		reg.SetPackagePrefix(opts.PackagePrefix)
	}
	ip := subst.New(reg)
	procs := &shellexec.ProcessList{}
	rt := &shellexec.Runtime{
		Interp:     ip,
		Global:     table,
		Fs:         opts.Fs,
		Stdin:      opts.Stdin,
		Output:     opts.Output,
		Processes:  procs,
		SearchPath: opts.SearchPath,
	}

	return &Engine{
		vars:     table,
		registry: reg,
		interp:   ip,
		out:      opts.Output,
		level:    opts.Level,
		fs:       opts.Fs,
		loader:   config.NewLoader(opts.Fs),
		workDir:  opts.WorkDir,
		procs:    procs,
		rt:       rt,
		X:        shellexec.NewFactory(rt, shellexec.Abort, false),
		XO:       shellexec.NewFactory(rt, shellexec.Warn, false),
		XZ:       shellexec.NewFactory(rt, shellexec.Warn, true),
	}
}

// Context returns the global variable table.
func (e *Engine) Context() *vars.Table {
	return e.vars
}

// Registry returns the namespace registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Output returns the active output switch.
func (e *Engine) Output() *logdest.Output {
	return e.out
}

// Fs returns the filesystem the engine works on.
func (e *Engine) Fs() afero.Fs {
	return e.fs
}

// Processes returns the background processes started so far.
func (e *Engine) Processes() *shellexec.ProcessList {
	return e.procs
}

// Register adds a module namespace. See registry.Registry.Register.
func (e *Engine) Register(ctx context.Context, name string, table *vars.Table, superglobals ...string) string {
	return e.registry.Register(ctx, name, table, superglobals...)
}

// Get returns the value of a variable, or def if it is absent. A dotted name
// reads a namespace. A string default is interpolated through the Context.
func (e *Engine) Get(name string, def any) any {
	table, key, ok := e.target(name)
	if ok {
		if v, found := table.Lookup(key); found && v != nil {
			return v
		}
	}
	if s, isString := def.(string); isString {
		return e.interp.String(s, e.Scope())
	}
	return def
}

// Set assigns a variable and re-resolves templates.
func (e *Engine) Set(ctx context.Context, name string, value any) {
	e.Assign(ctx, name, value)
	e.ResolveTemplates(ctx)
}

// Assign sets a variable without re-resolving templates. A dotted name
// targets a namespace; assigning one of its superglobals updates the Context
// instead. Context assignments propagate to every namespace declaring the name
// as a superglobal. An unknown namespace, or a value the target table refuses,
// is reported and skipped.
func (e *Engine) Assign(ctx context.Context, name string, value any) {
	logger := ctxlog.FromContext(ctx)
	table, key, ok := e.target(name)
	if !ok {
		logger.Warn("Cannot assign to unknown namespace, skipping.", "name", name)
		return
	}
	if table != e.vars && e.registry.IsSuperglobal(table, key) {
		table = e.vars
	}
	if err := table.Update(key, value); err != nil {
		logger.Warn("Assignment refused, skipping.", "name", name, "error", err)
		return
	}
	ctxlog.Verbose(ctx, 2, "assigned "+name+"="+vars.String(value))
	if table == e.vars {
		for _, ns := range e.registry.Propagate(key, value) {
			logger.Log(ctx, ctxlog.LevelTrace, "Propagated superglobal.", "namespace", ns, "name", key)
		}
	}
}

// target splits a possibly dotted name into its table and variable name.
func (e *Engine) target(name string) (*vars.Table, string, bool) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return e.vars, name, true
	}
	table, ok := e.registry.Namespace(name[:i])
	return table, name[i+1:], ok
}

// Describe returns the documentation of every documented variable, keyed by
// its qualified name. Context entries are listed as "v.NAME".
func (e *Engine) Describe() map[string]string {
	out := make(map[string]string)
	for _, name := range e.vars.Documented() {
		out["v."+name] = e.vars.Doc(name)
	}
	for _, ns := range e.registry.Namespaces() {
		table, _ := e.registry.Namespace(ns)
		for _, name := range table.Documented() {
			if e.registry.IsSuperglobal(table, name) {
				out["v."+name] = table.Doc(name)
				continue
			}
			out[ns+"."+name] = table.Doc(name)
		}
	}
	return out
}

// Wait joins every background process started by this engine.
func (e *Engine) Wait(ctx context.Context) error {
	return e.procs.Wait(ctx)
}

// Close waits for background processes and restores console output.
func (e *Engine) Close(ctx context.Context) error {
	err := e.Wait(ctx)
	if cerr := e.out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
