// Package std is the generic module every run starts with: output naming
// conventions and a few file commands.
package std

import (
	"context"
	"fmt"

	"github.com/specialistvlad/pyxgo/internal/engine"
	"github.com/specialistvlad/pyxgo/internal/shellexec"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// Module implements the engine.Module interface for this package.
type Module struct{}

// Register defines the naming variables in the Context and the std commands.
func (m *Module) Register(ctx context.Context, e *engine.Engine) {
	table := vars.NewTable("std")
	table.Define("OUTDIR", "", "base output directory")

	v := e.Context()
	v.Define("DESTDIR_Template", "${OUTDIR>/}plots-${MS:BASE}-spw${DDID}",
		"destination directory for plots, images, etc.")
	v.Define("OUTFILE_Template", "${DESTDIR>/}${MS:BASE}${_spw<DDID}${_s<STEP}${_<LABEL}",
		"base output filename for plots, images, etc.")
	v.Define("STEP", int64(1), "step counter, useful for decorating filenames")
	v.Define("LABEL", "", "decorative label, mainly used for decorating filenames")

	commands := map[string]struct {
		c   vars.Callable
		doc string
	}{
		"remove":  {e.XO.Command(nil, "rm").Args(nil, "-fr"), "remove files and directories, ignoring failures"},
		"copy":    {e.X.Command(nil, "cp").Args(nil, "-a"), "copy files preserving attributes"},
		"makedir": {makedir(e), "create a directory and any missing parents"},
		"sh":      {sh(e.X), "run a shell command line"},
		"wait":    {wait(e), "wait for background commands to finish"},
	}
	for name, cmd := range commands {
		table.Define(name, cmd.c, cmd.doc)
		v.Set(name, cmd.c)
	}

	e.Register(ctx, "pyxides.std", table, "OUTDIR")
}

func makedir(e *engine.Engine) vars.Func {
	return func(ctx context.Context, args []any, kwargs map[string]any) error {
		if len(args) == 0 {
			return fmt.Errorf("makedir needs a directory name")
		}
		for _, dir := range args {
			if err := e.MakeDir(ctx, vars.String(dir)); err != nil {
				return err
			}
		}
		return nil
	}
}

func sh(f *shellexec.Factory) vars.Func {
	return func(ctx context.Context, args []any, kwargs map[string]any) error {
		if res := f.Sh(ctx, nil, args...); res.Failed {
			return fmt.Errorf("exit status %d", res.ExitCode)
		}
		return nil
	}
}

func wait(e *engine.Engine) vars.Func {
	return func(ctx context.Context, args []any, kwargs map[string]any) error {
		return e.Wait(ctx)
	}
}
