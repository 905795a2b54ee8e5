package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// MakeDir makes sure dir exists, creating missing parents. The name is
// interpolated through locals and the Context.
func (e *Engine) MakeDir(ctx context.Context, dir string, locals ...vars.Lookup) error {
	return e.makeDir(ctx, e.Interpolate(dir, locals...))
}

// MakeDirLiteral is MakeDir without interpolation.
func (e *Engine) MakeDirLiteral(ctx context.Context, dir string) error {
	return e.makeDir(ctx, dir)
}

func (e *Engine) makeDir(ctx context.Context, dir string) error {
	var missing []string
	for parent := dir; parent != "" && parent != "." && parent != "/"; parent = filepath.Dir(parent) {
		exists, err := afero.Exists(e.fs, parent)
		if err != nil {
			return fmt.Errorf("failed to check directory %s: %w", parent, err)
		}
		if exists {
			break
		}
		missing = append(missing, parent)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		ctxlog.Verbose(ctx, 1, "creating directory "+missing[i])
		if err := e.fs.Mkdir(missing[i], 0o777); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", missing[i], err)
		}
	}
	return nil
}
