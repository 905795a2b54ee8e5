// Package env exposes the process environment as the "E" namespace, so that
// placeholders such as ${E.HOME} and assignments such as E.PATH=/opt/bin work.
// Assignments are written through to the process environment and so reach the
// command search path and every command started afterwards.
package env

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/engine"
	"github.com/specialistvlad/pyxgo/internal/fatal"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

// Namespace is the name the environment is registered under.
const Namespace = "E"

// Module implements the engine.Module interface for this package.
type Module struct {
	// Files are dotenv files exported to the process environment. Variables
	// already set in the environment, or by an earlier file, take precedence.
	Files []string
	// Environ returns the process environment. Defaults to os.Environ.
	Environ func() []string
	// Setenv changes the process environment. Defaults to os.Setenv.
	Setenv func(key, value string) error
}

// Register creates the namespace and the setenv command.
func (m *Module) Register(ctx context.Context, e *engine.Engine) {
	logger := ctxlog.FromContext(ctx)
	environ := m.Environ
	if environ == nil {
		environ = os.Environ
	}
	setenv := m.Setenv
	if setenv == nil {
		setenv = os.Setenv
	}

	table := vars.NewTable(Namespace)
	for _, kv := range environ() {
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) == 2 {
			table.Set(pair[0], pair[1])
		}
	}
	table.Watch(func(name string, value any) error {
		return setenv(name, vars.String(value))
	})

	for _, file := range m.Files {
		values, err := readDotenv(e.Fs(), file)
		if err != nil {
			fatal.Abort(ctx, "cannot load environment file %s: %v", file, err)
		}
		loaded := 0
		for _, k := range sortedKeys(values) {
			if table.Has(k) {
				continue
			}
			if err := table.Update(k, values[k]); err != nil {
				fatal.Abort(ctx, "cannot export %s from %s: %v", k, file, err)
			}
			loaded++
		}
		logger.Debug("Environment file loaded.", "file", file, "count", loaded)
	}

	e.Register(ctx, Namespace, table)

	e.Context().Define("setenv", vars.Func(func(ctx context.Context, args []any, kwargs map[string]any) error {
		if len(args) > 0 {
			return fmt.Errorf("setenv takes NAME=VALUE arguments only")
		}
		for _, k := range sortedKeys(kwargs) {
			if err := table.Update(k, vars.String(kwargs[k])); err != nil {
				return fmt.Errorf("setenv %s: %w", k, err)
			}
		}
		return nil
	}), "export NAME=VALUE pairs to the environment of subsequent commands")
}

func readDotenv(fs afero.Fs, path string) (map[string]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return godotenv.Parse(f)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
