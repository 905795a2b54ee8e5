package app

import (
	"io"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/engine"
	"github.com/specialistvlad/pyxgo/internal/logdest"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	level   *slog.LevelVar
	engine  *engine.Engine
	config  *Config
	modules []engine.Module
}

// NewApp is the constructor for the main application. Command output goes to
// outW, log lines to errW; both follow LOG redirection. Without modules the
// core modules are used.
func NewApp(outW, errW io.Writer, fs afero.Fs, cfg *Config, modules ...engine.Module) *App {
	level := &slog.LevelVar{}
	lvl, _ := ctxlog.ParseLevel(cfg.LogLevel)
	level.Set(lvl)

	out := logdest.New(fs, outW, errW)
	logger := newLogger(level, cfg.LogFormat, out.Writer())
	logger.Debug("Logger configured successfully.")

	e := engine.New(engine.Options{
		Fs:      fs,
		Stdout:  outW,
		Stderr:  errW,
		Output:  out,
		Level:   level,
		WorkDir: cfg.WorkDir,
	})
	if len(modules) == 0 {
		modules = coreModules(cfg)
	}
	return &App{
		outW:    outW,
		logger:  logger,
		level:   level,
		engine:  e,
		config:  cfg,
		modules: modules,
	}
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine {
	return a.engine
}
