package app

import (
	"github.com/specialistvlad/pyxgo/internal/engine"
	"github.com/specialistvlad/pyxgo/modules/env"
	"github.com/specialistvlad/pyxgo/modules/print"
	"github.com/specialistvlad/pyxgo/modules/std"
)

// coreModules is the definitive list of all modules that are compiled into
// the pyxgo binary.
func coreModules(cfg *Config) []engine.Module {
	return []engine.Module{
		&env.Module{Files: cfg.EnvFiles},
		&std.Module{},
		&print.Module{},
	}
}
