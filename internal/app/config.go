package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
)

// NoVerbosity leaves VERBOSE as configured.
const NoVerbosity = -1

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigFiles []string // hcl files; empty selects pyxis*.hcl in WorkDir
	EnvFiles    []string // dotenv files for the E namespace
	Directives  []string
	WorkDir     string

	LogFormat string
	LogLevel  string
	Verbose   int
	List      bool
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Directives) == 0 && !cfg.List {
		return nil, errors.New("nothing to do: give at least one directive or --list")
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if _, err := ctxlog.ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.Verbose < NoVerbosity {
		return nil, fmt.Errorf("invalid verbosity %d", cfg.Verbose)
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	return &cfg, nil
}
