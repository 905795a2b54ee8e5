package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/specialistvlad/pyxgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usage = `
pyxgo - run pipeline directives with placeholder interpolation.

Usage:
  pyxgo [options] [DIRECTIVE...]

Directives:
  NAME=VALUE         assign a variable (ns.NAME assigns into a namespace)
  name(a,b,k=v)      call a command; name[a,b] is the same
  name               call a command without arguments
  ?name(...)         call a command, reporting failures as warnings

Options:
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := pflag.NewFlagSet("pyxgo", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SetInterspersed(false)
	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}

	configFiles := flagSet.StringArrayP("config", "c", nil, "Configuration file to load (repeatable). Defaults to pyxis*.hcl.")
	envFiles := flagSet.StringArray("env-file", nil, "Dotenv file loaded into the E namespace (repeatable).")
	workDir := flagSet.String("workdir", ".", "Directory searched for default configuration files.")
	logFormat := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevel := flagSet.String("log-level", "info", "Logging level: 'debug', 'trace', 'verbose', 'info', 'warn' or 'error'.")
	verbose := flagSet.IntP("verbose", "v", app.NoVerbosity, "Set the VERBOSE variable (0-3) after loading configuration.")
	list := flagSet.BoolP("list", "l", false, "List documented variables and commands, then exit.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 && !*list {
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		ConfigFiles: *configFiles,
		EnvFiles:    *envFiles,
		Directives:  flagSet.Args(),
		WorkDir:     *workDir,
		LogFormat:   *logFormat,
		LogLevel:    *logLevel,
		Verbose:     *verbose,
		List:        *list,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}
