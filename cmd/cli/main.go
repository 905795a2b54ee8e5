package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/specialistvlad/pyxgo/internal/app"
	"github.com/specialistvlad/pyxgo/internal/cli"
	"github.com/specialistvlad/pyxgo/internal/fatal"
)

// main is the entrypoint for the pyxgo application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Stderr, afero.NewOsFs(), os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		var fatalErr *fatal.Error
		if !errors.As(err, &fatalErr) {
			// Fatal aborts have already been logged.
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW, errW io.Writer, fs afero.Fs, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Modules and commands may panic on programming errors; report them as a
	// failed run instead of a stack trace.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pyxgo panicked: %v", r)
		}
	}()

	return app.NewApp(outW, errW, fs, appConfig).Run(context.Background())
}
