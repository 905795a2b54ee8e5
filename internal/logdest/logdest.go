// Package logdest implements the switchable output destination behind the LOG
// variable: the console, a file opened in truncate mode, or a file opened in
// append mode when the name starts with "+".
package logdest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
)

// Output holds the active destination for log lines and for the standard
// streams handed to external commands.
type Output struct {
	fs         afero.Fs
	consoleOut io.Writer
	consoleErr io.Writer
	file       afero.File
	dest       string
}

// New creates an Output writing to the given console streams.
func New(fs afero.Fs, stdout, stderr io.Writer) *Output {
	return &Output{fs: fs, consoleOut: stdout, consoleErr: stderr}
}

// Current returns the LOG value in effect ("" for the console).
func (o *Output) Current() string {
	return o.dest
}

// Stdout returns the writer external commands should use for standard output.
func (o *Output) Stdout() io.Writer {
	if o.file != nil {
		return o.file
	}
	return o.consoleOut
}

// Stderr returns the writer external commands should use for standard error.
func (o *Output) Stderr() io.Writer {
	if o.file != nil {
		return o.file
	}
	return o.consoleErr
}

// Writer returns a writer that always forwards to the current standard error
// destination. Loggers are built on top of it so that they follow LOG.
func (o *Output) Writer() io.Writer {
	return followWriter{o}
}

type followWriter struct{ o *Output }

func (w followWriter) Write(p []byte) (int, error) {
	return w.o.Stderr().Write(p)
}

// Flush syncs the log file, if any, before control passes to a child process.
func (o *Output) Flush() {
	if o.file != nil {
		_ = o.file.Sync()
	}
}

// Set switches to dest. "" and "-" select the console; a leading "+" opens the
// file in append mode. Setting the current destination again is a no-op.
func (o *Output) Set(ctx context.Context, dest string) error {
	if dest == "-" {
		dest = ""
	}
	if dest == o.dest {
		return nil
	}
	logger := ctxlog.FromContext(ctx)
	target := "console"
	if dest != "" {
		target = dest
	}
	logger.Info("Redirecting log output.", "to", target)

	var next afero.File
	if dest != "" {
		name, flags := dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC
		if name[0] == '+' {
			name, flags = name[1:], os.O_CREATE|os.O_WRONLY|os.O_APPEND
		}
		f, err := o.fs.OpenFile(name, flags, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", name, err)
		}
		next = f
	}

	previous := o.dest
	if o.file != nil {
		_ = o.file.Close()
	}
	o.file, o.dest = next, dest

	if previous != "" {
		logger.Info("Log continued.", "from", previous)
	} else {
		logger.Info("Log started.")
	}
	return nil
}

// Close restores the console and closes any open log file.
func (o *Output) Close() error {
	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file, o.dest = nil, ""
	return err
}
