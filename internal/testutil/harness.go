package testutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
)

// SafeBuffer is a thread-safe buffer for capturing log and command output in
// tests. Background processes write to it from their own goroutines.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// NewContext returns a context carrying a debug-level text logger that writes
// into the returned buffer. Setting PYXGO_TEST_LOGS=true also echoes the log
// through t.Log when the test finishes.
func NewContext(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	return NewContextWriter(t, buf), buf
}

// NewContextWriter is NewContext with a caller-provided destination.
func NewContextWriter(t *testing.T, w io.Writer) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if os.Getenv("PYXGO_TEST_LOGS") == "true" {
		if s, ok := w.(interface{ String() string }); ok {
			t.Cleanup(func() { t.Log(s.String()) })
		}
	}
	return ctxlog.WithLogger(context.Background(), logger)
}

// Streams captures the standard output and error handed to external commands.
type Streams struct {
	Out SafeBuffer
	Err SafeBuffer
}

// Stdout returns the captured standard output.
func (s *Streams) Stdout() io.Writer { return &s.Out }

// Stderr returns the captured standard error.
func (s *Streams) Stderr() io.Writer { return &s.Err }

// Flush is a no-op.
func (s *Streams) Flush() {}
