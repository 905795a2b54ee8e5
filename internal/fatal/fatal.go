// Package fatal implements the run-terminating abort condition.
//
// A fatal condition (duplicate registration, undefined command, a fixpoint that
// never converges, a mandatory command exiting non-zero, a broken config file) is
// raised as a panic carrying *Error. Intermediate callers are not expected to
// recover it; only the program entrypoint does, through Catch.
package fatal

import (
	"context"
	"fmt"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
)

// Error is the value carried by a fatal panic.
type Error struct {
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Abort logs the message at error level and terminates the run.
func Abort(ctx context.Context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	ctxlog.FromContext(ctx).Error(msg)
	panic(&Error{Message: msg})
}

// Catch runs fn and converts a fatal abort into a returned *Error. Any other
// panic is re-raised.
func Catch(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if fe, ok := r.(*Error); ok {
			err = fe
			return
		}
		panic(r)
	}()
	fn()
	return nil
}
