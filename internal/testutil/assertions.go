package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/pyxgo/internal/fatal"
)

// RequireAbort runs fn and asserts that it terminates the run with a fatal
// error whose message contains substr.
func RequireAbort(t *testing.T, substr string, fn func()) {
	t.Helper()
	err := fatal.Catch(fn)
	require.Error(t, err, "expected a fatal abort")
	var fe *fatal.Error
	require.ErrorAs(t, err, &fe)
	require.Contains(t, fe.Message, substr)
}

// RequireNoAbort runs fn and asserts that it completes normally.
func RequireNoAbort(t *testing.T, fn func()) {
	t.Helper()
	require.NoError(t, fatal.Catch(fn))
}
