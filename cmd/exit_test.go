// File: cmd/exit_test.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitOK, exitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, exitScriptFailed, exitCode(ErrScriptFailed))
	assert.Equal(t, exitScriptFailed, exitCode(fmt.Errorf("checkout.pw: %w", ErrScriptFailed)))
	assert.Equal(t, exitError, exitCode(errors.New("boom")))
}

func TestHandlePanicWritesLog(t *testing.T) {
	var (
		written []byte
		path    string
		code    = -1
	)
	origWrite, origExit := osWriteFile, osExit
	t.Cleanup(func() { osWriteFile, osExit = origWrite, origExit })
	osWriteFile = func(name string, data []byte, _ os.FileMode) error {
		path, written = name, data
		return nil
	}
	osExit = func(c int) { code = c }

	func() {
		defer handlePanic()
		panic("test panic")
	}()

	require.Equal(t, exitError, code)
	assert.Equal(t, panicLogFile, path)
	assert.Contains(t, string(written), "panic: test panic")
}

func TestHandlePanicWithoutPanic(t *testing.T) {
	origExit := osExit
	t.Cleanup(func() { osExit = origExit })
	called := false
	osExit = func(int) { called = true }

	func() {
		defer handlePanic()
	}()
	assert.False(t, called)
}
