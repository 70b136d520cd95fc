// File: cmd/exit.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/pwscript/internal/observability"
)

const panicLogFile = "panic.log"

// Exit codes.
const (
	exitOK           = 0
	exitError        = 1
	exitScriptFailed = 2
)

var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
)

// Main runs the CLI until it finishes or is interrupted and exits the
// process with the status of the command.
func Main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := exitCode(Execute(ctx))
	stop()
	osExit(code)
}

// exitCode maps the result of a command to the process status. An
// interrupted command exits cleanly.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return exitOK
	case errors.Is(err, ErrScriptFailed):
		return exitScriptFailed
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitError
	}
}

// handlePanic writes the panic with its stack to panicLogFile and exits.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	msg := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(msg), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", msg)
		osExit(exitError)
		return
	}
	fmt.Fprintf(os.Stderr, "pwscript crashed. Details logged to %s\n", panicLogFile)
	osExit(exitError)
}
