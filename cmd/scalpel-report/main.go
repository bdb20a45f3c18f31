// File: cmd/scalpel-report/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/scalpel-report/cmd"
	"github.com/xkilldash9x/scalpel-report/internal/observability"
)

const panicLogFile = "panic.log"

// Define function variables for dependency injection/mocking in tests.
var (
	osWriteFile = os.WriteFile
	// Allows mocking os.Exit in tests.
	osExit = os.Exit
	// Allows replacing the command tree in tests.
	execute = cmd.Execute
)

func main() {
	defer handlePanic()

	// Ctrl+C stops the narrative loop between chunks; whatever was
	// generated is still assembled.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	osExit(run(ctx))
}

// run executes the command tree and maps the outcome to an exit code.
func run(ctx context.Context) int {
	if err := execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, context.Canceled) {
			return 130
		}
		return 1
	}
	return 0
}

// handlePanic records the stack of an unexpected panic in panic.log so a
// crash in the middle of a long report run can be diagnosed.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(2)
		return
	}

	fmt.Fprintf(os.Stderr, "scalpel-report crashed: %v\nDetails logged to %s\n", r, panicLogFile)
	osExit(2)
}
