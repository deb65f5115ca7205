// Command budget manages an envelope budget: money is split into named boxes,
// funded by deposits and drawn down by spending.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/ledger"
	"budget/internal/log"
)

// Exit codes by error kind.
const (
	exitOK        = 0
	exitFailure   = 1
	exitInvalid   = 2
	exitUnknown   = 3
	exitDuplicate = 4
	exitFunds     = 5
)

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code. A nil factory
// builds backends from configuration.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, factory backend.Factory) int {
	a := &app{out: stdout, factory: factory, now: ledger.CurrentPeriod}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		a.log().Warn("Failed to release backend", log.NewFields().WithError(cerr).ToSlice()...)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var usage usageError
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return exitFunds
	case errors.Is(err, ledger.ErrUnknownBox):
		return exitUnknown
	case errors.Is(err, ledger.ErrDuplicateBox):
		return exitDuplicate
	case errors.Is(err, ledger.ErrInvalidArgument), errors.As(err, &usage):
		return exitInvalid
	default:
		return exitFailure
	}
}
