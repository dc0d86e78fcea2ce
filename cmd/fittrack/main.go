// Command fittrack logs cardio, strength and nutrition entries against the
// workout API. Changes are applied locally first and rolled back if the server
// rejects them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caseydemo/workout-app/internal/optimistic"
	"github.com/caseydemo/workout-app/internal/remote"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

// describe turns a remote failure into a one-line message. Failed mutations
// name the change that was undone; a failed load undid nothing.
func describe(err error) string {
	var opErr *optimistic.RemoteOperationError
	if !errors.As(err, &opErr) {
		return err.Error()
	}
	msg := fmt.Sprintf("%s %s failed, local change rolled back", opErr.Category, opErr.Op)
	if opErr.Op == optimistic.OpLoad {
		msg = fmt.Sprintf("loading %s entries failed", opErr.Category)
	}
	var status *remote.StatusError
	if errors.As(err, &status) && status.Detail != "" {
		return msg + ": " + status.Detail
	}
	return fmt.Sprintf("%s: %v", msg, opErr.Err)
}
