package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/MarcinKonowalczyk/tapebf/bf"
)

// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html#tag_18_21_18
const exitCodeSignal = 128

// signalError is the cancel cause of a run interrupted by a signal.
type signalError struct {
	sig syscall.Signal
}

func (e signalError) Error() string {
	return "interrupted by " + e.sig.String()
}

// signalContext returns a context canceled with a signalError on SIGINT or
// SIGTERM. stop releases the signal handler.
func signalContext(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancelCause(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-ch:
			cancel(signalError{sig: sig.(syscall.Signal)})
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(ch)
		cancel(nil)
	}
}

// exitStatus maps the outcome of a command to a process exit status. A run
// canceled by a signal exits like a process killed by it.
func exitStatus(err error, cause error) int {
	var sig signalError
	if errors.Is(err, bf.ErrCanceled) && errors.As(cause, &sig) {
		return exitCodeSignal + int(sig.sig)
	}
	return bf.ExitStatus(err)
}
