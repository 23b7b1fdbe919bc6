package main

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/MarcinKonowalczyk/tapebf/bf"
	"github.com/MarcinKonowalczyk/tapebf/utils"
)

func TestExitStatus(t *testing.T) {
	canceled := &bf.RunError{Err: bf.ErrCanceled, Cause: context.Canceled}
	tests := []struct {
		name  string
		err   error
		cause error
		want  int
	}{
		{"halted", nil, nil, bf.ExitHalted},
		{"parse", reportedError{&bf.ParseError{Err: bf.ErrUnmatchedOpenBracket}}, nil, bf.ExitParse},
		{"step limit", &bf.RunError{Err: bf.ErrStepLimitExceeded}, nil, bf.ExitStepLimit},
		{"interrupted", canceled, signalError{sig: syscall.SIGINT}, 130},
		{"terminated", canceled, signalError{sig: syscall.SIGTERM}, 143},
		{"canceled otherwise", canceled, context.Canceled, bf.ExitFailure},
		{"failed before the signal", &bf.RunError{Err: bf.ErrTapeUnderflow}, signalError{sig: syscall.SIGINT}, bf.ExitFailure},
		{"other", errors.New("no such file"), nil, bf.ExitFailure},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			utils.AssertEqual(t, exitStatus(test.err, test.cause), test.want)
		})
	}
}

func TestSignalContext_CancelsRun(t *testing.T) {
	ctx, stop := signalContext(context.Background())
	defer stop()

	cfg := defaultConfig()
	s, _, _ := testStreams("")
	cmd := runCmd{Path: writeFile(t, "spin.bf", "+[]")}
	result := make(chan error, 1)
	go func() { result <- cmd.Run(ctx, &cfg, s) }()

	utils.AssertNoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-result:
		utils.AssertErrorIs(t, err, bf.ErrCanceled)
		utils.AssertEqual(t, exitStatus(err, context.Cause(ctx)), exitCodeSignal+int(syscall.SIGTERM))
	case <-time.After(10 * time.Second):
		t.Fatal("run was not canceled by the signal")
	}
}

func TestSignalContext_Stop(t *testing.T) {
	ctx, stop := signalContext(context.Background())
	stop()
	<-ctx.Done()
	utils.AssertErrorIs(t, context.Cause(ctx), context.Canceled)
}
