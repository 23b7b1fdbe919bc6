package shim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"
	"time"

	"github.com/MarcinKonowalczyk/tapebf/bf"
	"github.com/containerd/log"
)

// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html#tag_18_21_18
const exitCodeSignal = 128

type taskState int

const (
	taskCreated taskState = iota
	taskRunning
	taskStopped
)

// task is one program run inside the shim process. The interpreter runs on
// its own goroutine; stdio is whatever Create opened for it.
type task struct {
	id      string
	pid     int
	program *bf.Program
	opts    []bf.Option

	stdin  io.ReadCloser
	stdout io.WriteCloser
	stderr io.WriteCloser

	stdinPath  string
	stdoutPath string
	stderrPath string

	mu         sync.Mutex
	state      taskState
	cancel     context.CancelCauseFunc
	exitStatus int
	exitTime   time.Time

	// closed once the task has stopped
	done chan struct{}
	// called after the task has stopped and its stdio is closed
	onExit func()
}

func newTask(id string, pid int, program *bf.Program, opts []bf.Option, onExit func()) *task {
	if onExit == nil {
		onExit = func() {}
	}
	return &task{
		id:      id,
		pid:     pid,
		program: program,
		opts:    opts,
		done:    make(chan struct{}),
		onExit:  onExit,
	}
}

func (t *task) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == taskStopped {
		return fmt.Sprintf("id:%s, exitTime:%s, exitStatus:%d", t.id, t.exitTime.Format(time.RFC3339), t.exitStatus)
	}
	return fmt.Sprintf("id:%s running", t.id)
}

// killedError carries the signal a task was killed with as the cancel cause.
type killedError struct {
	sig syscall.Signal
}

func (e killedError) Error() string {
	return "killed by " + e.sig.String()
}

// start runs the program on its own goroutine.
func (t *task) start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != taskCreated {
		return fmt.Errorf("task %s already started", t.id)
	}
	runCtx, cancel := context.WithCancelCause(context.WithoutCancel(ctx))
	t.cancel = cancel
	t.state = taskRunning

	go func() {
		stream := bf.NewStream(t.stdin, t.stdout)
		err := bf.RunContext(runCtx, t.program, stream, t.opts...)
		if rerr := stream.Err(); rerr != nil {
			log.G(ctx).WithError(rerr).Warnf("reading stdin of task %s", t.id)
		}
		t.finish(ctx, exitStatus(err, context.Cause(runCtx)), err)
		cancel(nil)
		t.onExit()
	}()
	return nil
}

// exitStatus maps the outcome of a run to a process exit status. A run
// stopped by Kill exits like a process killed by that signal, whatever the
// interpreter returned.
func exitStatus(err error, cause error) int {
	var killed killedError
	if errors.As(cause, &killed) {
		return exitCodeSignal + int(killed.sig)
	}
	return bf.ExitStatus(err)
}

func (t *task) finish(ctx context.Context, status int, err error) {
	if err != nil && !errors.Is(err, bf.ErrCanceled) && t.stderr != nil {
		fmt.Fprintf(t.stderr, "brainfuck: %v\n", err)
	}
	t.closeIO()

	t.mu.Lock()
	t.state = taskStopped
	t.exitStatus = status
	t.exitTime = time.Now()
	t.mu.Unlock()

	log.G(ctx).WithFields(log.Fields{
		"id":     t.id,
		"status": status,
	}).Debug("task exited")
	close(t.done)
}

// kill stops the task with sig. A task that never started stops at once.
// It returns false if the task had already stopped.
func (t *task) kill(ctx context.Context, sig syscall.Signal) bool {
	t.mu.Lock()
	switch t.state {
	case taskStopped:
		t.mu.Unlock()
		return false
	case taskCreated:
		t.state = taskStopped
		t.mu.Unlock()
		t.finish(ctx, exitCodeSignal+int(sig), nil)
		t.onExit()
		return true
	}
	cancel := t.cancel
	t.mu.Unlock()
	cancel(killedError{sig: sig})
	// The interpreter only sees the cancellation between instructions; a
	// read blocked on stdin needs the pipe closed under it.
	if t.stdin != nil {
		t.stdin.Close()
	}
	return true
}

func (t *task) stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// wait blocks until the task stops or ctx is done.
func (t *task) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return nil
	}
}

func (t *task) status() (taskState, int, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.exitStatus, t.exitTime
}
