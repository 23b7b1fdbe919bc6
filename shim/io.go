package shim

import (
	"context"
	"fmt"
	"io"
	"syscall"

	"github.com/containerd/fifo"
)

// openFifo opens the fifo at path created by containerd. An empty path means
// the stream was not requested.
func openFifo(ctx context.Context, path string, flag int) (io.ReadWriteCloser, error) {
	if path == "" {
		return nil, nil
	}
	ok, err := fifo.IsFifo(path)
	if err != nil {
		return nil, fmt.Errorf("checking whether file %s is a fifo: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("file %s is not a fifo", path)
	}
	f, err := fifo.OpenFifo(ctx, path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening fifo %s: %w", path, err)
	}
	return f, nil
}

// openIO connects the task to its stdio fifos. stderr defaults to stdout.
func (t *task) openIO(ctx context.Context, stdin, stdout, stderr string) (retErr error) {
	// the fifos outlive the request that opened them
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if retErr != nil {
			t.closeIO()
		}
	}()

	if stderr == "" {
		stderr = stdout
	}
	t.stdinPath, t.stdoutPath, t.stderrPath = stdin, stdout, stderr

	// non-blocking so Create does not wait for a writer; reads wait instead
	in, err := openFifo(ctx, stdin, syscall.O_RDONLY|syscall.O_NONBLOCK)
	if err != nil {
		return err
	}
	if in != nil {
		t.stdin = in
	}

	out, err := openFifo(ctx, stdout, syscall.O_WRONLY)
	if err != nil {
		return err
	}
	if out != nil {
		t.stdout = out
	}

	errOut, err := openFifo(ctx, stderr, syscall.O_WRONLY)
	if err != nil {
		return err
	}
	if errOut != nil {
		t.stderr = errOut
	}
	return nil
}

func (t *task) closeIO() {
	for _, c := range []io.Closer{t.stdin, t.stdout, t.stderr} {
		if c != nil {
			c.Close()
		}
	}
}
