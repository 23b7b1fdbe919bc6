package bf

import (
	"context"
	"io"
)

// RunSource parses source and runs it reading from input and writing to
// output. The output is flushed before RunSource returns.
func RunSource(ctx context.Context, source string, input io.Reader, output io.Writer, opts ...Option) error {
	program, err := Parse(source)
	if err != nil {
		return err
	}
	return RunContext(ctx, program, NewStream(input, output), opts...)
}
