package bf

import (
	"bufio"
	"errors"
	"io"
)

// Channel is the byte I/O a program talks to. NextByte reports ok == false
// at end of input.
type Channel interface {
	WriteByte(c byte) error
	NextByte() (c byte, ok bool)
}

type flusher interface {
	Flush() error
}

// Stream adapts an io.Reader and an io.Writer to a Channel. Every output
// byte is handed to the writer as it is produced, so a dead sink fails the
// instruction that wrote to it. Wrap w in a bufio.Writer to trade that for
// throughput; Flush then reaches it at the end of the run.
type Stream struct {
	in  *bufio.Reader
	out io.Writer
	b   [1]byte
	err error
}

// NewStream returns a Stream reading from r and writing to w. A nil r never
// yields input; a nil w drops all output.
func NewStream(r io.Reader, w io.Writer) *Stream {
	s := &Stream{out: w}
	if r != nil {
		s.in = bufio.NewReader(r)
	}
	return s
}

func (s *Stream) WriteByte(c byte) error {
	if s.out == nil {
		return nil
	}
	s.b[0] = c
	n, err := s.out.Write(s.b[:])
	if err == nil && n != 1 {
		err = io.ErrShortWrite
	}
	return err
}

func (s *Stream) NextByte() (byte, bool) {
	if s.in == nil {
		return 0, false
	}
	// prompts written through a buffering writer must show before we block
	_ = s.Flush()
	c, err := s.in.ReadByte()
	if err != nil {
		if !errors.Is(err, io.EOF) && s.err == nil {
			s.err = err
		}
		return 0, false
	}
	return c, true
}

// Flush flushes the writer if it buffers.
func (s *Stream) Flush() error {
	if f, ok := s.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Err returns the first read error other than io.EOF. Such an error ends
// input the same way io.EOF does.
func (s *Stream) Err() error {
	return s.err
}

// Buffer is an in-memory Channel.
type Buffer struct {
	input  []byte
	output []byte
}

// NewBuffer returns a Buffer that yields input and then reports end of input.
func NewBuffer(input []byte) *Buffer {
	return &Buffer{input: input}
}

func (b *Buffer) WriteByte(c byte) error {
	b.output = append(b.output, c)
	return nil
}

func (b *Buffer) NextByte() (byte, bool) {
	if len(b.input) == 0 {
		return 0, false
	}
	c := b.input[0]
	b.input = b.input[1:]
	return c, true
}

// Bytes returns everything written so far.
func (b *Buffer) Bytes() []byte {
	return b.output
}

func (b *Buffer) String() string {
	return string(b.output)
}

// Discard drops output and never yields input.
var Discard Channel = discard{}

type discard struct{}

func (discard) WriteByte(byte) error   { return nil }
func (discard) NextByte() (byte, bool) { return 0, false }
