package bf_test

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/MarcinKonowalczyk/tapebf/bf"
	"github.com/MarcinKonowalczyk/tapebf/utils"
)

func TestStream_Read(t *testing.T) {
	s := bf.NewStream(strings.NewReader("ab"), nil)
	c, ok := s.NextByte()
	utils.Assert(t, ok, "expected a byte")
	utils.AssertEqual(t, c, 'a')
	c, ok = s.NextByte()
	utils.Assert(t, ok, "expected a byte")
	utils.AssertEqual(t, c, 'b')
	_, ok = s.NextByte()
	utils.Assert(t, !ok, "expected end of input")
	utils.AssertNoError(t, s.Err())
}

func TestStream_ReadError(t *testing.T) {
	broken := errors.New("broken pipe")
	s := bf.NewStream(iotest.ErrReader(broken), nil)
	_, ok := s.NextByte()
	utils.Assert(t, !ok, "a read error ends input")
	utils.AssertErrorIs(t, s.Err(), broken)
}

func TestStream_NilReader(t *testing.T) {
	s := bf.NewStream(nil, nil)
	_, ok := s.NextByte()
	utils.Assert(t, !ok, "expected end of input")
	utils.AssertNoError(t, s.WriteByte('x'))
	utils.AssertNoError(t, s.Flush())
}

func TestStream_WritesThrough(t *testing.T) {
	var out bytes.Buffer
	s := bf.NewStream(nil, &out)
	utils.AssertNoError(t, s.WriteByte('h'))
	utils.AssertEqual(t, out.String(), "h")
	utils.AssertNoError(t, s.WriteByte('i'))
	utils.AssertEqual(t, out.String(), "hi")
}

type errWriter struct {
	err error
}

func (w errWriter) Write([]byte) (int, error) {
	return 0, w.err
}

type shortWriter struct{}

func (shortWriter) Write([]byte) (int, error) {
	return 0, nil
}

func TestStream_WriteError(t *testing.T) {
	broken := errors.New("broken pipe")
	s := bf.NewStream(nil, errWriter{broken})
	utils.AssertErrorIs(t, s.WriteByte('x'), broken)

	s = bf.NewStream(nil, shortWriter{})
	utils.AssertErrorIs(t, s.WriteByte('x'), io.ErrShortWrite)
}

func TestStream_FlushesBufferedWriter(t *testing.T) {
	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	s := bf.NewStream(strings.NewReader("y"), w)
	utils.AssertNoError(t, s.WriteByte('?'))
	utils.AssertEqual(t, out.Len(), 0)

	// a read shows the prompt first
	s.NextByte()
	utils.AssertEqual(t, out.String(), "?")

	utils.AssertNoError(t, s.WriteByte('!'))
	utils.AssertNoError(t, s.Flush())
	utils.AssertEqual(t, out.String(), "?!")
}

func TestBuffer(t *testing.T) {
	b := bf.NewBuffer([]byte{7})
	c, ok := b.NextByte()
	utils.Assert(t, ok, "expected a byte")
	utils.AssertEqual(t, c, 7)
	_, ok = b.NextByte()
	utils.Assert(t, !ok, "expected end of input")

	utils.AssertNoError(t, b.WriteByte('o'))
	utils.AssertNoError(t, b.WriteByte('k'))
	utils.AssertEqual(t, b.String(), "ok")
}

func TestDiscard(t *testing.T) {
	utils.AssertNoError(t, bf.Discard.WriteByte(1))
	_, ok := bf.Discard.NextByte()
	utils.Assert(t, !ok, "Discard never yields input")
}
