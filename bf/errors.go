package bf

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnmatchedOpenBracket  = errors.New("unmatched '['")
	ErrUnmatchedCloseBracket = errors.New("unmatched ']'")

	ErrTapeUnderflow     = errors.New("tape underflow")
	ErrOutputFailure     = errors.New("output failure")
	ErrStepLimitExceeded = errors.New("step limit exceeded")
	ErrCanceled          = errors.New("run canceled")
)

// Position locates an instruction in the source text.
type Position struct {
	Offset int // byte offset into the source
	Line   int // 1-based
	Column int // 1-based, in runes
	Index  int // index of the instruction in the Program
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ParseError reports unbalanced brackets. Positions holds the offending
// bracket for ErrUnmatchedCloseBracket, or every unresolved '[' (outermost
// first) for ErrUnmatchedOpenBracket.
type ParseError struct {
	Err       error
	Positions []Position
}

func (e *ParseError) Error() string {
	if len(e.Positions) == 0 {
		return e.Err.Error()
	}
	msg := fmt.Sprintf("%v at %v", e.Err, e.Positions[0])
	if n := len(e.Positions) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RunError is the terminal outcome of a failed run. PC is the index of the
// instruction that failed; it equals the program length when the failure
// happened after the last instruction (a final flush).
type RunError struct {
	Err   error
	PC    int
	Cause error
}

func (e *RunError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v at instruction %d", e.Err, e.PC)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *RunError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Exit statuses returned by ExitStatus.
const (
	ExitHalted    = 0
	ExitFailure   = 1
	ExitParse     = 2
	ExitStepLimit = 3
)

// ExitStatus maps the result of Parse or Run to a process exit status.
func ExitStatus(err error) int {
	var perr *ParseError
	switch {
	case err == nil:
		return ExitHalted
	case errors.As(err, &perr):
		return ExitParse
	case errors.Is(err, ErrStepLimitExceeded):
		return ExitStepLimit
	default:
		return ExitFailure
	}
}
