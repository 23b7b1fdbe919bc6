package bf

import "fmt"

// Dispatch selects how the interpreter invokes instructions.
type Dispatch uint8

const (
	// Direct switches over the closed set of instruction kinds.
	Direct Dispatch = iota
	// Indirect calls each instruction through the Op interface.
	Indirect
)

func (d Dispatch) String() string {
	switch d {
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	default:
		return fmt.Sprintf("Dispatch(%d)", uint8(d))
	}
}

func (d Dispatch) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dispatch) UnmarshalText(text []byte) error {
	switch string(text) {
	case "direct", "":
		*d = Direct
	case "indirect":
		*d = Indirect
	default:
		return fmt.Errorf("invalid dispatch %q: want direct or indirect", text)
	}
	return nil
}

// EOFPolicy decides what an Input instruction does to the current cell once
// the channel has no more input.
type EOFPolicy uint8

const (
	// EOFUnchanged leaves the cell as it was.
	EOFUnchanged EOFPolicy = iota
	// EOFZero stores 0.
	EOFZero
	// EOFMax stores 255, the byte image of -1.
	EOFMax
)

func (p EOFPolicy) String() string {
	switch p {
	case EOFUnchanged:
		return "unchanged"
	case EOFZero:
		return "zero"
	case EOFMax:
		return "max"
	default:
		return fmt.Sprintf("EOFPolicy(%d)", uint8(p))
	}
}

func (p EOFPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *EOFPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unchanged", "":
		*p = EOFUnchanged
	case "zero":
		*p = EOFZero
	case "max":
		*p = EOFMax
	default:
		return fmt.Errorf("invalid eof policy %q: want unchanged, zero or max", text)
	}
	return nil
}

type options struct {
	tape      *Tape
	capacity  int
	dispatch  Dispatch
	eof       EOFPolicy
	stepLimit uint64
}

// Option configures an Interpreter.
type Option func(*options)

// WithTape runs on t instead of a fresh tape, so it can be inspected after
// the run.
func WithTape(t *Tape) Option {
	return func(o *options) {
		o.tape = t
	}
}

// WithTapeCapacity sets the preallocated size of a fresh tape.
func WithTapeCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

func WithDispatch(d Dispatch) Option {
	return func(o *options) {
		o.dispatch = d
	}
}

func WithEOF(p EOFPolicy) Option {
	return func(o *options) {
		o.eof = p
	}
}

// WithStepLimit bounds the number of executed instructions. Zero means no
// limit.
func WithStepLimit(n uint64) Option {
	return func(o *options) {
		o.stepLimit = n
	}
}
