package bf

import (
	"context"
	"errors"
	"fmt"

	"github.com/containerd/log"
)

// cancelCheckInterval is how many instructions run between two looks at the
// context.
const cancelCheckInterval = 1 << 12

// Machine is the mutable state instructions act on.
type Machine struct {
	Tape    *Tape
	Channel Channel
	EOF     EOFPolicy
}

// Output writes the current cell to the channel.
func (m *Machine) Output() error {
	if err := m.Channel.WriteByte(m.Tape.Current()); err != nil {
		return &RunError{Err: ErrOutputFailure, Cause: err}
	}
	return nil
}

// Input reads one byte into the current cell, applying the EOF policy once
// the channel is exhausted.
func (m *Machine) Input() {
	c, ok := m.Channel.NextByte()
	if ok {
		m.Tape.Set(c)
		return
	}
	switch m.EOF {
	case EOFZero:
		m.Tape.Set(0)
	case EOFMax:
		m.Tape.Set(0xff)
	}
}

// Interpreter runs one Program on its own tape. It is not safe for
// concurrent use; run the same Program from several interpreters instead.
type Interpreter struct {
	program *Program
	machine Machine
	opts    options
	pc      int
	steps   uint64
}

// NewInterpreter prepares p for execution against ch. A nil ch behaves like
// Discard.
func NewInterpreter(p *Program, ch Channel, opts ...Option) *Interpreter {
	o := options{capacity: DefaultTapeCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	tape := o.tape
	if tape == nil {
		tape = NewTape(o.capacity)
	}
	if ch == nil {
		ch = Discard
	}
	return &Interpreter{
		program: p,
		machine: Machine{Tape: tape, Channel: ch, EOF: o.eof},
		opts:    o,
	}
}

// Reset rewinds the program counter and zeroes the tape.
func (i *Interpreter) Reset() {
	i.pc = 0
	i.steps = 0
	i.machine.Tape.Reset()
}

func (i *Interpreter) Tape() *Tape {
	return i.machine.Tape
}

// PC returns the program counter: the index of the next instruction, or of
// the one that failed.
func (i *Interpreter) PC() int {
	return i.pc
}

// Steps returns the number of instructions executed so far.
func (i *Interpreter) Steps() uint64 {
	return i.steps
}

func (i *Interpreter) Run() error {
	return i.RunContext(context.Background())
}

// RunContext runs the program until it halts, fails, exceeds the step limit
// or ctx is done. It returns nil on a normal halt and a *RunError otherwise.
// A channel with a Flush method is flushed before returning.
func (i *Interpreter) RunContext(ctx context.Context) error {
	var err error
	if cerr := ctx.Err(); cerr != nil {
		err = &RunError{Err: ErrCanceled, PC: i.pc, Cause: cerr}
	} else if i.opts.dispatch == Indirect {
		err = i.runIndirect(ctx)
	} else {
		err = i.runDirect(ctx)
	}

	if f, ok := i.machine.Channel.(flusher); ok {
		if ferr := f.Flush(); ferr != nil && err == nil {
			err = &RunError{Err: ErrOutputFailure, PC: i.pc, Cause: ferr}
		}
	}

	entry := log.G(ctx).WithFields(log.Fields{
		"pc":       i.pc,
		"steps":    i.steps,
		"dispatch": i.opts.dispatch,
	})
	if err != nil {
		entry.WithError(err).Debug("program failed")
	} else {
		entry.Debug("program halted")
	}
	return err
}

// tick accounts for the instruction about to run.
func (i *Interpreter) tick(ctx context.Context, done <-chan struct{}) error {
	if i.opts.stepLimit > 0 && i.steps >= i.opts.stepLimit {
		return &RunError{Err: ErrStepLimitExceeded, PC: i.pc}
	}
	i.steps++
	if done != nil && i.steps%cancelCheckInterval == 0 {
		select {
		case <-done:
			return &RunError{Err: ErrCanceled, PC: i.pc, Cause: ctx.Err()}
		default:
		}
	}
	return nil
}

func (i *Interpreter) fail(err error) error {
	var rerr *RunError
	if !errors.As(err, &rerr) {
		rerr = &RunError{Err: err}
	}
	rerr.PC = i.pc
	return rerr
}

func (i *Interpreter) runDirect(ctx context.Context) error {
	code := i.program.code
	m := &i.machine
	tape := m.Tape
	done := ctx.Done()

	for i.pc < len(code) {
		if err := i.tick(ctx, done); err != nil {
			return err
		}
		in := code[i.pc]
		switch in.Kind {
		case Right:
			tape.MoveRight()
		case Left:
			if err := tape.MoveLeft(); err != nil {
				return i.fail(err)
			}
		case Increment:
			tape.Increment()
		case Decrement:
			tape.Decrement()
		case Output:
			if err := m.Output(); err != nil {
				return i.fail(err)
			}
		case Input:
			m.Input()
		case LoopStart:
			if tape.Current() == 0 {
				i.pc = in.Target + 1
				continue
			}
		case LoopEnd:
			if tape.Current() != 0 {
				i.pc = in.Target + 1
				continue
			}
		default:
			panic(fmt.Sprintf("bf: invalid instruction %v at %d", in.Kind, i.pc))
		}
		i.pc++
	}
	return nil
}

func (i *Interpreter) runIndirect(ctx context.Context) error {
	ops := i.program.compile()
	done := ctx.Done()

	for i.pc < len(ops) {
		if err := i.tick(ctx, done); err != nil {
			return err
		}
		next, err := ops[i.pc].Exec(i.pc, &i.machine)
		if err != nil {
			return i.fail(err)
		}
		i.pc = next
	}
	return nil
}

// Run executes p on a fresh tape.
func Run(p *Program, ch Channel, opts ...Option) error {
	return NewInterpreter(p, ch, opts...).Run()
}

// RunContext executes p on a fresh tape until it halts or ctx is done.
func RunContext(ctx context.Context, p *Program, ch Channel, opts ...Option) error {
	return NewInterpreter(p, ch, opts...).RunContext(ctx)
}
