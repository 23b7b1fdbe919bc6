package bf

// Op is an instruction in open form: it applies its effect to m and returns
// the index of the next instruction. pc is its own index in the program.
type Op interface {
	Exec(pc int, m *Machine) (next int, err error)
}

type moveRight struct{}

func (moveRight) Exec(pc int, m *Machine) (int, error) {
	m.Tape.MoveRight()
	return pc + 1, nil
}

type moveLeft struct{}

func (moveLeft) Exec(pc int, m *Machine) (int, error) {
	if err := m.Tape.MoveLeft(); err != nil {
		return pc, err
	}
	return pc + 1, nil
}

type increment struct{}

func (increment) Exec(pc int, m *Machine) (int, error) {
	m.Tape.Increment()
	return pc + 1, nil
}

type decrement struct{}

func (decrement) Exec(pc int, m *Machine) (int, error) {
	m.Tape.Decrement()
	return pc + 1, nil
}

type output struct{}

func (output) Exec(pc int, m *Machine) (int, error) {
	if err := m.Output(); err != nil {
		return pc, err
	}
	return pc + 1, nil
}

type input struct{}

func (input) Exec(pc int, m *Machine) (int, error) {
	m.Input()
	return pc + 1, nil
}

// loopOpen skips past its partner when the current cell is zero.
type loopOpen struct {
	target int
}

func (op loopOpen) Exec(pc int, m *Machine) (int, error) {
	if m.Tape.Current() == 0 {
		return op.target + 1, nil
	}
	return pc + 1, nil
}

// loopClose jumps back into the body while the current cell is non-zero.
type loopClose struct {
	target int
}

func (op loopClose) Exec(pc int, m *Machine) (int, error) {
	if m.Tape.Current() != 0 {
		return op.target + 1, nil
	}
	return pc + 1, nil
}

// Ops returns the program in open form. The slice is shared; do not modify
// it.
func (p *Program) Ops() []Op {
	return p.compile()
}

func (p *Program) compile() []Op {
	p.compileOnce.Do(func() {
		ops := make([]Op, len(p.code))
		for i, in := range p.code {
			ops[i] = newOp(in)
		}
		p.ops = ops
	})
	return p.ops
}

func newOp(in Instruction) Op {
	switch in.Kind {
	case Right:
		return moveRight{}
	case Left:
		return moveLeft{}
	case Increment:
		return increment{}
	case Decrement:
		return decrement{}
	case Output:
		return output{}
	case Input:
		return input{}
	case LoopStart:
		return loopOpen{target: in.Target}
	case LoopEnd:
		return loopClose{target: in.Target}
	default:
		panic("bf: no op for instruction " + in.Kind.String())
	}
}
