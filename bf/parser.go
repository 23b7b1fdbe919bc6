package bf

import (
	"strings"
	"sync"
)

// Instruction is the compiled form of one source symbol. Target is the index
// of the matching bracket for LoopStart and LoopEnd and zero otherwise.
type Instruction struct {
	Kind   Kind
	Target int
}

// Program is an immutable, loop-resolved instruction sequence. It may be run
// by any number of interpreters concurrently.
type Program struct {
	code []Instruction

	compileOnce sync.Once
	ops         []Op
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.code)
}

// At returns the instruction at index i.
func (p *Program) At(i int) Instruction {
	return p.code[i]
}

// String renders the program as canonical source text.
func (p *Program) String() string {
	var b strings.Builder
	b.Grow(len(p.code))
	for _, in := range p.code {
		b.WriteByte(byte(in.Kind))
	}
	return b.String()
}

// Parse compiles source into a Program. Characters outside the instruction
// alphabet are ignored. Unbalanced brackets yield a *ParseError and a nil
// Program.
func Parse(source string) (*Program, error) {
	code := make([]Instruction, 0, len(source))
	var open []Position

	line, col := 1, 1
	for off, c := range source {
		pos := Position{Offset: off, Line: line, Column: col, Index: len(code)}
		if c == '\n' {
			line, col = line+1, 1
		} else {
			col++
		}

		k := kindOf(c)
		switch k {
		case Ignore:
			continue
		case LoopStart:
			open = append(open, pos)
		case LoopEnd:
			if len(open) == 0 {
				return nil, &ParseError{Err: ErrUnmatchedCloseBracket, Positions: []Position{pos}}
			}
			start := open[len(open)-1].Index
			open = open[:len(open)-1]
			code[start].Target = pos.Index
			code = append(code, Instruction{Kind: LoopEnd, Target: start})
			continue
		}
		code = append(code, Instruction{Kind: k})
	}

	if len(open) > 0 {
		return nil, &ParseError{Err: ErrUnmatchedOpenBracket, Positions: open}
	}
	return &Program{code: code}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(source string) *Program {
	p, err := Parse(source)
	if err != nil {
		panic("bf: " + err.Error())
	}
	return p
}
