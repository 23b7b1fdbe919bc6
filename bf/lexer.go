package bf

import "strings"

// Kind identifies one of the eight instructions of the language. The value of
// each kind is its source symbol.
type Kind byte

const (
	Right     Kind = '>'
	Left      Kind = '<'
	Increment Kind = '+'
	Decrement Kind = '-'
	Output    Kind = '.'
	Input     Kind = ','
	LoopStart Kind = '['
	LoopEnd   Kind = ']'

	// Ignore is returned by kindOf for anything outside the alphabet. It is
	// never stored in a Program.
	Ignore Kind = ' '
)

func kindOf(c rune) Kind {
	switch c {
	case '>':
		return Right
	case '<':
		return Left
	case '+':
		return Increment
	case '-':
		return Decrement
	case '.':
		return Output
	case ',':
		return Input
	case '[':
		return LoopStart
	case ']':
		return LoopEnd
	default:
		return Ignore
	}
}

func (k Kind) String() string {
	switch k {
	case Right, Left, Increment, Decrement, Output, Input, LoopStart, LoopEnd:
		return string(rune(k))
	default:
		return "?"
	}
}

// Name is the long, human readable name of the kind.
func (k Kind) Name() string {
	switch k {
	case Right:
		return "move-right"
	case Left:
		return "move-left"
	case Increment:
		return "increment"
	case Decrement:
		return "decrement"
	case Output:
		return "output"
	case Input:
		return "input"
	case LoopStart:
		return "loop-open"
	case LoopEnd:
		return "loop-close"
	default:
		return "invalid"
	}
}

// IsLoop reports whether k carries a jump target.
func (k Kind) IsLoop() bool {
	return k == LoopStart || k == LoopEnd
}

// Strip returns only the instruction symbols of source, in order. Everything
// else is a comment.
func Strip(source string) string {
	var b strings.Builder
	b.Grow(len(source))
	for _, c := range source {
		if kindOf(c) != Ignore {
			b.WriteRune(c)
		}
	}
	return b.String()
}
