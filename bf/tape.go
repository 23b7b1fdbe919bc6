package bf

// DefaultTapeCapacity is the number of cells preallocated for a new tape.
const DefaultTapeCapacity = 30_000

// Tape is the byte memory a program operates on. It starts with a single
// zero cell, grows to the right on demand and refuses to move left of the
// origin. The zero value is an empty tape ready to use.
type Tape struct {
	cells []uint8
	ptr   int
}

// NewTape returns a zeroed tape with room for capacity cells before it needs
// to reallocate. capacity is a hint, not a limit.
func NewTape(capacity int) *Tape {
	if capacity < 1 {
		capacity = 1
	}
	cells := make([]uint8, 1, capacity)
	return &Tape{cells: cells}
}

// ensure gives a zero Tape its first cell.
func (t *Tape) ensure() {
	if len(t.cells) == 0 {
		t.cells = append(t.cells, 0)
	}
}

// Reset zeroes the tape, shrinks it back to one cell and rewinds the pointer.
func (t *Tape) Reset() {
	clear(t.cells)
	t.cells = t.cells[:0]
	t.ensure()
	t.ptr = 0
}

func (t *Tape) Current() uint8 {
	t.ensure()
	return t.cells[t.ptr]
}

func (t *Tape) Set(v uint8) {
	t.ensure()
	t.cells[t.ptr] = v
}

func (t *Tape) Increment() {
	t.ensure()
	t.cells[t.ptr]++
}

func (t *Tape) Decrement() {
	t.ensure()
	t.cells[t.ptr]--
}

func (t *Tape) MoveRight() {
	t.ensure()
	t.ptr++
	if t.ptr == len(t.cells) {
		t.cells = append(t.cells, 0)
	}
}

// MoveLeft returns ErrTapeUnderflow and leaves the pointer unchanged when it
// is already at the origin.
func (t *Tape) MoveLeft() error {
	if t.ptr == 0 {
		return ErrTapeUnderflow
	}
	t.ptr--
	return nil
}

// Pointer returns the index of the current cell.
func (t *Tape) Pointer() int {
	return t.ptr
}

// Len returns the current extent of the tape.
func (t *Tape) Len() int {
	t.ensure()
	return len(t.cells)
}

// At returns cell i, or 0 if i lies outside the current extent.
func (t *Tape) At(i int) uint8 {
	if i < 0 || i >= len(t.cells) {
		return 0
	}
	return t.cells[i]
}

// Cells returns a copy of the tape contents.
func (t *Tape) Cells() []uint8 {
	t.ensure()
	return append([]uint8(nil), t.cells...)
}
