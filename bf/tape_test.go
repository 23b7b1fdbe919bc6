package bf_test

import (
	"testing"

	"github.com/MarcinKonowalczyk/tapebf/bf"
	"github.com/MarcinKonowalczyk/tapebf/utils"
)

func TestTape_New(t *testing.T) {
	tape := bf.NewTape(16)
	utils.AssertEqual(t, tape.Len(), 1)
	utils.AssertEqual(t, tape.Pointer(), 0)
	utils.AssertEqual(t, tape.Current(), 0)

	tape = bf.NewTape(0)
	utils.AssertEqual(t, tape.Len(), 1)
}

func TestTape_ZeroValue(t *testing.T) {
	var tape bf.Tape
	utils.AssertEqual(t, tape.Current(), 0)
	utils.AssertEqual(t, tape.Len(), 1)
	tape.Increment()
	utils.AssertEqual(t, tape.Current(), 1)

	var moved bf.Tape
	moved.MoveRight()
	utils.AssertEqual(t, moved.Pointer(), 1)
	utils.AssertEqual(t, moved.Len(), 2)
	utils.AssertErrorIs(t, (&bf.Tape{}).MoveLeft(), bf.ErrTapeUnderflow)

	var reset bf.Tape
	reset.Reset()
	utils.AssertEqual(t, reset.Len(), 1)
	utils.AssertDiff(t, reset.Cells(), []uint8{0})
}

func TestTape_Wraparound(t *testing.T) {
	tape := bf.NewTape(1)
	tape.Decrement()
	utils.AssertEqual(t, tape.Current(), 255)
	tape.Increment()
	utils.AssertEqual(t, tape.Current(), 0)
}

func TestTape_InverseOperations(t *testing.T) {
	tape := bf.NewTape(1)
	for v := 0; v < 256; v++ {
		tape.Set(uint8(v))
		tape.Increment()
		tape.Decrement()
		utils.AssertEqual(t, tape.Current(), uint8(v))
		tape.Decrement()
		tape.Increment()
		utils.AssertEqual(t, tape.Current(), uint8(v))
	}
}

func TestTape_GrowsRight(t *testing.T) {
	tape := bf.NewTape(1)
	for i := 0; i < 3; i++ {
		tape.MoveRight()
	}
	utils.AssertEqual(t, tape.Pointer(), 3)
	utils.AssertEqual(t, tape.Len(), 4)
	utils.AssertEqual(t, tape.Current(), 0)

	utils.AssertNoError(t, tape.MoveLeft())
	tape.MoveRight()
	utils.AssertEqual(t, tape.Len(), 4)
}

func TestTape_UnderflowLeavesPointer(t *testing.T) {
	tape := bf.NewTape(1)
	tape.Set(7)
	err := tape.MoveLeft()
	utils.AssertErrorIs(t, err, bf.ErrTapeUnderflow)
	utils.AssertEqual(t, tape.Pointer(), 0)
	utils.AssertEqual(t, tape.Current(), 7)
}

func TestTape_AtAndCells(t *testing.T) {
	tape := bf.NewTape(4)
	tape.Set(1)
	tape.MoveRight()
	tape.Set(2)

	utils.AssertEqual(t, tape.At(0), 1)
	utils.AssertEqual(t, tape.At(1), 2)
	utils.AssertEqual(t, tape.At(2), 0)
	utils.AssertEqual(t, tape.At(-1), 0)

	cells := tape.Cells()
	utils.AssertDiff(t, cells, []uint8{1, 2})
	cells[0] = 42
	utils.AssertEqual(t, tape.At(0), 1)
}

func TestTape_Reset(t *testing.T) {
	tape := bf.NewTape(4)
	tape.Set(9)
	tape.MoveRight()
	tape.Set(9)
	tape.Reset()
	utils.AssertEqual(t, tape.Len(), 1)
	utils.AssertEqual(t, tape.Pointer(), 0)
	utils.AssertEqual(t, tape.Current(), 0)
	tape.MoveRight()
	utils.AssertEqual(t, tape.Current(), 0)
}
