package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestTesting_CompareArraysUnordered(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	b := []int{5, 4, 3, 2, 1}
	Assert(t, CompareArraysUnordered(a, b), "Arrays are not equal")
}

func TestTesting_CompareArraysUnordered_Duplicates(t *testing.T) {
	a := []int{1, 2, 3, 3, 5}
	b := []int{5, 3, 3, 2, 1}
	Assert(t, CompareArraysUnordered(a, b), "Arrays are not equal")
}

func TestTesting_CompareArraysUnordered_DifferentCounts(t *testing.T) {
	a := []int{1, 1, 2}
	b := []int{1, 2, 2}
	Assert(t, !CompareArraysUnordered(a, b), "Arrays are equal")
}

func TestTesting_CompareArrays_Order(t *testing.T) {
	Assert(t, CompareArrays([]byte("abc"), []byte("abc")), "Arrays are not equal")
	Assert(t, !CompareArrays([]byte("abc"), []byte("acb")), "Arrays are equal")
	Assert(t, !CompareArrays([]byte("ab"), []byte("abc")), "Arrays are equal")
}

func TestTesting_AssertErrorIs_Wrapped(t *testing.T) {
	base := errors.New("base")
	AssertErrorIs(t, fmt.Errorf("context: %w", base), base)
}
