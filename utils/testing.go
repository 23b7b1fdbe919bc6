package utils

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Test helper
func Assert(t testing.TB, predicate bool, msg string) {
	t.Helper()
	if !predicate {
		t.Error(msg)
	}
}

func AssertEqual[T comparable](t testing.TB, got T, want T) {
	t.Helper()
	if got != want {
		t.Errorf("Expected %v == %v (%T)", got, want, got)
	}
}

func AssertNotEqual[T comparable](t testing.TB, got T, want T) {
	t.Helper()
	if got == want {
		t.Errorf("Expected %v != %v (%T)", got, want, got)
	}
}

// Assert that error is nil
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got '%v'", err)
	}
}

// Assert that an error is not nil
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

// Assert that err matches target according to errors.Is
func AssertErrorIs(t testing.TB, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("Expected error matching '%v', got '%v'", target, err)
	}
}

// Compare two values structurally and report a diff on mismatch. Options are
// passed through to cmp.Diff.
func AssertDiff(t testing.TB, got any, want any, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}
}

// Compare two values using a custom comparator function.
func AssertEqualWithComparator[T any](t testing.TB, got T, want T, comparator func(T, T) bool) {
	t.Helper()
	if !comparator(got, want) {
		t.Errorf("Expected %v == %v (%T)", got, want, got)
	}
}

func CompareArrays[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equivalent to AssertEqualWithComparator where the comparator is
// CompareArrays.
func AssertEqualArrays[T comparable](t testing.TB, got []T, want []T) {
	t.Helper()
	AssertEqualWithComparator(t, got, want, CompareArrays)
}

// Check if two arrays are equal, regardless of the order of the elements.
func CompareArraysUnordered[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	am := make(map[T]int) // element -> count
	for _, e := range a {
		am[e]++
	}
	for _, e := range b {
		if am[e] == 0 {
			return false
		}
		am[e]--
	}
	return true
}

func AssertEqualArraysUnordered[T comparable](t testing.TB, got []T, want []T) {
	t.Helper()
	AssertEqualWithComparator(t, got, want, CompareArraysUnordered)
}
