// Package container provides the two sequence implementations whose
// operation costs are benchmarked: a contiguous array and a linked node chain.
package container

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned when an index falls outside the valid range
// of a sequence.
var ErrIndexOutOfRange = errors.New("index out of range")

// Sequence is an ordered collection of integers addressed by position.
type Sequence interface {
	// Append adds v after the last element.
	Append(v int)
	// Len returns the number of stored elements.
	Len() int
	// InsertAt places v at index i, shifting later elements right.
	// Valid indices are [0, Len()].
	InsertAt(i, v int) error
	// RemoveAt deletes and returns the element at index i.
	RemoveAt(i int) (int, error)
	// Get returns the element at index i.
	Get(i int) (int, error)
	// Sort orders the elements ascending in place.
	Sort()
}

func outOfRange(i, size int) error {
	return fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, i, size)
}
