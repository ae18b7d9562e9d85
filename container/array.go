package container

import "slices"

// Array is a Sequence backed by a growable slice.
type Array struct {
	items []int
}

// NewArray returns an empty Array with room for capacity elements.
func NewArray(capacity int) *Array {
	if capacity < 0 {
		capacity = 0
	}
	return &Array{items: make([]int, 0, capacity)}
}

func (a *Array) Append(v int) {
	a.items = append(a.items, v)
}

func (a *Array) Len() int {
	return len(a.items)
}

func (a *Array) InsertAt(i, v int) error {
	if i < 0 || i > len(a.items) {
		return outOfRange(i, len(a.items))
	}
	a.items = append(a.items, 0)
	copy(a.items[i+1:], a.items[i:])
	a.items[i] = v
	return nil
}

func (a *Array) RemoveAt(i int) (int, error) {
	if i < 0 || i >= len(a.items) {
		return 0, outOfRange(i, len(a.items))
	}
	v := a.items[i]
	copy(a.items[i:], a.items[i+1:])
	a.items = a.items[:len(a.items)-1]
	return v, nil
}

func (a *Array) Get(i int) (int, error) {
	if i < 0 || i >= len(a.items) {
		return 0, outOfRange(i, len(a.items))
	}
	return a.items[i], nil
}

func (a *Array) Sort() {
	slices.Sort(a.items)
}
