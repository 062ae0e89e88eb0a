package object

import "slices"

// orderedSet is an insertion-ordered set with no duplicates.
// Backs the added, updated, and deleted logs of a Repository.
type orderedSet[T comparable] struct {
	items []T
	index map[T]struct{}
}

func newOrderedSet[T comparable]() *orderedSet[T] {
	return &orderedSet[T]{index: make(map[T]struct{})}
}

// Add appends v if absent. Returns true if v was added.
func (s *orderedSet[T]) Add(v T) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Remove deletes v, preserving the order of the rest. Returns true if v was present.
func (s *orderedSet[T]) Remove(v T) bool {
	if _, ok := s.index[v]; !ok {
		return false
	}
	delete(s.index, v)
	if i := slices.Index(s.items, v); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
	}
	return true
}

func (s *orderedSet[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

func (s *orderedSet[T]) Len() int {
	return len(s.items)
}

// Items returns a copy in insertion order.
func (s *orderedSet[T]) Items() []T {
	return slices.Clone(s.items)
}

// Take returns the items in insertion order and empties the set.
func (s *orderedSet[T]) Take() []T {
	items := s.items
	s.items = nil
	clear(s.index)
	return items
}
