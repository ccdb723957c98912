package iset

import (
	"errors"
	"iter"
)

// ErrInvertedInterval is returned when an interval's low endpoint exceeds its
// high endpoint.
var ErrInvertedInterval = errors.New("iset: interval low endpoint is greater than its high endpoint")

// Set is the interval-set collection stored under one database key. It keeps
// the same elements in an interval tree (ordered iteration, overlap queries)
// and in a member index (O(1) existence and removal lookups). The two
// structures mutate within the same logical operation and never diverge.
//
// A Set assumes a single writer at a time; the surrounding store serializes
// access per key.
type Set struct {
	tree  *Tree
	index map[string]uint32
}

// Option configures a Set.
type Option func(*Set)

// WithHibernationThreshold sets the minimum arena length below which
// Hibernate is a no-op.
func WithHibernationThreshold(threshold int) Option {
	return func(s *Set) {
		s.tree.allocator.HibernationThreshold = threshold
	}
}

// NewSet creates an empty interval set with its own arena.
func NewSet(opts ...Option) *Set {
	s := &Set{
		tree:  NewTree(NewAllocator()),
		index: map[string]uint32{},
	}

	s.tree.onMove = func(member string, nodeIdx uint32) {
		_, present := s.index[member]
		doAssert(present)
		s.index[member] = nodeIdx
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Add stores the interval [low, high] for member. It reports false without
// mutating anything when the member is already present.
func (s *Set) Add(low, high float64, member string) (bool, error) {
	if low > high {
		return false, ErrInvertedInterval
	}

	if _, exists := s.index[member]; exists {
		return false, nil
	}

	s.index[member] = s.tree.Insert(low, high, member)

	return true, nil
}

// Upsert stores the interval for member, replacing any previous interval.
// It reports whether the member was newly added.
func (s *Set) Upsert(low, high float64, member string) (bool, error) {
	if low > high {
		return false, ErrInvertedInterval
	}

	existed := s.Remove(member)
	s.index[member] = s.tree.Insert(low, high, member)

	return !existed, nil
}

// Remove deletes the member's interval. Reports whether it was present.
func (s *Set) Remove(member string) bool {
	nodeIdx, exists := s.index[member]
	if !exists {
		return false
	}

	delete(s.index, member)
	s.tree.Remove(nodeIdx)

	doAssert(len(s.index) == s.tree.Len())

	return true
}

// Contains reports whether the member is present.
func (s *Set) Contains(member string) bool {
	_, exists := s.index[member]

	return exists
}

// Get returns the member's stored interval.
func (s *Set) Get(member string) (Entry, bool) {
	nodeIdx, exists := s.index[member]
	if !exists {
		return Entry{}, false
	}

	return s.tree.At(nodeIdx), true
}

// Len returns the set's cardinality.
func (s *Set) Len() int {
	return len(s.index)
}

// Overlap lazily yields every stored interval intersecting [low, high], in
// ascending (low, high desc) order.
func (s *Set) Overlap(low, high float64) iter.Seq[Entry] {
	return s.tree.Overlap(low, high)
}

// Entries yields every stored interval in ascending key order.
func (s *Set) Entries() iter.Seq[Entry] {
	return s.tree.Entries()
}

// Clear frees every node and empties the set.
func (s *Set) Clear() {
	s.tree.Erase()
	s.index = map[string]uint32{}
}

// Hibernate compresses the set's arena in RAM and drops the member index.
// Every operation except Boot and Hibernated panics until Boot is called.
// An empty or below-threshold set is left live untouched.
func (s *Set) Hibernate() {
	s.tree.allocator.Hibernate()

	if s.tree.allocator.Hibernated() {
		s.index = nil
	}
}

// Boot restores a hibernated set and rebuilds the member index. Calling Boot
// on a live set is a no-op.
func (s *Set) Boot() {
	if !s.tree.allocator.Hibernated() {
		return
	}

	s.tree.allocator.Boot()
	s.rebuildIndex()
}

// Hibernated reports whether the set is currently compressed.
func (s *Set) Hibernated() bool {
	return s.tree.allocator.Hibernated()
}

// HibernatedSize returns the compressed byte size, or zero when live.
func (s *Set) HibernatedSize() int {
	return s.tree.allocator.HibernatedSize()
}

// ArenaSize returns the number of arena slots backing the set.
func (s *Set) ArenaSize() int {
	return s.tree.allocator.Size()
}

// rebuildIndex rescans the arena and repopulates the member index after Boot.
func (s *Set) rebuildIndex() {
	s.index = make(map[string]uint32, s.tree.Len())

	alloc := s.tree.storage()
	for nodeIdx := range alloc {
		if nodeIdx == nilNode {
			continue
		}

		idx := uint32(nodeIdx)
		if s.tree.allocator.gaps[idx] {
			continue
		}

		s.index[alloc[nodeIdx].member] = idx
	}

	doAssert(len(s.index) == s.tree.Len())
}
