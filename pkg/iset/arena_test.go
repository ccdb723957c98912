package iset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAllocatorMalloc_ReservesSentinel verifies that index zero is never
// handed out.
func TestAllocatorMalloc_ReservesSentinel(t *testing.T) {
	t.Parallel()

	allocator := NewAllocator()
	first := allocator.malloc()

	assert.Equal(t, uint32(1), first)
	assert.Equal(t, 2, allocator.Size())
	assert.Equal(t, 1, allocator.Used())
}

// TestAllocatorFree_RecyclesSlots verifies freed slots are reused before the
// arena grows.
func TestAllocatorFree_RecyclesSlots(t *testing.T) {
	t.Parallel()

	allocator := NewAllocator()
	first := allocator.malloc()
	second := allocator.malloc()

	allocator.free(first)
	require.Equal(t, 1, allocator.Used())

	recycled := allocator.malloc()
	assert.Equal(t, first, recycled)
	assert.Equal(t, 3, allocator.Size())

	allocator.free(second)
	allocator.free(recycled)
	assert.Equal(t, 0, allocator.Used())
}

// TestAllocatorFree_SentinelPanics verifies node #0 cannot be deallocated.
func TestAllocatorFree_SentinelPanics(t *testing.T) {
	t.Parallel()

	allocator := NewAllocator()
	allocator.malloc()

	assert.Panics(t, func() {
		allocator.free(0)
	})
}

// TestAllocatorHibernate_RoundTrip verifies columns, gaps and member strings
// survive a compress/restore cycle.
func TestAllocatorHibernate_RoundTrip(t *testing.T) {
	t.Parallel()

	allocator := NewAllocator()
	tree := NewTree(allocator)

	live := map[string]uint32{}
	tree.onMove = func(member string, nodeIdx uint32) {
		live[member] = nodeIdx
	}

	for idx := range 50 {
		member := "m" + string(rune('a'+idx%26)) + string(rune('a'+idx/26))
		live[member] = tree.Insert(float64(idx)*1.5, float64(idx)*1.5+4, member)
	}

	tree.Remove(live["mka"])
	delete(live, "mka")
	tree.Remove(live["mua"])
	delete(live, "mua")

	want := make([]Entry, 0, tree.Len())
	for entry := range tree.Entries() {
		want = append(want, entry)
	}

	allocator.Hibernate()
	require.True(t, allocator.Hibernated())
	assert.Panics(t, func() { allocator.malloc() })

	allocator.Boot()
	require.False(t, allocator.Hibernated())

	got := make([]Entry, 0, tree.Len())
	for entry := range tree.Entries() {
		got = append(got, entry)
	}

	assert.Equal(t, want, got)
	assert.Equal(t, 48, tree.Len())

	// Recycled gaps must survive hibernation.
	assert.Equal(t, 48, allocator.Used())
}

// TestAllocatorHibernate_EmptyIsNoOp verifies hibernating an arena with no
// nodes leaves it live and usable even when the threshold is zero.
func TestAllocatorHibernate_EmptyIsNoOp(t *testing.T) {
	t.Parallel()

	allocator := NewAllocator()
	allocator.Hibernate()

	require.False(t, allocator.Hibernated())

	assert.NotPanics(t, func() {
		allocator.malloc()
	})
	assert.Equal(t, 1, allocator.Used())
}

// TestAllocatorHibernate_Twice verifies double hibernation fails loudly.
func TestAllocatorHibernate_Twice(t *testing.T) {
	t.Parallel()

	allocator := NewAllocator()
	tree := NewTree(allocator)
	tree.Insert(1, 2, "m")

	allocator.Hibernate()

	assert.Panics(t, func() {
		allocator.Hibernate()
	})
}

// TestAllocatorClone verifies an independent copy.
func TestAllocatorClone(t *testing.T) {
	t.Parallel()

	allocator := NewAllocator()
	tree := NewTree(allocator)
	idx := tree.Insert(1, 2, "m")

	clone := allocator.Clone()
	require.Equal(t, allocator.Used(), clone.Used())

	tree.Remove(idx)
	assert.Equal(t, 1, clone.Used())
	assert.Equal(t, 0, allocator.Used())
}
