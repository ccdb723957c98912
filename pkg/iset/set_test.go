package iset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test constants.
const (
	testSetSeed    = 7
	testSetMembers = 500
)

// memberSet collects the members reachable via in-order traversal.
func memberSet(s *Set) map[string]bool {
	members := map[string]bool{}
	for entry := range s.Entries() {
		members[entry.Member] = true
	}

	return members
}

// verifyDualStructure checks that the tree and the member index hold exactly
// the same members.
func verifyDualStructure(t *testing.T, s *Set) {
	t.Helper()

	treeMembers := memberSet(s)
	require.Len(t, s.index, len(treeMembers))

	for member, nodeIdx := range s.index {
		require.True(t, treeMembers[member], "index member %q missing from tree", member)
		require.Equal(t, member, s.tree.At(nodeIdx).Member, "index points at a foreign node")
	}
}

// TestSetAdd_DuplicateMemberRejected verifies that a second add for the same
// member reports zero added and leaves cardinality at one.
func TestSetAdd_DuplicateMemberRejected(t *testing.T) {
	t.Parallel()

	s := NewSet()

	added, err := s.Add(1, 2, "m")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(1, 2, "m")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, s.Len())
	verifyDualStructure(t, s)
}

// TestSetAdd_InvertedInterval verifies the low <= high contract.
func TestSetAdd_InvertedInterval(t *testing.T) {
	t.Parallel()

	s := NewSet()

	added, err := s.Add(5, 1, "m")
	require.ErrorIs(t, err, ErrInvertedInterval)
	assert.False(t, added)
	assert.Equal(t, 0, s.Len())
}

// TestSetUpsert_ReplacesInterval verifies upsert-by-replace semantics.
func TestSetUpsert_ReplacesInterval(t *testing.T) {
	t.Parallel()

	s := NewSet()

	fresh, err := s.Upsert(1, 5, "m")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = s.Upsert(10, 20, "m")
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, 1, s.Len())

	entry, ok := s.Get("m")
	require.True(t, ok)
	assert.InDelta(t, 10.0, entry.Low, 0)
	assert.InDelta(t, 20.0, entry.High, 0)
	verifyDualStructure(t, s)
}

// TestSetRemove_RoundTrip verifies that add-then-remove restores both the
// cardinality and the tree size, leaving no stray node behind.
func TestSetRemove_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewSet()

	for idx := range 10 {
		_, err := s.Add(float64(idx), float64(idx)+3, string(rune('a'+idx)))
		require.NoError(t, err)
	}

	before := s.Len()
	treeBefore := s.tree.Len()

	added, err := s.Add(1, 5, "m")
	require.NoError(t, err)
	require.True(t, added)
	require.True(t, s.Remove("m"))

	assert.Equal(t, before, s.Len())
	assert.Equal(t, treeBefore, s.tree.Len())
	assert.False(t, s.Contains("m"))
	verifyDualStructure(t, s)
}

// TestSetRemove_Absent verifies removing an unknown member reports false.
func TestSetRemove_Absent(t *testing.T) {
	t.Parallel()

	s := NewSet()
	assert.False(t, s.Remove("ghost"))
}

// TestSetOverlap_Facade verifies the façade delegates overlap queries.
func TestSetOverlap_Facade(t *testing.T) {
	t.Parallel()

	s := NewSet()

	_, err := s.Add(1, 3, "x")
	require.NoError(t, err)
	_, err = s.Add(2, 6, "y")
	require.NoError(t, err)
	_, err = s.Add(8, 10, "z")
	require.NoError(t, err)

	var members []string
	for entry := range s.Overlap(4, 9) {
		members = append(members, entry.Member)
	}

	assert.Equal(t, []string{"y", "z"}, members)
}

// TestSet_RandomizedDualConsistency hammers the façade and checks the
// dual-structure invariant the whole way.
func TestSet_RandomizedDualConsistency(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(testSetSeed))
	s := NewSet()
	shadow := map[string][2]float64{}

	for idx := range testSetMembers {
		member := "member-" + string(rune('a'+idx%26)) + string(rune('a'+(idx/26)%26))

		switch rng.Intn(3) {
		case 0:
			low := rng.Float64() * 100
			high := low + rng.Float64()*10

			added, err := s.Add(low, high, member)
			require.NoError(t, err)

			if _, exists := shadow[member]; exists {
				assert.False(t, added)
			} else if added {
				shadow[member] = [2]float64{low, high}
			}
		case 1:
			low := rng.Float64() * 100
			high := low + rng.Float64()*10

			_, err := s.Upsert(low, high, member)
			require.NoError(t, err)

			shadow[member] = [2]float64{low, high}
		default:
			removed := s.Remove(member)
			_, existed := shadow[member]
			assert.Equal(t, existed, removed)
			delete(shadow, member)
		}
	}

	require.Equal(t, len(shadow), s.Len())
	verifyDualStructure(t, s)

	for member, bounds := range shadow {
		entry, ok := s.Get(member)
		require.True(t, ok)
		assert.InDelta(t, bounds[0], entry.Low, 0)
		assert.InDelta(t, bounds[1], entry.High, 0)
	}
}

// TestSetHibernate_Boot verifies the compress/restore cycle preserves the
// whole collection, index included.
func TestSetHibernate_Boot(t *testing.T) {
	t.Parallel()

	s := NewSet()

	for idx := range 100 {
		_, err := s.Add(float64(idx), float64(idx)+5, "member-"+string(rune('a'+idx%26))+string(rune('a'+idx/26)))
		require.NoError(t, err)
	}

	want := memberSet(s)

	s.Hibernate()
	require.True(t, s.Hibernated())
	assert.Positive(t, s.HibernatedSize())

	s.Boot()
	require.False(t, s.Hibernated())
	assert.Equal(t, 100, s.Len())
	assert.Equal(t, want, memberSet(s))
	verifyDualStructure(t, s)

	// The restored set must remain fully operational.
	removed := false

	for member := range want {
		removed = s.Remove(member)

		break
	}

	assert.True(t, removed)
	assert.Equal(t, 99, s.Len())
}

// TestSetHibernate_BelowThreshold verifies the threshold gate.
func TestSetHibernate_BelowThreshold(t *testing.T) {
	t.Parallel()

	s := NewSet(WithHibernationThreshold(1000))

	_, err := s.Add(1, 2, "m")
	require.NoError(t, err)

	s.Hibernate()
	assert.False(t, s.Hibernated())
	assert.True(t, s.Contains("m"))
}

// TestSetHibernate_EmptySetStaysUsable verifies hibernating an empty set is a
// no-op under any threshold and the set keeps accepting operations.
func TestSetHibernate_EmptySetStaysUsable(t *testing.T) {
	t.Parallel()

	s := NewSet()

	s.Hibernate()
	require.False(t, s.Hibernated())

	s.Boot()

	added, err := s.Add(1, 2, "m")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, s.Len())
	verifyDualStructure(t, s)
}

// TestSetClear verifies teardown.
func TestSetClear(t *testing.T) {
	t.Parallel()

	s := NewSet()

	_, err := s.Add(1, 2, "m")
	require.NoError(t, err)

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains("m"))
}
