package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test constants.
const (
	testKey      = "calendar"
	testOtherKey = "bookings"
)

// TestEnsureIntervalSet_LazyCreation verifies a key is created on first use.
func TestEnsureIntervalSet_LazyCreation(t *testing.T) {
	t.Parallel()

	db := New()
	require.Equal(t, 0, db.Len())

	set, err := db.EnsureIntervalSet(testKey)
	require.NoError(t, err)
	require.NotNil(t, set)
	assert.Equal(t, 1, db.Len())
	assert.Equal(t, KindIntervalSet, db.KindOf(testKey))

	again, err := db.EnsureIntervalSet(testKey)
	require.NoError(t, err)
	assert.Same(t, set, again)
}

// TestIntervalSet_AbsentKey verifies lookups on missing keys return nil
// without creating anything.
func TestIntervalSet_AbsentKey(t *testing.T) {
	t.Parallel()

	db := New()

	set, err := db.IntervalSet(testKey)
	require.NoError(t, err)
	assert.Nil(t, set)
	assert.Equal(t, 0, db.Len())
}

// TestDropIfEmpty_LastRemovalDestroysKey verifies the last-removal lifecycle
// trigger.
func TestDropIfEmpty_LastRemovalDestroysKey(t *testing.T) {
	t.Parallel()

	db := New()

	set, err := db.EnsureIntervalSet(testKey)
	require.NoError(t, err)

	_, err = set.Add(1, 2, "m")
	require.NoError(t, err)

	db.DropIfEmpty(testKey)
	assert.Equal(t, 1, db.Len(), "non-empty sets must survive")

	set.Remove("m")
	db.DropIfEmpty(testKey)
	assert.Equal(t, 0, db.Len())
}

// TestDelete verifies outright key deletion.
func TestDelete(t *testing.T) {
	t.Parallel()

	db := New()

	set, err := db.EnsureIntervalSet(testKey)
	require.NoError(t, err)

	_, err = set.Add(1, 2, "m")
	require.NoError(t, err)

	assert.True(t, db.Delete(testKey))
	assert.False(t, db.Delete(testKey))
	assert.Equal(t, KindNone, db.KindOf(testKey))
}

// TestKeys verifies lexicographic key listing.
func TestKeys(t *testing.T) {
	t.Parallel()

	db := New()

	_, err := db.EnsureIntervalSet(testKey)
	require.NoError(t, err)
	_, err = db.EnsureIntervalSet(testOtherKey)
	require.NoError(t, err)

	assert.Equal(t, []string{testOtherKey, testKey}, db.Keys())
}

// TestHibernate_BootsTransparentlyOnAccess verifies a hibernated set is
// restored by the next lookup.
func TestHibernate_BootsTransparentlyOnAccess(t *testing.T) {
	t.Parallel()

	db := New()

	set, err := db.EnsureIntervalSet(testKey)
	require.NoError(t, err)

	_, err = set.Add(1, 5, "m")
	require.NoError(t, err)

	require.NoError(t, db.Hibernate(testKey))
	require.True(t, set.Hibernated())

	restored, err := db.IntervalSet(testKey)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.False(t, restored.Hibernated())
	assert.True(t, restored.Contains("m"))
}

// TestHibernate_AbsentKey verifies hibernating a missing key is a no-op.
func TestHibernate_AbsentKey(t *testing.T) {
	t.Parallel()

	db := New()
	require.NoError(t, db.Hibernate(testKey))
}
