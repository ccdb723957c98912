// Package store implements the key namespace owning interval-set instances.
// Each key maps to one typed object; interval sets are created lazily on
// first add and destroyed when the last member is removed or the key is
// deleted.
package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/Sumatoshi-tech/isetdb/pkg/iset"
)

// ErrWrongType is returned when a key exists but holds a different kind of
// collection than the operation expects.
var ErrWrongType = errors.New("store: key holds a different kind of value")

// Kind tags the collection type stored under a key.
type Kind uint8

// Collection kinds.
const (
	KindNone Kind = iota
	KindIntervalSet
)

// String returns the kind's wire-facing name.
func (k Kind) String() string {
	switch k {
	case KindIntervalSet:
		return "iset"
	default:
		return "none"
	}
}

// object is one typed value in the key table.
type object struct {
	kind Kind
	set  *iset.Set
}

// DB is the key table. The table itself is safe for concurrent use; a value
// returned for a key assumes a single logical operation mutating it at a
// time, which the command dispatcher guarantees by executing serially.
type DB struct {
	mu      sync.RWMutex
	objects map[string]*object

	hibernationThreshold int
}

// Option configures a DB.
type Option func(*DB)

// WithHibernationThreshold sets the arena-length threshold applied to every
// interval set created by this DB.
func WithHibernationThreshold(threshold int) Option {
	return func(db *DB) {
		db.hibernationThreshold = threshold
	}
}

// New creates an empty key table.
func New(opts ...Option) *DB {
	db := &DB{objects: map[string]*object{}}

	for _, opt := range opts {
		opt(db)
	}

	return db
}

// IntervalSet returns the interval set stored under key, or nil when the key
// does not exist. A key holding another collection kind yields ErrWrongType.
// A hibernated set is booted before it is returned.
func (db *DB) IntervalSet(key string) (*iset.Set, error) {
	db.mu.RLock()
	obj, exists := db.objects[key]
	db.mu.RUnlock()

	if !exists {
		return nil, nil
	}

	if obj.kind != KindIntervalSet {
		return nil, ErrWrongType
	}

	obj.set.Boot()

	return obj.set, nil
}

// EnsureIntervalSet returns the interval set under key, creating it when the
// key does not exist yet.
func (db *DB) EnsureIntervalSet(key string) (*iset.Set, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	obj, exists := db.objects[key]
	if !exists {
		obj = &object{
			kind: KindIntervalSet,
			set:  iset.NewSet(iset.WithHibernationThreshold(db.hibernationThreshold)),
		}
		db.objects[key] = obj
	}

	if obj.kind != KindIntervalSet {
		return nil, ErrWrongType
	}

	obj.set.Boot()

	return obj.set, nil
}

// DropIfEmpty deletes the key when it holds an empty interval set. This is
// the last-removal lifecycle trigger.
func (db *DB) DropIfEmpty(key string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	obj, exists := db.objects[key]
	if exists && obj.kind == KindIntervalSet && !obj.set.Hibernated() && obj.set.Len() == 0 {
		obj.set.Clear()
		delete(db.objects, key)
	}
}

// Delete removes a key outright, tearing its collection down. Reports
// whether the key existed.
func (db *DB) Delete(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	obj, exists := db.objects[key]
	if !exists {
		return false
	}

	if obj.kind == KindIntervalSet && !obj.set.Hibernated() {
		obj.set.Clear()
	}

	delete(db.objects, key)

	return true
}

// KindOf returns the collection kind stored under key.
func (db *DB) KindOf(key string) Kind {
	db.mu.RLock()
	defer db.mu.RUnlock()

	obj, exists := db.objects[key]
	if !exists {
		return KindNone
	}

	return obj.kind
}

// Len returns the number of keys.
func (db *DB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.objects)
}

// Keys returns every key in lexicographic order.
func (db *DB) Keys() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	keys := make([]string, 0, len(db.objects))
	for key := range db.objects {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Hibernate compresses the interval set under key in RAM. It is transparently
// booted again on the next access.
func (db *DB) Hibernate(key string) error {
	db.mu.RLock()
	obj, exists := db.objects[key]
	db.mu.RUnlock()

	if !exists {
		return nil
	}

	if obj.kind != KindIntervalSet {
		return ErrWrongType
	}

	if !obj.set.Hibernated() {
		obj.set.Hibernate()
	}

	return nil
}
