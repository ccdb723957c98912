package iset

import (
	"encoding/binary"
	"maps"
	"math"
	"sync"

	"github.com/Sumatoshi-tech/isetdb/pkg/safeconv"
)

// growCapacityNumerator and growCapacityDenominator define the 3/2 growth factor
// used when restoring hibernated storage.
const (
	growCapacityNumerator   = 3
	growCapacityDenominator = 2
)

// Hibernated column layout: four uint32 link columns, four float64 score
// columns, one gaps column. Member strings are kept in a separate blob.
const (
	colLeft = iota
	colRight
	colParent
	colBalance
	colLow
	colHigh
	colMaxLow
	colMaxHigh
	colGaps
	colCount
)

// nilNode is the reserved arena index that plays the role of a nil pointer.
const nilNode = 0

// node is a single stored interval plus its tree-structural and augmentation
// fields. Children and parent are arena indices; index 0 means "no node".
type node struct {
	left, right, parent uint32

	// balance is height(right) minus height(left), kept in {-1, 0, 1}
	// between operations.
	balance int8

	low, high float64

	// maxLow and maxHigh are the maximum low and high endpoints reachable in
	// this node's subtree, itself included.
	maxLow, maxHigh float64

	member string
}

// Allocator is the arena allocator for interval tree nodes. Node lifetime is
// rooted here: the tree only ever holds indices into the arena, so rotations
// are index reassignments and whole-tree teardown is an arena reset.
type Allocator struct {
	storage []node
	gaps    map[uint32]bool

	// HibernationThreshold is the minimum storage length for Hibernate to
	// compress anything. Zero compresses unconditionally.
	HibernationThreshold int

	hibernatedData       [colCount][]byte
	hibernatedMembers    []byte
	hibernatedMembersLen int
	hibernatedStorageLen int
	hibernatedGapsLen    int
}

// NewAllocator creates an empty arena.
func NewAllocator() *Allocator {
	return &Allocator{
		storage: []node{},
		gaps:    map[uint32]bool{},
	}
}

// Size returns the currently allocated arena length, recycled slots included.
func (allocator *Allocator) Size() int {
	return len(allocator.storage)
}

// Used returns the number of live nodes in the arena, the nil sentinel
// excluded.
func (allocator *Allocator) Used() int {
	if allocator.storage == nil {
		panic("iset: hibernated allocators cannot be used")
	}

	if len(allocator.storage) == 0 {
		return 0
	}

	return len(allocator.storage) - len(allocator.gaps) - 1
}

// Hibernated reports whether the arena is currently compressed.
func (allocator *Allocator) Hibernated() bool {
	return allocator.storage == nil && allocator.hibernatedStorageLen > 0
}

// Clone copies the arena. Panics when hibernated.
func (allocator *Allocator) Clone() *Allocator {
	if allocator.storage == nil {
		panic("iset: cannot clone a hibernated allocator")
	}

	clone := &Allocator{
		HibernationThreshold: allocator.HibernationThreshold,
		storage:              make([]node, len(allocator.storage), cap(allocator.storage)),
		gaps:                 map[uint32]bool{},
	}
	copy(clone.storage, allocator.storage)
	maps.Copy(clone.gaps, allocator.gaps)

	return clone
}

// Reset drops every node at once. Existing indices become invalid.
func (allocator *Allocator) Reset() {
	if allocator.storage == nil {
		panic("iset: hibernated allocators cannot be used")
	}

	allocator.storage = allocator.storage[:0]
	allocator.gaps = map[uint32]bool{}
}

// Hibernate compresses the arena in place with LZ4. The columns are
// deinterleaved first to improve the compression ratio. The arena stays in
// RAM; nothing touches disk.
func (allocator *Allocator) Hibernate() {
	if allocator.hibernatedStorageLen > 0 {
		panic("iset: cannot hibernate an already hibernated allocator")
	}

	// An empty arena holds nothing worth compressing; hibernating it would
	// only leave the allocator unusable.
	if len(allocator.storage) == 0 || len(allocator.storage) < allocator.HibernationThreshold {
		return
	}

	allocator.hibernatedStorageLen = len(allocator.storage)

	links := [4][]uint32{}
	for idx := range links {
		links[idx] = make([]uint32, len(allocator.storage))
	}

	scores := [4][]float64{}
	for idx := range scores {
		scores[idx] = make([]float64, len(allocator.storage))
	}

	members := make([]byte, 0, len(allocator.storage))

	for idx, nd := range allocator.storage {
		links[0][idx] = nd.left
		links[1][idx] = nd.right
		links[2][idx] = nd.parent
		links[3][idx] = uint32(uint8(nd.balance))
		scores[0][idx] = nd.low
		scores[1][idx] = nd.high
		scores[2][idx] = nd.maxLow
		scores[3][idx] = nd.maxHigh
		members = binary.AppendUvarint(members, uint64(len(nd.member)))
		members = append(members, nd.member...)
	}

	allocator.storage = nil
	allocator.hibernatedMembersLen = len(members)

	wg := &sync.WaitGroup{}
	wg.Add(len(links) + len(scores) + 2)

	for idx, buffer := range links {
		go func(bufIdx int, buf []uint32) {
			allocator.hibernatedData[colLeft+bufIdx] = CompressUInt32Slice(buf)
			links[bufIdx] = nil

			wg.Done()
		}(idx, buffer)
	}

	for idx, buffer := range scores {
		go func(bufIdx int, buf []float64) {
			allocator.hibernatedData[colLow+bufIdx] = CompressFloat64Slice(buf)
			scores[bufIdx] = nil

			wg.Done()
		}(idx, buffer)
	}

	go func() {
		allocator.hibernatedMembers = CompressBytes(members)

		wg.Done()
	}()

	go func() {
		if len(allocator.gaps) > 0 {
			allocator.hibernatedGapsLen = len(allocator.gaps)

			gapsBuffer := make([]uint32, 0, len(allocator.gaps))
			for key := range allocator.gaps {
				gapsBuffer = append(gapsBuffer, key)
			}

			allocator.hibernatedData[colGaps] = CompressUInt32Slice(gapsBuffer)
		}

		allocator.gaps = nil

		wg.Done()
	}()

	wg.Wait()
}

// Boot performs the opposite of Hibernate - decompresses and restores the
// arena. Calling Boot on a non-hibernated allocator is a no-op.
func (allocator *Allocator) Boot() {
	if allocator.storage == nil && allocator.hibernatedStorageLen == 0 {
		allocator.storage = []node{}
		allocator.gaps = map[uint32]bool{}

		return
	}

	if allocator.hibernatedStorageLen == 0 {
		// Not hibernated.
		return
	}

	allocator.gaps = map[uint32]bool{}

	links := [4][]uint32{}
	scores := [4][]float64{}

	var members []byte

	wg := &sync.WaitGroup{}
	wg.Add(len(links) + len(scores) + 2)

	for idx := range links {
		go func(bufIdx int) {
			links[bufIdx] = make([]uint32, allocator.hibernatedStorageLen)
			DecompressUInt32Slice(allocator.hibernatedData[colLeft+bufIdx], links[bufIdx])
			allocator.hibernatedData[colLeft+bufIdx] = nil

			wg.Done()
		}(idx)
	}

	for idx := range scores {
		go func(bufIdx int) {
			scores[bufIdx] = make([]float64, allocator.hibernatedStorageLen)
			DecompressFloat64Slice(allocator.hibernatedData[colLow+bufIdx], scores[bufIdx])
			allocator.hibernatedData[colLow+bufIdx] = nil

			wg.Done()
		}(idx)
	}

	go func() {
		members = DecompressBytes(allocator.hibernatedMembers, allocator.hibernatedMembersLen)
		allocator.hibernatedMembers = nil
		allocator.hibernatedMembersLen = 0

		wg.Done()
	}()

	go func() {
		if allocator.hibernatedGapsLen > 0 {
			buffer := make([]uint32, allocator.hibernatedGapsLen)
			DecompressUInt32Slice(allocator.hibernatedData[colGaps], buffer)

			for _, key := range buffer {
				allocator.gaps[key] = true
			}

			allocator.hibernatedData[colGaps] = nil
			allocator.hibernatedGapsLen = 0
		}

		wg.Done()
	}()

	wg.Wait()

	capSize := (allocator.hibernatedStorageLen * growCapacityNumerator) / growCapacityDenominator
	allocator.storage = make([]node, allocator.hibernatedStorageLen, capSize)

	offset := 0

	for idx := range allocator.storage {
		nd := &allocator.storage[idx]
		nd.left = links[0][idx]
		nd.right = links[1][idx]
		nd.parent = links[2][idx]
		nd.balance = int8(uint8(links[3][idx]))
		nd.low = scores[0][idx]
		nd.high = scores[1][idx]
		nd.maxLow = scores[2][idx]
		nd.maxHigh = scores[3][idx]

		length, read := binary.Uvarint(members[offset:])
		doAssert(read > 0)
		offset += read
		nd.member = string(members[offset : offset+int(length)])
		offset += int(length)
	}

	allocator.hibernatedStorageLen = 0
}

// HibernatedSize returns the total compressed byte size, or zero when the
// arena is not hibernated.
func (allocator *Allocator) HibernatedSize() int {
	total := len(allocator.hibernatedMembers)
	for _, data := range allocator.hibernatedData {
		total += len(data)
	}

	return total
}

func (allocator *Allocator) malloc() uint32 {
	if allocator.storage == nil {
		panic("iset: hibernated allocators cannot be used")
	}

	if len(allocator.gaps) > 0 {
		var key uint32

		for key = range allocator.gaps {
			break
		}

		delete(allocator.gaps, key)
		allocator.storage[key] = node{}

		return key
	}

	nodeLen := len(allocator.storage)
	if nodeLen == 0 {
		// Index zero is the nil sentinel.
		allocator.storage = append(allocator.storage, node{})
		nodeLen = 1
	}

	if nodeLen == math.MaxUint32 {
		panic("iset: arena size reached the uint32 limit")
	}

	allocator.storage = append(allocator.storage, node{})

	return safeconv.MustIntToUint32(nodeLen)
}

func (allocator *Allocator) free(nodeIdx uint32) {
	if allocator.storage == nil {
		panic("iset: hibernated allocators cannot be used")
	}

	if nodeIdx == nilNode {
		panic("iset: node #0 is special and cannot be deallocated")
	}

	_, exists := allocator.gaps[nodeIdx]
	doAssert(!exists)

	allocator.storage[nodeIdx] = node{}
	allocator.gaps[nodeIdx] = true
}

func doAssert(condition bool) {
	if !condition {
		panic("iset internal assertion failed")
	}
}
