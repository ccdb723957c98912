// Package iset provides an interval-set collection: numeric intervals
// [low, high] keyed by an opaque member string, held simultaneously in an
// augmented AVL tree (for ordered iteration and overlap queries) and in a
// member hash index (for O(1) existence and removal lookups).
//
// The tree is backed by an arena allocator where children and parent links
// are uint32 indices, so rotations are index reassignments and teardown is an
// arena reset. Each node carries the maximum low and high endpoints of its
// subtree, enabling subtree pruning during overlap queries. Insert, remove
// and lookup are O(log N); an overlap query is O(log N + k) for k matches.
package iset

import "iter"

// Entry is one stored interval. Entries yielded by queries are value copies
// and stay valid after subsequent mutations.
type Entry struct {
	Low    float64
	High   float64
	Member string
}

// Overlaps reports whether the entry intersects the closed range [low, high].
func (e Entry) Overlaps(low, high float64) bool {
	return e.Low <= high && e.High >= low
}

// Tree is a height-balanced interval tree over arena nodes. It is a multiset
// over intervals: duplicate (low, high, member) tuples are structurally
// permitted; per-member uniqueness is the Set's concern.
type Tree struct {
	allocator *Allocator
	root      uint32
	count     int

	// onMove is invoked when a payload is relocated to another arena index
	// during deletion, so external indices can follow.
	onMove func(member string, nodeIdx uint32)
}

// NewTree creates an empty tree backed by the given arena.
func NewTree(allocator *Allocator) *Tree {
	return &Tree{allocator: allocator}
}

// Allocator returns the bound arena.
func (t *Tree) Allocator() *Allocator {
	return t.allocator
}

// Len returns the number of intervals in the tree.
func (t *Tree) Len() int {
	return t.count
}

func (t *Tree) storage() []node {
	return t.allocator.storage
}

// compareKeys orders intervals by low ascending; among equal lows the wider
// interval (larger high) sorts first.
func compareKeys(aLow, aHigh, bLow, bHigh float64) int {
	switch {
	case aLow < bLow:
		return -1
	case aLow > bLow:
		return 1
	case aHigh > bHigh:
		return -1
	case aHigh < bHigh:
		return 1
	default:
		return 0
	}
}

// Insert adds the interval [low, high] with the given member and returns its
// arena index. low <= high is the caller's contract.
func (t *Tree) Insert(low, high float64, member string) uint32 {
	doAssert(low <= high)

	nodeIdx := t.allocator.malloc()
	alloc := t.storage()
	fresh := &alloc[nodeIdx]
	fresh.low = low
	fresh.high = high
	fresh.maxLow = low
	fresh.maxHigh = high
	fresh.member = member

	t.count++

	if t.root == nilNode {
		t.root = nodeIdx

		return nodeIdx
	}

	current := t.root

	for {
		currentNode := &alloc[current]

		if compareKeys(low, high, currentNode.low, currentNode.high) < 0 {
			if currentNode.left == nilNode {
				currentNode.left = nodeIdx
				alloc[nodeIdx].parent = current

				break
			}

			current = currentNode.left
		} else {
			if currentNode.right == nilNode {
				currentNode.right = nodeIdx
				alloc[nodeIdx].parent = current

				break
			}

			current = currentNode.right
		}
	}

	t.propagateMax(current)
	t.rebalanceAfterInsert(nodeIdx)

	return nodeIdx
}

// rebalanceAfterInsert walks upward from a freshly attached leaf, adjusting
// balance factors. A single rotation always restores the height invariant
// after one insertion, so the walk stops at the first rotation or at the
// first ancestor whose height did not change.
func (t *Tree) rebalanceAfterInsert(nodeIdx uint32) {
	alloc := t.storage()
	child := nodeIdx
	parent := alloc[child].parent

	for parent != nilNode {
		if alloc[parent].left == child {
			alloc[parent].balance--
		} else {
			alloc[parent].balance++
		}

		switch alloc[parent].balance {
		case 0:
			// Height unchanged at this ancestor.
			return
		case -1, 1:
			// Subtree grew by one; keep walking.
			child = parent
			parent = alloc[parent].parent
		default:
			t.rebalance(parent)

			return
		}
	}
}

// Remove deletes the node at the given arena index.
func (t *Tree) Remove(nodeIdx uint32) {
	alloc := t.storage()
	doAssert(nodeIdx != nilNode && nodeIdx < uint32(len(alloc)))

	if alloc[nodeIdx].left != nilNode && alloc[nodeIdx].right != nilNode {
		// Two children: move the in-order successor's payload here, then
		// delete the successor, which has at most one child.
		succ := t.minimum(alloc[nodeIdx].right)
		target := &alloc[nodeIdx]
		source := alloc[succ]
		target.low = source.low
		target.high = source.high
		target.member = source.member

		if t.onMove != nil {
			t.onMove(source.member, nodeIdx)
		}

		nodeIdx = succ
	}

	parent := alloc[nodeIdx].parent
	wasLeft := parent != nilNode && alloc[parent].left == nodeIdx

	child := alloc[nodeIdx].left
	if child == nilNode {
		child = alloc[nodeIdx].right
	}

	t.replaceChild(nodeIdx, child)
	t.allocator.free(nodeIdx)
	t.count--

	t.propagateMax(parent)
	t.rebalanceAfterRemove(parent, wasLeft)
}

// replaceChild splices child into nodeIdx's position under its parent.
func (t *Tree) replaceChild(nodeIdx, child uint32) {
	alloc := t.storage()
	parent := alloc[nodeIdx].parent

	switch {
	case parent == nilNode:
		t.root = child
	case alloc[parent].left == nodeIdx:
		alloc[parent].left = child
	default:
		alloc[parent].right = child
	}

	if child != nilNode {
		alloc[child].parent = parent
	}
}

// rebalanceAfterRemove walks upward from the splice point. Unlike insertion,
// a deletion-triggered rotation may shrink the subtree and force continued
// propagation, so the walk only stops once an ancestor's height is unchanged
// or the root has been processed.
func (t *Tree) rebalanceAfterRemove(parent uint32, wasLeft bool) {
	alloc := t.storage()

	for parent != nilNode {
		if wasLeft {
			alloc[parent].balance++
		} else {
			alloc[parent].balance--
		}

		var subtree uint32

		switch alloc[parent].balance {
		case -1, 1:
			// Height unchanged at this ancestor.
			return
		case 0:
			// Subtree shrank by one; keep walking.
			subtree = parent
		default:
			newRoot, shrank := t.rebalance(parent)
			if !shrank {
				return
			}

			subtree = newRoot
		}

		up := alloc[subtree].parent
		if up != nilNode {
			wasLeft = alloc[up].left == subtree
		}

		parent = up
	}
}

// rebalance applies one of the four standard AVL rotations at a node whose
// balance factor reached ±2. It returns the new subtree root and whether the
// subtree's height decreased.
func (t *Tree) rebalance(nodeIdx uint32) (newRoot uint32, heightShrank bool) {
	alloc := t.storage()

	if alloc[nodeIdx].balance < 0 {
		heavy := alloc[nodeIdx].left
		heavyBalance := alloc[heavy].balance

		if heavyBalance <= 0 {
			// Left-Left: single right rotation.
			t.rotate(nodeIdx, false)

			if heavyBalance == 0 {
				// Only reachable after a deletion: height is unchanged.
				alloc[heavy].balance = 1
				alloc[nodeIdx].balance = -1

				return heavy, false
			}

			alloc[heavy].balance = 0
			alloc[nodeIdx].balance = 0

			return heavy, true
		}

		// Left-Right: left rotation on the child, right rotation on the node.
		grand := alloc[heavy].right
		grandBalance := alloc[grand].balance
		t.rotate(heavy, true)
		t.rotate(nodeIdx, false)
		resetDoubleBalance(alloc, grand, heavy, nodeIdx, grandBalance)

		return grand, true
	}

	heavy := alloc[nodeIdx].right
	heavyBalance := alloc[heavy].balance

	if heavyBalance >= 0 {
		// Right-Right: single left rotation.
		t.rotate(nodeIdx, true)

		if heavyBalance == 0 {
			alloc[heavy].balance = -1
			alloc[nodeIdx].balance = 1

			return heavy, false
		}

		alloc[heavy].balance = 0
		alloc[nodeIdx].balance = 0

		return heavy, true
	}

	// Right-Left: right rotation on the child, left rotation on the node.
	grand := alloc[heavy].left
	grandBalance := alloc[grand].balance
	t.rotate(heavy, false)
	t.rotate(nodeIdx, true)
	resetDoubleBalance(alloc, grand, nodeIdx, heavy, grandBalance)

	return grand, true
}

// resetDoubleBalance applies the AVL reset table after a double rotation.
// grand is the new subtree root; newLeft and newRight are its children;
// grandBalance is grand's balance factor before the rotations.
func resetDoubleBalance(alloc []node, grand, newLeft, newRight uint32, grandBalance int8) {
	switch grandBalance {
	case -1:
		alloc[newLeft].balance = 0
		alloc[newRight].balance = 1
	case 0:
		alloc[newLeft].balance = 0
		alloc[newRight].balance = 0
	default:
		alloc[newLeft].balance = -1
		alloc[newRight].balance = 0
	}

	alloc[grand].balance = 0
}

// rotate performs a rotation at nodeIdx. When left is true, rotates left;
// otherwise rotates right. Maintains the subtree maxima augmentation.
func (t *Tree) rotate(nodeIdx uint32, left bool) {
	alloc := t.storage()

	var pivot uint32

	if left {
		pivot = alloc[nodeIdx].right
		alloc[nodeIdx].right = alloc[pivot].left

		if alloc[pivot].left != nilNode {
			alloc[alloc[pivot].left].parent = nodeIdx
		}

		alloc[pivot].left = nodeIdx
	} else {
		pivot = alloc[nodeIdx].left
		alloc[nodeIdx].left = alloc[pivot].right

		if alloc[pivot].right != nilNode {
			alloc[alloc[pivot].right].parent = nodeIdx
		}

		alloc[pivot].right = nodeIdx
	}

	parent := alloc[nodeIdx].parent
	alloc[pivot].parent = parent

	switch {
	case parent == nilNode:
		t.root = pivot
	case alloc[parent].left == nodeIdx:
		alloc[parent].left = pivot
	default:
		alloc[parent].right = pivot
	}

	alloc[nodeIdx].parent = pivot

	// Recalculate maxima bottom-up: the demoted node first, then the pivot.
	recalcMax(alloc, nodeIdx)
	recalcMax(alloc, pivot)
}

// recalcMax recomputes a node's subtree maxima from its own endpoints and its
// children's maxima.
func recalcMax(alloc []node, nodeIdx uint32) {
	if nodeIdx == nilNode {
		return
	}

	nd := &alloc[nodeIdx]
	maxLow, maxHigh := nd.low, nd.high

	if nd.left != nilNode {
		if alloc[nd.left].maxLow > maxLow {
			maxLow = alloc[nd.left].maxLow
		}

		if alloc[nd.left].maxHigh > maxHigh {
			maxHigh = alloc[nd.left].maxHigh
		}
	}

	if nd.right != nilNode {
		if alloc[nd.right].maxLow > maxLow {
			maxLow = alloc[nd.right].maxLow
		}

		if alloc[nd.right].maxHigh > maxHigh {
			maxHigh = alloc[nd.right].maxHigh
		}
	}

	nd.maxLow = maxLow
	nd.maxHigh = maxHigh
}

// propagateMax recomputes subtree maxima from the given node up to the root.
func (t *Tree) propagateMax(nodeIdx uint32) {
	alloc := t.storage()

	for nodeIdx != nilNode {
		recalcMax(alloc, nodeIdx)
		nodeIdx = alloc[nodeIdx].parent
	}
}

// minimum returns the leftmost node of the subtree rooted at nodeIdx.
func (t *Tree) minimum(nodeIdx uint32) uint32 {
	alloc := t.storage()

	for alloc[nodeIdx].left != nilNode {
		nodeIdx = alloc[nodeIdx].left
	}

	return nodeIdx
}

// At returns a copy of the interval stored at the given arena index.
func (t *Tree) At(nodeIdx uint32) Entry {
	alloc := t.storage()
	doAssert(nodeIdx != nilNode && nodeIdx < uint32(len(alloc)))
	nd := &alloc[nodeIdx]

	return Entry{Low: nd.low, High: nd.high, Member: nd.member}
}

// Entries yields every stored interval in ascending key order. The sequence
// is restartable; mutating the tree mid-iteration is the caller's fault.
func (t *Tree) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		t.inorder(t.root, yield)
	}
}

func (t *Tree) inorder(nodeIdx uint32, yield func(Entry) bool) bool {
	if nodeIdx == nilNode {
		return true
	}

	alloc := t.storage()
	nd := alloc[nodeIdx]

	if !t.inorder(nd.left, yield) {
		return false
	}

	if !yield(Entry{Low: nd.low, High: nd.high, Member: nd.member}) {
		return false
	}

	return t.inorder(nd.right, yield)
}

// Overlap lazily yields every interval intersecting [low, high], in
// ascending key order. Subtrees whose maxHigh falls below the query's low
// bound are pruned; a node whose own low exceeds the query's high bound
// cannot have overlapping right descendants.
func (t *Tree) Overlap(low, high float64) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		t.overlap(t.root, low, high, yield)
	}
}

func (t *Tree) overlap(nodeIdx uint32, low, high float64, yield func(Entry) bool) bool {
	if nodeIdx == nilNode {
		return true
	}

	alloc := t.storage()
	nd := alloc[nodeIdx]

	if nd.maxHigh < low {
		return true
	}

	if !t.overlap(nd.left, low, high, yield) {
		return false
	}

	if nd.low <= high && nd.high >= low {
		if !yield(Entry{Low: nd.low, High: nd.high, Member: nd.member}) {
			return false
		}
	}

	if nd.low > high {
		return true
	}

	return t.overlap(nd.right, low, high, yield)
}

// Erase frees every node exactly once and resets the tree to empty.
func (t *Tree) Erase() {
	t.allocator.Reset()
	t.root = nilNode
	t.count = 0
}
