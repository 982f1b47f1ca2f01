package btree

import (
	"sort"
	"sync/atomic"
)

type nodeKind uint8

const (
	leafKind nodeKind = iota
	innerKind
)

// Node is a self-describing, fixed-capacity page holding either leaf
// data records or inner routing records: a sorted key slice, a
// per-kind payload slice, a next-sibling pointer, and a
// version-and-lock word for optimistic concurrency.
type Node[K any, V any] struct {
	cfg  *config[K, V]
	kind nodeKind
	lock lockWord

	hasHighKey bool // false means "+∞", i.e. the rightmost node at this level
	highKey    K

	right atomic.Pointer[Node[K, V]]

	keys []K

	// leaf-only
	vals      []V
	tomb      []bool
	liveCount int

	// inner-only
	children []*Node[K, V]
}

func newLeaf[K any, V any](cfg *config[K, V]) *Node[K, V] {
	cap := cfg.leafCap
	if cfg.layout == VarLen {
		cap = 8
	}
	n := &Node[K, V]{
		cfg:  cfg,
		kind: leafKind,
		keys: make([]K, 0, cap),
		vals: make([]V, 0, cap),
		tomb: make([]bool, 0, cap),
	}
	n.lock.backoffDur = cfg.retryBackoff
	return n
}

func newInner[K any, V any](cfg *config[K, V]) *Node[K, V] {
	cap := cfg.innerCap
	if cfg.layout == VarLen {
		cap = 8
	}
	n := &Node[K, V]{
		cfg:      cfg,
		kind:     innerKind,
		keys:     make([]K, 0, cap),
		children: make([]*Node[K, V], 0, cap+1),
	}
	n.lock.backoffDur = cfg.retryBackoff
	return n
}

func (n *Node[K, V]) IsInner() bool { return n.kind == innerKind }
func (n *Node[K, V]) IsLeaf() bool  { return n.kind == leafKind }

// RecordCount returns the number of routing/data slots currently
// occupied, including tombstoned leaf records.
func (n *Node[K, V]) RecordCount() int { return len(n.keys) }

// LiveCount returns the number of non-deleted leaf records.
func (n *Node[K, V]) LiveCount() int {
	if n.IsInner() {
		return len(n.keys)
	}
	return n.liveCount
}

// GetHighKey returns the node's high key and whether it is finite.
func (n *Node[K, V]) GetHighKey() (K, bool) { return n.highKey, n.hasHighKey }

func (n *Node[K, V]) setHighKey(k K) {
	n.highKey = k
	n.hasHighKey = true
}

func (n *Node[K, V]) rightSibling() *Node[K, V] { return n.right.Load() }

// keyLess reports cmp(a,b) < 0.
func (n *Node[K, V]) keyLess(a, b K) bool { return n.cfg.cmp(a, b) < 0 }

// lowerBound returns the index of the first key >= target.
func (n *Node[K, V]) lowerBound(target K) int {
	return sort.Search(len(n.keys), func(i int) bool {
		return n.cfg.cmp(n.keys[i], target) >= 0
	})
}

// exceedsHighKey reports whether key falls at or beyond this node's
// high key, i.e. whether the caller must walk right during the
// key-range recheck.
func (n *Node[K, V]) exceedsHighKey(key K) bool {
	if !n.hasHighKey {
		return false
	}
	return n.cfg.cmp(key, n.highKey) >= 0
}

// recordSize approximates the on-page cost of storing key (used by
// VarLen capacity accounting).
func (n *Node[K, V]) recordSize(key K) int {
	if n.cfg.layout == FixedLen {
		return n.cfg.fixedKeySize + n.cfg.payloadLen
	}
	return n.cfg.keyLen(key) + n.cfg.payloadLen + recordMetaOverhead
}

// recordMetaOverhead is the per-record slot-metadata cost in the
// VarLen layout (key offset + key length + payload offset), mirrored
// from the 2-byte length prefixes node_codec.go uses per field.
const recordMetaOverhead = 6

// usedBytes sums the accounted size of every live slot, for VarLen
// free-space bookkeeping.
func (n *Node[K, V]) usedBytes() int {
	total := 0
	for i, k := range n.keys {
		if n.IsLeaf() && n.tomb[i] {
			continue
		}
		total += n.recordSize(k)
	}
	return total
}

// hasRoomFor reports whether one more record with the given key could
// still be inserted without a split.
func (n *Node[K, V]) hasRoomFor(key K) bool {
	if n.cfg.layout == FixedLen {
		cap := n.cfg.leafCap
		if n.IsInner() {
			cap = n.cfg.innerCap
		}
		return len(n.keys) < cap
	}
	return n.usedBytes()+n.recordSize(key) <= n.cfg.heapBudget
}

// GetNodeUsage reports the live bytes this node currently occupies,
// for CollectStatistics.
func (n *Node[K, V]) GetNodeUsage() int64 {
	if n.cfg.layout == FixedLen {
		cap := n.cfg.fixedKeySize + n.cfg.payloadLen
		return int64(n.LiveCount() * cap)
	}
	return int64(n.usedBytes())
}

// reservedBytes reports the virtual page-sized footprint of this node.
func (n *Node[K, V]) reservedBytes() int64 { return int64(n.cfg.pageSize) }
