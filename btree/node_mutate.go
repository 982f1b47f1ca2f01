package btree

import "slices"

// The mutating methods below assume the caller already holds the lock
// mode the operation requires (X for all leaf/inner mutations here);
// none of them acquire or release locks or bump the version. That is
// the tree layer's responsibility once it knows whether the mutation
// actually committed; a node that has no room returns need-split
// without adding the record (it may first compact away tombstoned
// slots, which leaves the live record set unchanged).

// insertRecord implements Insert: a conditional insert that leaves an
// already-present key untouched.
func (n *Node[K, V]) insertRecord(key K, payload V) (rc nodeRC, existing V) {
	defer assertRecordLayoutIntact(n)
	idx, found := n.searchRecord(key)
	if found {
		if !n.tomb[idx] {
			return rcKeyExists, n.vals[idx]
		}
		// Resurrect a tombstoned slot in place; no capacity change.
		n.tomb[idx] = false
		n.vals[idx] = payload
		n.liveCount++
		return rcSuccess, existing
	}
	if !n.hasRoomFor(key) {
		n.compact()
		if !n.hasRoomFor(key) {
			return rcNeedSplit, existing
		}
		idx, _ = n.searchRecord(key)
	}
	n.keys = slices.Insert(n.keys, idx, key)
	n.vals = slices.Insert(n.vals, idx, payload)
	n.tomb = slices.Insert(n.tomb, idx, false)
	n.liveCount++
	return rcSuccess, existing
}

// insertRecordAt is used by split completion to place a key that was
// already determined to belong in this half (pos from searchRecord),
// bypassing the existence check since the caller has already ensured
// freshness.
func (n *Node[K, V]) insertRecordAt(pos int, key K, payload V) {
	defer assertRecordLayoutIntact(n)
	n.keys = slices.Insert(n.keys, pos, key)
	n.vals = slices.Insert(n.vals, pos, payload)
	n.tomb = slices.Insert(n.tomb, pos, false)
	n.liveCount++
}

// writeRecord implements Write: a blind upsert.
func (n *Node[K, V]) writeRecord(key K, payload V) nodeRC {
	idx, found := n.searchRecord(key)
	if found {
		if n.tomb[idx] {
			n.tomb[idx] = false
			n.liveCount++
		}
		n.vals[idx] = payload
		return rcSuccess
	}
	rc, _ := n.insertRecord(key, payload)
	return rc
}

// updateRecord implements Update: overwrite an existing live record.
func (n *Node[K, V]) updateRecord(key K, payload V) nodeRC {
	idx, found := n.searchRecord(key)
	if !found || n.tomb[idx] {
		return rcKeyNotExist
	}
	n.vals[idx] = payload
	return rcSuccess
}

// deleteRecord implements Delete: tombstone a live record and report
// whether the node has underflowed.
func (n *Node[K, V]) deleteRecord(key K) nodeRC {
	defer assertRecordLayoutIntact(n)
	idx, found := n.searchRecord(key)
	if !found || n.tomb[idx] {
		return rcKeyNotExist
	}
	n.tomb[idx] = true
	n.liveCount--
	if n.underflowed() {
		return rcNeedMerge
	}
	return rcSuccess
}

// compact physically removes tombstoned slots, reclaiming their
// accounted byte budget so a pending insert can retry hasRoomFor.
func (n *Node[K, V]) compact() {
	defer assertRecordLayoutIntact(n)
	if n.liveCount == len(n.keys) {
		return
	}
	keys := n.keys[:0:0]
	vals := n.vals[:0:0]
	tomb := n.tomb[:0:0]
	for i := range n.keys {
		if n.tomb[i] {
			continue
		}
		keys = append(keys, n.keys[i])
		vals = append(vals, n.vals[i])
		tomb = append(tomb, false)
	}
	n.keys, n.vals, n.tomb = keys, vals, tomb
}

// underflowed reports whether n has dropped below the merge threshold:
// half of capacity, the conventional B+tree minimum-occupancy rule.
func (n *Node[K, V]) underflowed() bool {
	if n.cfg.layout == FixedLen {
		cap := n.cfg.leafCap
		if n.IsInner() {
			cap = n.cfg.innerCap
		}
		return n.LiveCount() < cap/2
	}
	return n.usedBytes() < n.cfg.heapBudget/2
}

// --- inner-node record operations -----------------------------------

// childIndex returns the slot holding child, or -1.
func (n *Node[K, V]) childIndex(child *Node[K, V]) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// insertChild adds a new routing entry (sepKey, right) to an inner
// node, splicing right in immediately after left. Assumes the caller
// holds X on n.
func (n *Node[K, V]) insertChild(left, right *Node[K, V], sepKey K) nodeRC {
	li := n.childIndex(left)
	if li < 0 {
		return rcNeedRetry
	}
	if !n.hasRoomFor(sepKey) {
		return rcNeedSplit
	}
	n.keys = slices.Insert(n.keys, li, sepKey)
	n.children = slices.Insert(n.children, li+1, right)
	return rcCompleted
}

// deleteChild removes the routing entry whose separator equals delKey,
// folding its child out of the children slice. Assumes the caller
// holds X on n.
func (n *Node[K, V]) deleteChild(delKey K) nodeRC {
	idx, found := n.searchRecord(delKey)
	if !found {
		return rcAbortMerge
	}
	n.keys = slices.Delete(n.keys, idx, idx+1)
	n.children = slices.Delete(n.children, idx+1, idx+2)
	if n.underflowed() && len(n.keys) > 0 {
		return rcNeedMerge
	}
	return rcCompleted
}
