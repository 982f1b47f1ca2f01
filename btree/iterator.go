package btree

import "github.com/daemonlabs/osbtree/internal/epoch"

// RecordIterator walks a forward range in key order. It holds a
// shared lock on exactly one leaf at a time, coupling to the next
// leaf (locking it under S before releasing the current one) rather
// than re-validating optimistically, so a concurrent split or merge
// can never observe the scan mid-step and a writer blocked on the
// held S simply backs off instead of the scan spinning against it.
// There is no backward-scan variant.
type RecordIterator[K, V any] struct {
	t          *BTree[K, V]
	guard      *epoch.Guard
	leaf       *Node[K, V] // held under S while non-nil
	idx        int
	beginBound *ScanBound[K]
	end        *ScanBound[K]
	closed     bool
}

// Scan begins a range iteration. begin == nil starts at the leftmost
// record in the tree; end == nil scans to the rightmost record.
// The returned iterator must eventually be closed, directly or by
// exhausting it via Next.
func (t *BTree[K, V]) Scan(begin, end *ScanBound[K]) *RecordIterator[K, V] {
	return &RecordIterator[K, V]{
		t:          t,
		guard:      t.gc.Enter(),
		beginBound: begin,
		end:        end,
	}
}

// descendLeftmostOptimistic walks from the root to the leftmost leaf
// without acquiring any lock. ok is false if a concurrent SMO
// invalidated the walk.
func (t *BTree[K, V]) descendLeftmostOptimistic() (leaf *Node[K, V], ok bool) {
	node := t.root.Load()
	for node.IsInner() {
		w0 := node.lock.snapshot()
		if stateOf(w0) == stateExcl || len(node.children) == 0 {
			return nil, false
		}
		child := node.children[0]
		w1 := node.lock.snapshot()
		if w0 != w1 {
			return nil, false
		}
		node = child
	}
	return node, true
}

// descendLeftmostLocked walks from the root to the leftmost leaf and
// returns it locked under S.
func (t *BTree[K, V]) descendLeftmostLocked() *Node[K, V] {
	for {
		leaf, ok := t.descendLeftmostOptimistic()
		if !ok {
			continue
		}
		leaf.lock.LockS()
		if leaf.lock.IsDeleted() {
			leaf.lock.UnlockS()
			continue
		}
		return leaf
	}
}

// position locks the iterator's starting leaf under S and sets its
// starting slot index within it.
func (it *RecordIterator[K, V]) position() {
	var leaf *Node[K, V]
	if it.beginBound == nil {
		leaf = it.t.descendLeftmostLocked()
	} else {
		leaf = it.t.descendLockedLeaf(it.beginBound.Key, stateShared)
	}
	idx := 0
	if it.beginBound != nil {
		i, found := leaf.searchRecord(it.beginBound.Key)
		if found && !it.beginBound.Inclusive {
			i++
		}
		idx = i
	}
	it.leaf, it.idx = leaf, idx
}

// Next advances the iterator. ok is false once the scan has exhausted
// its range, at which point the iterator has already closed itself.
func (it *RecordIterator[K, V]) Next() (key K, payload V, ok bool) {
	if it.closed {
		return key, payload, false
	}
	if it.leaf == nil {
		it.position()
	}
	for {
		if it.idx >= len(it.leaf.keys) {
			right := it.leaf.rightSibling()
			if right == nil {
				it.Close()
				return key, payload, false
			}
			right.lock.LockS()
			it.leaf.lock.UnlockS()
			it.leaf, it.idx = right, 0
			continue
		}

		k := it.leaf.keys[it.idx]
		v := it.leaf.vals[it.idx]
		dead := it.leaf.tomb[it.idx]

		if it.end != nil {
			cmp := it.t.cfg.cmp(k, it.end.Key)
			if cmp > 0 || (cmp == 0 && !it.end.Inclusive) {
				it.Close()
				return key, payload, false
			}
		}

		it.idx++
		if dead {
			continue
		}
		return k, v, true
	}
}

// Close releases the iterator's held leaf lock, if any, and its GC
// guard. Safe to call multiple times and safe to skip once Next has
// returned ok == false.
func (it *RecordIterator[K, V]) Close() {
	if it.closed {
		return
	}
	it.closed = true
	if it.leaf != nil {
		it.leaf.lock.UnlockS()
		it.leaf = nil
	}
	it.guard.Leave()
}
