package btree

// searchRecord returns the index of key within this node, and whether
// it was found, via plain binary search (no locking: callers hold
// whatever lock the operation requires, or are inside an optimistic
// read window).
func (n *Node[K, V]) searchRecord(key K) (idx int, found bool) {
	i := n.lowerBound(key)
	if i < len(n.keys) && n.cfg.cmp(n.keys[i], key) == 0 {
		return i, true
	}
	return i, false
}

// searchChildOptimistic returns the child pointer for the greatest
// routing key <= key, validated against concurrent modification.
// ok is false if the caller must restart the descent from the root.
func (n *Node[K, V]) searchChildOptimistic(key K) (child *Node[K, V], ok bool) {
	_, valid := n.lock.optimisticRead(func() {
		i := n.lowerBound(key)
		if i == len(n.keys) || n.cfg.cmp(n.keys[i], key) > 0 {
			i--
		}
		if i < 0 {
			i = 0
		}
		if i < len(n.children) {
			child = n.children[i]
		}
	})
	if !valid || child == nil {
		return nil, false
	}
	return child, true
}

// checkKeyRange walks the sibling chain (re-reading optimistically)
// until it lands on a node whose range could contain key: if key >=
// high key, follow the right sibling; if the node is flagged deleted,
// report rootRetry.
func checkKeyRangeOptimistic[K any, V any](n *Node[K, V], key K) (target *Node[K, V], rc nodeRC) {
	cur := n
	for {
		if cur.lock.IsDeleted() {
			return nil, rcRootRetry
		}
		if !cur.exceedsHighKey(key) {
			return cur, rcSuccess
		}
		next := cur.rightSibling()
		if next == nil {
			return nil, rcRootRetry
		}
		cur = next
	}
}

// checkKeyRangeLocked is the locked counterpart used once a node has
// been acquired under S, X, or SIX: it releases the stale node and
// lock-couples to the right sibling until the range recheck passes.
// unlock is called on every node released along the way except the
// one finally returned (the caller is responsible for unlocking that
// one itself).
func checkKeyRangeLocked[K any, V any](n *Node[K, V], key K, unlock func(*Node[K, V]), relock func(*Node[K, V])) (target *Node[K, V], rc nodeRC) {
	cur := n
	for {
		if cur.lock.IsDeleted() {
			unlock(cur)
			return nil, rcRootRetry
		}
		if !cur.exceedsHighKey(key) {
			return cur, rcSuccess
		}
		next := cur.rightSibling()
		unlock(cur)
		if next == nil {
			return nil, rcRootRetry
		}
		relock(next)
		cur = next
	}
}

// read performs an optimistic point lookup. rc is rcSuccess with the
// payload, or rcKeyNotExist.
func (n *Node[K, V]) read(key K) (payload V, version uint64, rc nodeRC) {
	for {
		var found bool
		var idx int
		w, ok := n.lock.optimisticRead(func() {
			idx, found = n.searchRecord(key)
			if found {
				if n.tomb[idx] {
					found = false
					return
				}
				payload = n.vals[idx]
			}
		})
		if !ok {
			continue // version changed mid-read or X held; retry this node
		}
		if !found {
			return payload, versionOf(w), rcKeyNotExist
		}
		return payload, versionOf(w), rcSuccess
	}
}
