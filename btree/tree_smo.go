package btree

// splitAndInstall performs the half-split of node (which the caller
// must already hold X on, and which must have just returned
// rcNeedSplit) and then walks up installing the new separator,
// cascading into further splits as needed. It returns the packed word
// node's own unlock-with-bump produced, so a caller that needs to
// report the version the split occurred at does not have to re-read
// it later and risk a further mutation racing ahead of it.
func (t *BTree[K, V]) splitAndInstall(node *Node[K, V]) uint64 {
	leftKey := node.keys[0]
	var right *Node[K, V]
	if node.IsLeaf() {
		right = t.allocLeaf()
	} else {
		right = t.allocInner()
	}
	sepKey := node.splitInto(right)
	pre := node.lock.snapshot()
	node.lock.UnlockX(true)
	w := withBumpedVersion(withState(pre, stateUnlocked))
	t.completeSplit(node, right, sepKey, leftKey)
	return w
}

// tryRootSplit promotes a brand new two-child inner root over node and
// right, but only if node is still the current root (another actor
// may have already done this). Returns false if it was not.
func (t *BTree[K, V]) tryRootSplit(node, right *Node[K, V], sepKey K) bool {
	t.growMu.Lock()
	defer t.growMu.Unlock()
	if t.root.Load() != node {
		return false
	}
	newRoot := t.allocInner()
	newRoot.keys = append(newRoot.keys, sepKey)
	newRoot.children = append(newRoot.children, node, right)
	t.root.Store(newRoot)
	return true
}

// completeSplit installs (node, right, sepKey) into node's parent,
// re-descending to find it since optimistic descent holds no lock
// stack. If node has no parent it is the root, and a new root is
// grown instead. A parent that itself needs to split is split and
// installed recursively before the original pair is retried.
func (t *BTree[K, V]) completeSplit(node, right *Node[K, V], sepKey, leftKey K) {
	for {
		if t.root.Load() == node && t.tryRootSplit(node, right, sepKey) {
			return
		}
		parent := t.findParent(leftKey, node, stateExcl)
		if parent == nil {
			continue
		}
		rc := parent.insertChild(node, right, sepKey)
		switch rc {
		case rcCompleted:
			parent.lock.UnlockX(true)
			return
		case rcNeedSplit:
			pLeftKey := parent.keys[0]
			pRight := t.allocInner()
			pSep := parent.splitInto(pRight)
			parent.lock.UnlockX(true)
			t.completeSplit(parent, pRight, pSep, pLeftKey)
		case rcNeedRetry:
			parent.lock.UnlockX(false)
		}
	}
}

// tryMerge is invoked after a leaf or inner delete returns
// rcNeedMerge. It probes node's parent under SIX for a mergeable
// sibling, upgrades to X on both the parent and the two children to
// commit the merge, and cascades into the parent if removing the
// routing entry underflowed it too.
func (t *BTree[K, V]) tryMerge(node *Node[K, V], key K) {
	for {
		parent := t.findParent(key, node, stateSIX)
		if parent == nil {
			return // node is the root; roots are exempt from minimum occupancy.
		}
		idx := parent.childIndex(node)
		if idx < 0 {
			parent.lock.UnlockSIX(false)
			continue
		}

		var left, right *Node[K, V]
		var leftIdx int
		if idx > 0 {
			if _, sidx, ok := parent.GetMergeableSiblingNode(idx - 1); ok && sidx == idx {
				left, right, leftIdx = parent.children[idx-1], node, idx-1
			}
		}
		if left == nil {
			if sib, _, ok := parent.GetMergeableSiblingNode(idx); ok {
				left, right, leftIdx = node, sib, idx
			}
		}
		if left == nil {
			parent.lock.UnlockSIX(false)
			return
		}

		left.lock.LockX()
		right.lock.LockX()
		parent.lock.UpgradeSIXToX()

		sepKey := parent.keys[leftIdx]
		left.mergeWith(right)
		right.lock.UnlockX(true)
		t.retire(right)

		rc := parent.deleteChild(sepKey)
		left.lock.UnlockX(true)

		switch rc {
		case rcCompleted:
			soleChild := len(parent.children) == 1
			parent.lock.UnlockX(true)
			if soleChild && parent == t.root.Load() {
				t.tryShrinkTree()
			}
			return
		case rcNeedMerge:
			parentUnderflowKey := parent.keys[0]
			parent.lock.UnlockX(true)
			if parent == t.root.Load() {
				t.tryShrinkTree()
				return
			}
			t.tryMerge(parent, parentUnderflowKey)
			return
		default: // rcAbortMerge
			parent.lock.UnlockX(false)
			return
		}
	}
}

// tryShrinkTree collapses a single-child inner root down to its only
// child, under growMu since it replaces the root pointer.
func (t *BTree[K, V]) tryShrinkTree() {
	t.growMu.Lock()
	defer t.growMu.Unlock()
	root := t.root.Load()
	if !root.IsInner() {
		return
	}
	root.lock.LockX()
	newRoot := root.RemoveRoot()
	if newRoot == root {
		root.lock.UnlockX(false)
		return
	}
	t.root.Store(newRoot)
	root.lock.MarkDeleted()
	root.lock.UnlockX(true)
	t.retire(root)
}
