package btree

// Read performs a point lookup. It returns ErrKeyNotExist if key is
// absent.
func (t *BTree[K, V]) Read(key K) (V, error) {
	var zero V
	for {
		guard := t.gc.Enter()
		leaf, ok := t.descendOptimistic(key)
		if !ok {
			guard.Leave()
			continue
		}
		payload, _, rc := leaf.read(key)
		guard.Leave()
		if rc == rcKeyNotExist {
			return zero, ErrKeyNotExist
		}
		return payload, nil
	}
}

// Insert adds (key, payload) only if key is not already present. It
// returns ErrKeyExists otherwise. The returned VersionInfo reports the
// leaf version observed at commit, and, when inserting forced a split
// along the way, the version immediately prior to that split.
func (t *BTree[K, V]) Insert(key K, payload V) (VersionInfo, error) {
	guard := t.gc.Enter()
	defer guard.Leave()

	var info VersionInfo
	for {
		leaf := t.descendLockedLeaf(key, stateExcl)
		rc, existing := leaf.insertRecord(key, payload)
		switch rc {
		case rcSuccess:
			pre := leaf.lock.snapshot()
			leaf.lock.UnlockX(true)
			info.Current = versionOf(pre) + 1
			return info, nil
		case rcKeyExists:
			leaf.lock.UnlockX(false)
			_ = existing
			return VersionInfo{}, ErrKeyExists
		case rcNeedSplit:
			w := t.splitAndInstall(leaf)
			info.CausedBySplit = true
			info.PriorToSplit = GetPreviousVersion(w)
			// fall through and retry the insert into whichever half now
			// owns key.
		}
	}
}

// Write is a blind upsert: key is inserted if absent, or overwritten
// if present.
func (t *BTree[K, V]) Write(key K, payload V) {
	guard := t.gc.Enter()
	defer guard.Leave()

	for {
		leaf := t.descendLockedLeaf(key, stateExcl)
		rc := leaf.writeRecord(key, payload)
		if rc == rcNeedSplit {
			t.splitAndInstall(leaf)
			continue
		}
		leaf.lock.UnlockX(true)
		return
	}
}

// Update overwrites an existing key's payload, returning
// ErrKeyNotExist if key is absent.
func (t *BTree[K, V]) Update(key K, payload V) error {
	guard := t.gc.Enter()
	defer guard.Leave()

	leaf := t.descendLockedLeaf(key, stateExcl)
	rc := leaf.updateRecord(key, payload)
	leaf.lock.UnlockX(rc == rcSuccess)
	if rc == rcKeyNotExist {
		return ErrKeyNotExist
	}
	return nil
}

// Delete removes key, returning ErrKeyNotExist if it was absent. A
// delete that drops a node below the minimum occupancy threshold
// triggers a merge attempt with a sibling.
func (t *BTree[K, V]) Delete(key K) error {
	guard := t.gc.Enter()
	defer guard.Leave()

	leaf := t.descendLockedLeaf(key, stateExcl)
	rc := leaf.deleteRecord(key)
	switch rc {
	case rcKeyNotExist:
		leaf.lock.UnlockX(false)
		return ErrKeyNotExist
	case rcNeedMerge:
		leaf.lock.UnlockX(true)
		if leaf == t.root.Load() {
			return nil
		}
		t.tryMerge(leaf, key)
		return nil
	default:
		leaf.lock.UnlockX(true)
		return nil
	}
}
