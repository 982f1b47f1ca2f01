package btree

import (
	"sync"
	"sync/atomic"

	"github.com/daemonlabs/osbtree/internal/epoch"
	"github.com/dgraph-io/ristretto/v2"
)

// BTree is a concurrent, in-memory B+tree index using optimistic
// single-layer locking. The zero value is not usable; construct with
// New.
type BTree[K, V any] struct {
	cfg *config[K, V]

	root atomic.Pointer[Node[K, V]]

	// growMu serializes the rare structural changes to the root pointer
	// itself (a new root from a root split, or a shorter root from
	// RemoveRoot); everything below the root is coordinated purely by
	// per-node lock words.
	growMu sync.Mutex

	gc         *epoch.Manager
	pool       *epoch.Pool
	statsCache *ristretto.Cache[uint8, []LevelStats]
}

// New constructs an empty tree. Every Insert/Write/Update/Delete and
// Read call must be wrapped by a GC guard internally, which New sets
// up via an internal/epoch.Manager.
func New[K, V any](opts Options[K, V]) (*BTree[K, V], error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	t := &BTree[K, V]{cfg: cfg}
	t.gc = epoch.NewManager(cfg.gcIntervalMicro, cfg.gcThreadNum, t.releasePage)
	pool, err := epoch.NewPool(0)
	if err != nil {
		return nil, err
	}
	t.pool = pool
	statsCache, err := ristretto.NewCache(&ristretto.Config[uint8, []LevelStats]{
		NumCounters: 16,
		MaxCost:     1,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	t.statsCache = statsCache
	t.root.Store(newLeaf(cfg))
	return t, nil
}

// Close stops the background reclaimer and frees everything still
// retired but not yet safe to free at the time of the call.
func (t *BTree[K, V]) Close() {
	t.retireSubtree(t.root.Load())
	t.gc.Stop()
	t.gc.Drain()
	t.pool.Close()
	t.statsCache.Close()
}

// releasePage is the epoch.Manager's onRelease callback: it offers the
// retired node back to the reuse pool instead of dropping it for the
// Go garbage collector to find later.
func (t *BTree[K, V]) releasePage(p *epoch.Page) {
	if _, ok := p.Handle.(*Node[K, V]); ok {
		t.pool.Offer(p)
	}
}

func (t *BTree[K, V]) retire(n *Node[K, V]) {
	t.gc.Retire(&epoch.Page{Handle: n})
}

func (t *BTree[K, V]) allocLeaf() *Node[K, V] {
	if pg := t.pool.TryAcquire(); pg != nil {
		if n, ok := pg.Handle.(*Node[K, V]); ok {
			resetNode(n, t.cfg, leafKind)
			return n
		}
	}
	return newLeaf(t.cfg)
}

func (t *BTree[K, V]) allocInner() *Node[K, V] {
	if pg := t.pool.TryAcquire(); pg != nil {
		if n, ok := pg.Handle.(*Node[K, V]); ok {
			resetNode(n, t.cfg, innerKind)
			return n
		}
	}
	return newInner(t.cfg)
}

// resetNode clears a reclaimed node so it can be reused as a fresh
// page of the requested kind, avoiding a stale sibling pointer or
// lock-word state leaking into its new life.
func resetNode[K, V any](n *Node[K, V], cfg *config[K, V], kind nodeKind) {
	var zeroK K
	n.cfg = cfg
	n.kind = kind
	n.lock = lockWord{backoffDur: cfg.retryBackoff}
	n.hasHighKey = false
	n.highKey = zeroK
	n.right.Store(nil)
	if kind == leafKind {
		n.keys = n.keys[:0]
		n.vals = n.vals[:0]
		n.tomb = n.tomb[:0]
		n.liveCount = 0
		n.children = nil
	} else {
		n.keys = n.keys[:0]
		n.children = n.children[:0]
		n.vals = nil
		n.tomb = nil
		n.liveCount = 0
	}
}

// descendOptimistic walks from the root to the leaf whose range
// contains key without acquiring any lock, validating each hop. ok is
// false if a concurrent SMO invalidated the walk and the caller must
// restart from the root.
func (t *BTree[K, V]) descendOptimistic(key K) (leaf *Node[K, V], ok bool) {
	node := t.root.Load()
	for node.IsInner() {
		child, valid := node.searchChildOptimistic(key)
		if !valid {
			return nil, false
		}
		node = child
	}
	target, rc := checkKeyRangeOptimistic[K, V](node, key)
	if rc != rcSuccess {
		return nil, false
	}
	return target, true
}

// descendLockedLeaf walks from the root to the leaf whose range
// contains key and returns it locked under the requested mode, having
// already performed the key-range recheck against concurrent splits.
func (t *BTree[K, V]) descendLockedLeaf(key K, mode lockState) *Node[K, V] {
	for {
		leaf, ok := t.descendOptimistic(key)
		if !ok {
			continue
		}
		switch mode {
		case stateExcl:
			leaf.lock.LockX()
		case stateSIX:
			leaf.lock.LockSIX()
		default:
			leaf.lock.LockS()
		}
		target, rc := checkKeyRangeLocked[K, V](leaf, key, func(n *Node[K, V]) {
			unlockAs(n, mode, false)
		}, func(n *Node[K, V]) {
			lockAs(n, mode)
		})
		if rc != rcSuccess {
			continue
		}
		return target
	}
}

func lockAs[K, V any](n *Node[K, V], mode lockState) {
	switch mode {
	case stateExcl:
		n.lock.LockX()
	case stateSIX:
		n.lock.LockSIX()
	default:
		n.lock.LockS()
	}
}

func unlockAs[K, V any](n *Node[K, V], mode lockState, bumpVersion bool) {
	switch mode {
	case stateExcl:
		n.lock.UnlockX(bumpVersion)
	case stateSIX:
		n.lock.UnlockSIX(bumpVersion)
	default:
		n.lock.UnlockS()
	}
}

// findParent descends from the root down to the inner node one level
// above child's level, locked under mode, re-finding child within it
// by key. It returns nil if child turned out to be the root (no
// parent exists) while pinning the root slot itself is unnecessary
// since growMu already serializes root changes.
func (t *BTree[K, V]) findParent(key K, child *Node[K, V], mode lockState) *Node[K, V] {
	for {
		node := t.root.Load()
		if node == child {
			return nil
		}
		var parent *Node[K, V]
		for node.IsInner() {
			next, valid := node.searchChildOptimistic(key)
			if !valid {
				parent = nil
				break
			}
			if next == child {
				parent = node
				break
			}
			node = next
		}
		if parent == nil {
			continue
		}
		lockAs(parent, mode)
		target, rc := checkKeyRangeLocked[K, V](parent, key, func(n *Node[K, V]) {
			unlockAs(n, mode, false)
		}, func(n *Node[K, V]) {
			lockAs(n, mode)
		})
		if rc != rcSuccess {
			continue
		}
		if target.childIndex(child) < 0 {
			unlockAs(target, mode, false)
			continue
		}
		return target
	}
}
