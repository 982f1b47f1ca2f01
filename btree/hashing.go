//go:build osbtreedebug

package btree

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// checksumRecords computes a debug-only, order-independent fingerprint
// of n's live records: an XOR of per-record hashes, so a split's two
// halves, or a merge's two inputs, can be checked against the original
// working set regardless of how the records got reordered along the
// way. It is never part of the node's durable state and costs nothing
// outside a debug build.
func (n *Node[K, V]) checksumRecords() uint64 {
	var sum uint64
	for i, k := range n.keys {
		if n.IsLeaf() {
			if n.tomb[i] {
				continue
			}
			sum ^= recordFingerprint(k, n.vals[i])
		} else {
			sum ^= recordFingerprint(k, i)
		}
	}
	return sum
}

func recordFingerprint[K, V any](k K, v V) uint64 {
	var h xxhash.Digest
	h.Reset()
	h.WriteString(fmt.Sprintf("%v", k))
	h.WriteString(fmt.Sprintf("%v", v))
	return h.Sum64()
}

// assertSplitPreservesRecords panics if splitting leaf n into (n, r)
// lost or duplicated a record relative to before, the fingerprint
// captured immediately prior to the split. Inner splits are exempt:
// the promoted separator key is legitimately dropped from both halves,
// so an inner node's checksum never balances across a split and isn't
// a sign of corruption.
func assertSplitPreservesRecords[K, V any](before uint64, n, r *Node[K, V]) {
	if !n.IsLeaf() {
		return
	}
	if after := n.checksumRecords() ^ r.checksumRecords(); after != before {
		panic("btree: split corrupted the record set")
	}
}

// assertMergePreservesRecords panics if absorbing beforeRight's records
// into n dropped or duplicated anything relative to the two sides'
// combined fingerprint taken just before the merge. Inner merges are
// exempt for the same reason noted in assertSplitPreservesRecords: the
// separator key reappears as an ordinary key in the merged node, not a
// record carried over unchanged.
func assertMergePreservesRecords[K, V any](beforeLeft, beforeRight uint64, merged *Node[K, V]) {
	if !merged.IsLeaf() {
		return
	}
	if after := merged.checksumRecords(); after != beforeLeft^beforeRight {
		panic("btree: merge corrupted the record set")
	}
}

// assertRecordLayoutIntact panics if a leaf's parallel slot slices have
// drifted out of lockstep, the structural invariant every
// insert/delete/compact must preserve.
func assertRecordLayoutIntact[K, V any](n *Node[K, V]) {
	if !n.IsLeaf() {
		return
	}
	if len(n.keys) != len(n.vals) || len(n.keys) != len(n.tomb) {
		panic("btree: leaf slot slices drifted out of lockstep")
	}
}
