//go:build !osbtreedebug

package btree

// checksumRecords and the assert* helpers below are no-ops outside a
// debug build; see hashing.go for the real implementations used under
// the osbtreedebug build tag.

func (n *Node[K, V]) checksumRecords() uint64 { return 0 }

func assertSplitPreservesRecords[K, V any](before uint64, n, r *Node[K, V]) {}

func assertMergePreservesRecords[K, V any](beforeLeft, beforeRight uint64, merged *Node[K, V]) {}

func assertRecordLayoutIntact[K, V any](n *Node[K, V]) {}
