package btree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallTreeOptions forces a tiny per-node capacity so a few dozen
// inserts already exercise splits and merges.
func smallTreeOptions() Options[int, int] {
	return Options[int, int]{
		Comparator:   intCmp,
		Layout:       FixedLen,
		PageSize:     128,
		FixedKeySize: 8,
		PayloadLen:   8,
	}
}

func newTestTree(t *testing.T) *BTree[int, int] {
	t.Helper()
	tr, err := New(smallTreeOptions())
	require.NoError(t, err)
	t.Cleanup(tr.Close)
	return tr
}

func TestInsertReadRoundTrip(t *testing.T) {
	tr := newTestTree(t)
	for i := 0; i < 200; i++ {
		_, err := tr.Insert(i, i*2)
		require.NoError(t, err)
	}
	for i := 0; i < 200; i++ {
		v, err := tr.Read(i)
		require.NoError(t, err)
		assert.Equal(t, i*2, v)
	}
	_, err := tr.Read(999)
	assert.ErrorIs(t, err, ErrKeyNotExist)
}

func TestInsertRejectsDuplicate(t *testing.T) {
	tr := newTestTree(t)
	_, err := tr.Insert(1, 1)
	require.NoError(t, err)
	_, err = tr.Insert(1, 2)
	assert.ErrorIs(t, err, ErrKeyExists)

	v, err := tr.Read(1)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "rejected insert must not clobber the existing payload")
}

func TestWriteIsIdempotentUpsert(t *testing.T) {
	tr := newTestTree(t)
	tr.Write(7, 1)
	tr.Write(7, 2)
	tr.Write(7, 2)
	v, err := tr.Read(7)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestUpdateRequiresExistingKey(t *testing.T) {
	tr := newTestTree(t)
	assert.ErrorIs(t, tr.Update(1, 1), ErrKeyNotExist)
	tr.Write(1, 1)
	require.NoError(t, tr.Update(1, 9))
	v, err := tr.Read(1)
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestDeleteThenReadMisses(t *testing.T) {
	tr := newTestTree(t)
	for i := 0; i < 50; i++ {
		tr.Write(i, i)
	}
	for i := 0; i < 50; i += 2 {
		require.NoError(t, tr.Delete(i))
	}
	for i := 0; i < 50; i++ {
		_, err := tr.Read(i)
		if i%2 == 0 {
			assert.ErrorIs(t, err, ErrKeyNotExist)
		} else {
			assert.NoError(t, err)
		}
	}
	assert.ErrorIs(t, tr.Delete(0), ErrKeyNotExist)
}

func TestInsertReportsVersionInfo(t *testing.T) {
	tr := newTestTree(t)

	info, err := tr.Insert(1, 1)
	require.NoError(t, err)
	assert.False(t, info.CausedBySplit)
	firstVersion := info.Current

	info, err = tr.Insert(2, 2)
	require.NoError(t, err)
	assert.False(t, info.CausedBySplit)
	assert.Greater(t, info.Current, firstVersion, "each committed insert must report a strictly increasing version")

	var sawSplit bool
	for i := 3; i < 200 && !sawSplit; i++ {
		info, err = tr.Insert(i, i)
		require.NoError(t, err)
		sawSplit = info.CausedBySplit
	}
	assert.True(t, sawSplit, "200 inserts at this tree's tiny page size must force at least one split")
}

func TestGetPreviousVersionUndoesABump(t *testing.T) {
	var w uint64
	for v := uint64(0); v < 5; v++ {
		bumped := withBumpedVersion(w)
		assert.Equal(t, v, GetPreviousVersion(bumped))
		w = bumped
	}
}

func TestManyInsertsForceSplitsAndStayOrdered(t *testing.T) {
	tr := newTestTree(t)
	const n = 2000
	for i := 0; i < n; i++ {
		_, err := tr.Insert(i, i)
		require.NoError(t, err)
	}

	stats := tr.CollectStatistics()
	require.NotEmpty(t, stats)
	assert.Greater(t, len(stats), 1, "2000 inserts at a 4-record leaf cap must produce more than one level")

	it := tr.Scan(nil, nil)
	defer it.Close()
	prev := -1
	count := 0
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		assert.Greater(t, k, prev, "scan must be strictly ascending")
		assert.Equal(t, k, v)
		prev = k
		count++
	}
	assert.Equal(t, n, count)
}

func TestDeletesForceMergesAndTreeShrinks(t *testing.T) {
	tr := newTestTree(t)
	const n = 500
	for i := 0; i < n; i++ {
		_, err := tr.Insert(i, i)
		require.NoError(t, err)
	}
	before := len(tr.CollectStatistics())

	for i := 0; i < n; i++ {
		if i%3 != 0 {
			require.NoError(t, tr.Delete(i))
		}
	}
	for i := 0; i < n; i++ {
		v, err := tr.Read(i)
		if i%3 == 0 {
			require.NoError(t, err)
			assert.Equal(t, i, v)
		} else {
			assert.ErrorIs(t, err, ErrKeyNotExist)
		}
	}

	after := len(tr.CollectStatistics())
	assert.LessOrEqual(t, after, before, "deleting most of the tree should not grow its height")
}

func TestScanRespectsBeginAndEndBounds(t *testing.T) {
	tr := newTestTree(t)
	for i := 0; i < 100; i++ {
		tr.Write(i, i)
	}

	it := tr.Scan(&ScanBound[int]{Key: 10, Inclusive: false}, &ScanBound[int]{Key: 20, Inclusive: true})
	defer it.Close()
	var got []int
	for {
		k, _, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, k)
	}
	want := make([]int, 0, 10)
	for k := 11; k <= 20; k++ {
		want = append(want, k)
	}
	assert.Equal(t, want, got)
}

func TestConcurrentMixedOperations(t *testing.T) {
	tr := newTestTree(t)
	const n = 400
	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < n; i++ {
				key := (w * n) + i
				tr.Write(key, key)
				if v, err := tr.Read(key); err == nil {
					assert.Equal(t, key, v)
				}
			}
		}(w)
	}
	for w := 0; w < 8; w++ {
		<-done
	}
	for w := 0; w < 8; w++ {
		for i := 0; i < n; i++ {
			key := (w * n) + i
			v, err := tr.Read(key)
			require.NoError(t, err, "key %d", key)
			assert.Equal(t, key, v)
		}
	}
}

func ExampleBTree_Insert() {
	tr, _ := New(smallTreeOptions())
	defer tr.Close()
	tr.Insert(1, 100)
	v, _ := tr.Read(1)
	fmt.Println(v)
	// Output: 100
}
