package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIteratorSkipsTombstonedRecords(t *testing.T) {
	tr := newTestTree(t)
	for i := 0; i < 30; i++ {
		tr.Write(i, i)
	}
	for i := 0; i < 30; i += 3 {
		require.NoError(t, tr.Delete(i))
	}

	it := tr.Scan(nil, nil)
	defer it.Close()
	for {
		k, _, ok := it.Next()
		if !ok {
			break
		}
		assert.NotZero(t, k%3, "tombstoned key %d leaked through the scan", k)
	}
}

func TestIteratorOnEmptyTreeYieldsNothing(t *testing.T) {
	tr := newTestTree(t)
	it := tr.Scan(nil, nil)
	_, _, ok := it.Next()
	assert.False(t, ok)
}

func TestIteratorCloseIsIdempotent(t *testing.T) {
	tr := newTestTree(t)
	tr.Write(1, 1)
	it := tr.Scan(nil, nil)
	it.Close()
	it.Close() // must not panic or double-release the epoch guard
}

func TestIteratorExhaustionClosesAutomatically(t *testing.T) {
	tr := newTestTree(t)
	tr.Write(1, 1)
	it := tr.Scan(nil, nil)
	_, _, ok := it.Next()
	assert.True(t, ok)
	_, _, ok = it.Next()
	assert.False(t, ok)
	// A second explicit Close must be a harmless no-op.
	it.Close()
}

func TestIteratorCrossesLeafBoundaries(t *testing.T) {
	tr := newTestTree(t)
	const n = 300 // far more than one leaf's worth at the test's small page size
	for i := 0; i < n; i++ {
		tr.Write(i, i*i)
	}
	it := tr.Scan(nil, nil)
	defer it.Close()
	seen := 0
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		assert.Equal(t, k*k, v)
		seen++
	}
	assert.Equal(t, n, seen)
}
