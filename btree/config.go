package btree

import (
	"time"

	"github.com/pkg/errors"
)

// Options parameterizes a BTree: key type, payload type, comparator,
// and layout are chosen at construction time. Go generics supply K
// and V; layout has no const-generic bool, so it is a runtime Options
// field instead.
type Options[K any, V any] struct {
	// Comparator orders keys. Required.
	Comparator Comparator[K]

	// Layout selects FixedLen or VarLen record accounting.
	Layout Layout

	// PageSize is the nominal node capacity budget in bytes. Defaults
	// to 4096 if zero.
	PageSize int

	// FixedKeySize is the encoded size in bytes of every key. Required
	// when Layout == FixedLen.
	FixedKeySize int

	// MaxKeyLen bounds the encoded size in bytes of any key. Required
	// when Layout == VarLen.
	MaxKeyLen int

	// KeyLen measures the encoded length of a key. Required when
	// Layout == VarLen.
	KeyLen func(K) int

	// PayloadLen is the fixed encoded size in bytes of V, and is also
	// used as the accounted size of an inner node's child pointer
	// slot.
	PayloadLen int

	// MinFreeSpaceReserve is held back from every node's capacity
	// budget, leaf and inner alike. Bulk load fills nodes up to that same
	// capacity limit that inserts check against, so it leaves no extra
	// room in a bulk-loaded node for later inserts.
	MinFreeSpaceReserve int

	// RetryBackoff overrides the lock contention back-off sleep
	// duration every lock acquisition falls back to past a short initial
	// spin. Defaults to 2 microseconds if zero.
	RetryBackoff time.Duration

	// GCIntervalMicro and GCThreadNum configure the epoch reclaimer.
	// GCThreadNum == 0 disables background sweeping.
	GCIntervalMicro int
	GCThreadNum     int
}

// config holds validated, defaulted options plus derived capacities.
// Every Node shares a pointer to the same config.
type config[K any, V any] struct {
	cmp                 Comparator[K]
	layout              Layout
	pageSize            int
	fixedKeySize        int
	maxKeyLen           int
	keyLen              func(K) int
	payloadLen          int
	minFreeSpaceReserve int
	retryBackoff        time.Duration
	gcIntervalMicro     int
	gcThreadNum         int

	// derived capacities
	headerSize int
	leafCap    int // FixedLen: max leaf records per node
	innerCap   int // FixedLen: max inner records per node
	heapBudget int // VarLen: bytes available to keys+payloads per node
}

// roughly the bookkeeping overhead of a node's header fields: kind,
// counts, free-space offsets, lock word, sibling pointer, high key
// length.
const defaultHeaderSize = 48

func newConfig[K any, V any](opts Options[K, V]) (*config[K, V], error) {
	if opts.Comparator == nil {
		return nil, errors.New("btree: Comparator is required")
	}
	c := &config[K, V]{
		cmp:                 opts.Comparator,
		layout:              opts.Layout,
		pageSize:            opts.PageSize,
		fixedKeySize:        opts.FixedKeySize,
		maxKeyLen:           opts.MaxKeyLen,
		keyLen:              opts.KeyLen,
		payloadLen:          opts.PayloadLen,
		minFreeSpaceReserve: opts.MinFreeSpaceReserve,
		retryBackoff:        opts.RetryBackoff,
		gcIntervalMicro:     opts.GCIntervalMicro,
		gcThreadNum:         opts.GCThreadNum,
		headerSize:          defaultHeaderSize,
	}
	if c.pageSize <= 0 {
		c.pageSize = 4096
	}
	if c.payloadLen <= 0 {
		return nil, errors.New("btree: PayloadLen must be positive")
	}
	if c.retryBackoff <= 0 {
		c.retryBackoff = defaultRetryBackoff
	}
	if c.minFreeSpaceReserve <= 0 {
		c.minFreeSpaceReserve = c.pageSize / 8
	}

	switch c.layout {
	case FixedLen:
		if c.fixedKeySize <= 0 {
			return nil, errors.New("btree: FixedKeySize is required for FixedLen layout")
		}
		block := c.pageSize - c.headerSize - c.minFreeSpaceReserve
		leafRec := c.fixedKeySize + c.payloadLen
		innerRec := c.fixedKeySize + c.payloadLen
		c.leafCap = maxInt(2, block/leafRec)
		c.innerCap = maxInt(2, block/innerRec)
	case VarLen:
		if c.maxKeyLen <= 0 || c.keyLen == nil {
			return nil, errors.New("btree: MaxKeyLen and KeyLen are required for VarLen layout")
		}
		c.heapBudget = maxInt(2*(c.maxKeyLen+c.payloadLen), c.pageSize-c.headerSize-c.minFreeSpaceReserve)
	default:
		return nil, errors.Errorf("btree: unknown layout %v", c.layout)
	}
	return c, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
