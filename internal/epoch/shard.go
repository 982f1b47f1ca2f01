package epoch

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// actorSeq is hashed with xxhash to spread concurrent actors across
// shards without needing a true goroutine identifier: Go deliberately
// exposes none, so shard placement only needs to decorrelate
// same-time callers, not track a stable per-goroutine identity across
// its whole lifetime (each Enter/Leave pair picks its own slot).
var actorSeq atomic.Uint64

func actorToken() uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], actorSeq.Add(1))
	return xxhash.Sum64(buf[:])
}
