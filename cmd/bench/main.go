// Bench program: bulk-loads an in-memory B+tree index, then drives a
// mixed concurrent read/write workload against it and reports level
// statistics.
// Run: go run ./cmd/bench
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/daemonlabs/osbtree/btree"
)

func main() {
	recordCount := flag.Int("records", 500_000, "number of records to bulk load")
	threadCount := flag.Int("threads", 4, "bulk-load thread count")
	workers := flag.Int("workers", 8, "concurrent reader/writer goroutines for the mixed phase")
	opsPerWorker := flag.Int("ops", 50_000, "operations per worker in the mixed phase")
	flag.Parse()

	tree, err := btree.New(btree.Options[int64, int64]{
		Comparator:   func(a, b int64) int { return int(a - b) },
		Layout:       btree.FixedLen,
		FixedKeySize: 8,
		PayloadLen:   8,
		PageSize:     4096,
	})
	if err != nil {
		log.Fatalf("btree.New: %v", err)
	}
	defer tree.Close()

	entries := make([]btree.Entry[int64, int64], *recordCount)
	for i := range entries {
		entries[i] = btree.Entry[int64, int64]{Key: int64(i), Payload: int64(i)}
	}

	start := time.Now()
	if err := tree.Bulkload(entries, *threadCount); err != nil {
		log.Fatalf("Bulkload: %v", err)
	}
	fmt.Printf("bulk-loaded %d records in %s\n", *recordCount, time.Since(start))

	for _, level := range tree.CollectStatistics() {
		fmt.Println(level)
	}

	start = time.Now()
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < *opsPerWorker; i++ {
				key := rng.Int63n(int64(*recordCount))
				if rng.Intn(5) == 0 {
					tree.Write(key, key*2)
					continue
				}
				tree.Read(key)
			}
		}(int64(w))
	}
	wg.Wait()
	elapsed := time.Since(start)
	total := *workers * *opsPerWorker
	fmt.Printf("ran %d mixed ops across %d workers in %s (%.0f ops/sec)\n",
		total, *workers, elapsed, float64(total)/elapsed.Seconds())

	for _, level := range tree.CollectStatistics() {
		fmt.Println(level)
	}
}
