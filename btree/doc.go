// Package btree implements an in-memory, concurrent, ordered B+tree
// index using optimistic single-layer locking (OSL): lock-coupled
// descent with per-node optimistic read validation, version-and-lock
// words for split/merge coordination, and epoch-based reclamation of
// retired nodes. It supports point reads, range scans, blind upsert,
// conditional insert, update, delete, and parallel bulk loading.
//
// There is no persistence, no cross-key transaction support, no
// secondary indexing, and no duplicate keys — a key maps to exactly
// one payload. Range scans only go forward.
package btree
