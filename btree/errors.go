package btree

import "github.com/pkg/errors"

// Public sentinel errors. These are the only error values the tree's
// data operations return to callers (New reports configuration errors
// of its own): internal SMO signals below never escape the package.
var (
	// ErrKeyExists is returned by Insert when the key is already present.
	ErrKeyExists = errors.New("btree: key already exists")
	// ErrKeyNotExist is returned by Read/Update/Delete when the key is absent.
	ErrKeyNotExist = errors.New("btree: key does not exist")
)

// nodeRC is the internal structure-modification signal carried between
// node operations and the tree-level SMO driver. It is never wrapped
// into an error and never crosses the public API.
type nodeRC int

const (
	rcSuccess        nodeRC = iota
	rcKeyExists             // key already present (Insert)
	rcKeyNotExist           // key absent (Update/Delete/Read)
	rcNeedSplit             // node has no room; caller must split
	rcNeedMerge             // node underflowed; caller must attempt merge
	rcNeedRetry             // a concurrent SMO is mid-flight; back off and retry
	rcAbortMerge            // sibling no longer mergeable; abandon this merge attempt
	rcCompleted             // parent-level SMO completion finished cleanly
	rcRootRetry             // the root changed mid-descent; restart from the root
)

// fatalf panics with a stack-carrying error. Allocation failure is
// the only condition this core treats as unrecoverable at the call
// site.
func fatalf(format string, args ...any) {
	panic(errors.Errorf(format, args...))
}
