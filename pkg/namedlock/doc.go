// Package namedlock provides mutual exclusion keyed by arbitrary strings.
//
// A Registry hands out one mutex per key on demand and evicts the entry as
// soon as the last holder releases it, so locking a large or unbounded key
// space (for example one lock per scanned domain) does not pin memory for
// keys that are no longer in use.
//
//	locks := namedlock.New()
//	locks.Do("https://example.com", func() {
//	    // at most one goroutine runs here per key
//	})
package namedlock
