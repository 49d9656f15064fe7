package threadcache

import (
	"runtime"
	"sync"
)

// caches is the process-wide per-goroutine cache registry. Go exposes
// no thread-local storage, so the allocator substitutes a registry
// keyed by goroutine id, the same technique the teacher repo's
// hyperdrive allocator uses for its per-thread memory pools. Entries
// are never evicted on goroutine exit (Design Notes, per-thread
// identity without a TLS hook): a long-running program that spawns and
// discards many short-lived goroutines will accumulate cache entries.
// Bounding or reaping this registry is left to a future revision.
var caches sync.Map // goroutine id (uint64) -> *Cache

// Get returns the calling goroutine's cache, creating one bound to
// homeNode on first use.
func Get(homeNode int) *Cache {
	id := goroutineID()
	if v, ok := caches.Load(id); ok {
		return v.(*Cache)
	}
	c := newCache(homeNode)
	actual, _ := caches.LoadOrStore(id, c)
	return actual.(*Cache)
}

// Lookup returns the calling goroutine's cache without creating one.
func Lookup() (*Cache, bool) {
	v, ok := caches.Load(goroutineID())
	if !ok {
		return nil, false
	}
	return v.(*Cache), true
}

// Reset discards every registered cache. Used by Cleanup so a
// subsequent Init starts from a clean registry.
func Reset() {
	caches.Range(func(k, _ interface{}) bool {
		caches.Delete(k)
		return true
	})
}

// goroutineID parses the numeral out of the "goroutine N [...]" header
// line that runtime.Stack prints, giving each goroutine a stable
// identity for the cache registry. This is the same mechanism the
// teacher's memory_allocator.go reaches for, corrected: the teacher's
// version sums every byte of the captured stack trace rather than
// parsing only the decimal digits after the "goroutine " prefix, which
// produces colliding, non-stable ids across calls.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if len(b) < len(prefix) || string(b[:len(prefix)]) != prefix {
		return 0
	}
	b = b[len(prefix):]

	var id uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
