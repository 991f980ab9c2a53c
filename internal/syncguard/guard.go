// Package syncguard suppresses redundant media position ticks.
package syncguard

import (
	"math"
	"sync"
)

// Bucket quantizes a media position into half-second buckets.
func Bucket(seconds float64) int64 {
	return int64(math.Floor(seconds * 2))
}

// Guard remembers the last emitted half-second bucket for one media stream.
// The zero value has emitted nothing and is ready for use.
type Guard struct {
	mu   sync.Mutex
	last int64
	seen bool
}

// New returns a guard that has emitted nothing yet.
func New() *Guard {
	return &Guard{}
}

// Allow reports whether a tick at seconds should be emitted and, if so,
// records its bucket. The check and the update happen under one lock, so
// concurrent callers in the same bucket see exactly one true.
func (g *Guard) Allow(seconds float64) bool {
	bucket := Bucket(seconds)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen && bucket == g.last {
		return false
	}
	g.last = bucket
	g.seen = true
	return true
}

// Last returns the most recently emitted bucket; ok is false until the first
// emission.
func (g *Guard) Last() (bucket int64, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.seen
}
