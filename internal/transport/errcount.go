package transport

import "sync"

// ErrorCounter tracks consecutive send failures since the last success.
type ErrorCounter struct {
	mu    sync.Mutex
	count int
}

// Fail records a failure and returns the new consecutive count.
func (c *ErrorCounter) Fail() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.count
}

// Reset clears the count after a successful send.
func (c *ErrorCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
}

// Count returns the current consecutive failure count.
func (c *ErrorCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
