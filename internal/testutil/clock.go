// Package testutil provides deterministic clocks and id generators for
// tests.
package testutil

import (
	"sync"
	"time"
)

// Clock is a wall clock for tests that advances by a fixed step on each
// call to Now. A zero step makes it a fixed clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewClock creates a clock whose first Now returns start.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start: start, step: step}
}

// FixedClock returns a Now function that always returns t.
func FixedClock(t time.Time) func() time.Time {
	return NewClock(t, 0).Now
}

// Now returns start + n*step, where n is the number of earlier calls.
//
// Monotonic: never decreases for a non-negative step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many times Now has been called.
func (c *Clock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock so the next Now returns start again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
