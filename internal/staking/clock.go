package staking

import (
	"sync"
	"time"
)

// SecondsPerDay is the accrual period.
const SecondsPerDay int64 = 86_400

// Clock returns monotonic seconds since a fixed epoch.
type Clock interface {
	Now() int64
}

// SystemClock reads unix seconds from the wall clock.
type SystemClock struct{}

// Now returns the current unix time in seconds.
func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NewManualClock creates a clock stopped at start.
func NewManualClock(start int64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current reading.
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by seconds.
func (c *ManualClock) Advance(seconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += seconds
}

// AdvanceDays moves the clock forward by whole days.
func (c *ManualClock) AdvanceDays(days int64) {
	c.Advance(days * SecondsPerDay)
}

// Set moves the clock to t.
func (c *ManualClock) Set(t int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
