package testutil

import (
	"sync"
	"time"
)

// FakeClock is a settable wall clock for tests.
//
// Unlike record.SystemClock, FakeClock only moves when told to, so the same
// scenario stamps records with identical timestamps on every run. It can also
// step backwards, which tests use to check that slot timestamps never do.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock reading unix second start.
func NewFakeClock(start int64) *FakeClock {
	return &FakeClock{now: time.Unix(start, 0).UTC()}
}

// Now returns the current fake time.
//
// Implements record.Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock by d, which may be negative.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to unix second ts.
func (c *FakeClock) Set(ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(ts, 0).UTC()
}
