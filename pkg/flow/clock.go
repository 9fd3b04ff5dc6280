package flow

import "time"

// Clock is the monotonic time source driving spawns and packet progress.
// Now returns the time elapsed since an arbitrary fixed origin.
type Clock interface {
	Now() time.Duration
}

// wallClock reads the monotonic component of time.Now.
type wallClock struct {
	origin time.Time
}

// NewWallClock returns a Clock backed by the system monotonic clock.
func NewWallClock() Clock {
	return &wallClock{origin: time.Now()}
}

func (c *wallClock) Now() time.Duration {
	return time.Since(c.origin)
}

// ManualClock only moves when told to. Used for deterministic playback
// (frame export) and tests.
type ManualClock struct {
	now time.Duration
}

// Now implements Clock.
func (c *ManualClock) Now() time.Duration { return c.now }

// Advance moves the clock forward by d. Negative values are ignored.
func (c *ManualClock) Advance(d time.Duration) {
	if d > 0 {
		c.now += d
	}
}

// Set moves the clock to t if t is later than the current time.
func (c *ManualClock) Set(t time.Duration) {
	if t > c.now {
		c.now = t
	}
}
