package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a SteppingClock.
var Epoch = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

// SteppingClock is a deterministic clock for tests.
//
// Each call to Now returns the current time and then advances it by step, so
// consecutive reads are strictly increasing and the same sequence of calls
// always observes the same times. Implements engine.Clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// NewSteppingClock creates a clock starting at Epoch that advances by step.
// A zero step makes a frozen clock.
func NewSteppingClock(step time.Duration) *SteppingClock {
	return NewSteppingClockAt(Epoch, step)
}

// NewSteppingClockAt creates a clock starting at start.
func NewSteppingClockAt(start time.Time, step time.Duration) *SteppingClock {
	start = start.UTC()
	return &SteppingClock{start: start, now: start, step: step}
}

// Now returns the current time and advances the clock.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the time the next call to Now will return.
func (c *SteppingClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to its start time.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
