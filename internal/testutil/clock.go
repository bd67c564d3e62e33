package testutil

import (
	"sync"
	"time"
)

// StepClock is a wall clock for tests that advances by a fixed step on every
// reading, so completion timestamps are reproducible and strictly increasing.
//
// Safe for concurrent use.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	next  time.Time
	step  time.Duration
}

// NewStepClock creates a clock whose first Now() returns start.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start, next: start, step: step}
}

// Now returns the current reading and advances the clock.
// Pass the method value to engine.WithWallClock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// Peek returns the next reading without advancing.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock to its start.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = c.start
}
