package engine

import "sync/atomic"

// Clock is the monotonic logical clock that stamps every persisted write.
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start, typically the highest seq
// already stored.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
