package journal

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock for journal entries.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
