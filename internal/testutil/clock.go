// Package testutil holds deterministic stand-ins for journal sequencing and
// run ids.
package testutil

import "sync"

// DeterministicClock is a resettable journal.Sequencer. Each scenario gets
// its own, so the same steps always journal the same seq values.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock returns a clock whose first Next is 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds to 0 for journaling a scenario again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
