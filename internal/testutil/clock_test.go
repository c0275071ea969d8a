package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Abhichasma/StateMQ/internal/journal"
)

var _ journal.Sequencer = (*DeterministicClock)(nil)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_ConcurrentNextIsUnique(t *testing.T) {
	clock := NewDeterministicClock()
	const writers, perWriter = 16, 50

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				v := clock.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, writers*perWriter)
	assert.Equal(t, int64(writers*perWriter), clock.Current())
}
