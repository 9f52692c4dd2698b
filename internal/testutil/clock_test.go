package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtStart(t *testing.T) {
	clock := NewManualClock(1_000)
	assert.Equal(t, int64(1_000), clock.Now())
}

func TestManualClock_Advance(t *testing.T) {
	clock := NewManualClock(1_000)

	assert.Equal(t, int64(1_060), clock.Advance(60))
	assert.Equal(t, int64(1_060), clock.Now())

	// Negative steps are ignored
	assert.Equal(t, int64(1_060), clock.Advance(-30))
}

func TestManualClock_SetNeverRewinds(t *testing.T) {
	clock := NewManualClock(1_000)

	clock.Set(5_000)
	assert.Equal(t, int64(5_000), clock.Now())

	clock.Set(2_000)
	assert.Equal(t, int64(5_000), clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock(0)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				clock.Advance(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(numGoroutines*callsPerGoroutine), clock.Now())
}
