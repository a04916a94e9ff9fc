package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorBreaker_TripsAtThreshold(t *testing.T) {
	b := NewErrorBreaker(3)

	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure())
	assert.True(t, b.Open())
	assert.Equal(t, 3, b.Count())

	// stays open and stops counting
	assert.True(t, b.RecordFailure())
	b.RecordSuccess()
	assert.True(t, b.Open())
	assert.Equal(t, 3, b.Count())
}

func TestErrorBreaker_SuccessResets(t *testing.T) {
	b := NewErrorBreaker(2)

	b.RecordFailure()
	b.RecordSuccess()
	assert.Equal(t, 0, b.Count())
	assert.False(t, b.RecordFailure())
	assert.False(t, b.Open())
}

func TestErrorBreaker_MinimumThreshold(t *testing.T) {
	b := NewErrorBreaker(0)
	assert.True(t, b.RecordFailure())
}

func TestErrorBreaker_Concurrent(t *testing.T) {
	const threshold = 20
	b := NewErrorBreaker(threshold)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		trips int
	)
	for range 100 {
		wg.Go(func() {
			before := b.Open()
			if b.RecordFailure() && !before {
				mu.Lock()
				trips++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.True(t, b.Open())
	assert.Equal(t, threshold, b.Count())
	assert.GreaterOrEqual(t, trips, 1)
}
