package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_Sequence(t *testing.T) {
	c := NewDeterministicClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestDeterministicClock_ResetReplaysSequence(t *testing.T) {
	c := NewDeterministicClock()
	first := []int64{c.Next(), c.Next(), c.Next()}

	c.Reset()
	second := []int64{c.Next(), c.Next(), c.Next()}

	assert.Equal(t, first, second)
}

func TestDeterministicClock_ConcurrentNextIsDense(t *testing.T) {
	c := NewDeterministicClock()
	const workers, calls = 20, 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				v := c.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*calls)
	assert.Equal(t, int64(workers*calls), c.Current())
}
