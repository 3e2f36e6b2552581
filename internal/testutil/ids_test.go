package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_Sequence(t *testing.T) {
	g := NewFixedIDGenerator("fn")
	assert.Equal(t, "fn-0001", g.Generate())
	assert.Equal(t, "fn-0002", g.Generate())
}

func TestFixedIDGenerator_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "unit-0001", NewFixedIDGenerator("").Generate())
}

func TestFixedIDGenerator_Unique(t *testing.T) {
	g := NewFixedIDGenerator("")
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}
