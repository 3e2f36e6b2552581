package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator hands out predictable unit IDs: "<prefix>-0001",
// "<prefix>-0002", and so on. It satisfies bridge.UnitIDGenerator.
//
// Golden files and store rows stay byte-identical across runs when the
// bridge under test uses it.
type FixedIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator. An empty prefix becomes "unit".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "unit"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
