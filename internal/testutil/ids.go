package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates "<prefix>-0001", "<prefix>-0002", ... and never
// runs out, unlike engine.FixedGenerator.
//
// The same scenario run twice yields identical activity IDs, which keeps
// golden snapshots byte-stable.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix becomes "act".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "act"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate implements engine.IDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
