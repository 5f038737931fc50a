package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator produces deterministic UUID-shaped ids for tests:
//
//	00000000-0000-4000-8000-000000000001
//	00000000-0000-4000-8000-000000000002
//
// A non-empty prefix replaces the leading zero group so ids of different
// kinds stay distinguishable ("ehr00000-0000-4000-8000-000000000001").
// Implements engine.IDGenerator.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequenceGenerator creates a generator. prefix is truncated to 8 characters.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id in the sequence. The first id ends in 1.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	head := g.prefix + "00000000"[len(g.prefix):]
	return fmt.Sprintf("%s-0000-4000-8000-%012d", head, g.seq)
}
