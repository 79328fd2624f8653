package testutil

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/roach88/proofslot/internal/ir"
)

// SequentialIDGenerator returns "<prefix>-0001", "<prefix>-0002", ...
//
// This enables deterministic submission IDs for golden snapshot comparison.
// Implements engine.IDGenerator.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator. An empty prefix becomes "sub".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "sub"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Identity derives a stable test identity from a name.
// The same name always yields the same identity.
func Identity(name string) ir.Identity {
	return ir.Identity(sha256.Sum256([]byte("proofslot/test-identity/v1\x00" + name)))
}
