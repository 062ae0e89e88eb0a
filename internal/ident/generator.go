package ident

import (
	"sync"

	"github.com/google/uuid"
)

// Generator produces object ids.
// Implemented by RandomGenerator (production) and SequenceGenerator (tests).
type Generator interface {
	Next() uuid.UUID
}

// RandomGenerator returns unassigned random ids.
//
// Thread-safety: RandomGenerator is stateless and safe for concurrent use.
type RandomGenerator struct{}

// Next returns NewUnassigned().
func (RandomGenerator) Next() uuid.UUID {
	return NewUnassigned()
}

// SequenceGenerator returns unassigned ids whose object segment is a
// counter, so repeated runs produce identical ids.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu sync.Mutex
	n  uint64
}

// NewSequenceGenerator creates a generator whose first id ends in 1.
func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

// Next returns the next id in the sequence.
func (g *SequenceGenerator) Next() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	var id uuid.UUID
	n := g.n
	for i := len(id) - 1; i >= unassignedLen && n > 0; i-- {
		id[i] = byte(n)
		n >>= 8
	}
	return id
}
