package testutil

import (
	"github.com/google/uuid"

	"github.com/roach88/qstream/internal/core"
	"github.com/roach88/qstream/internal/ident"
)

// Fixed machine identity used by tests and scenarios.
const (
	MachineSeed uint32 = 0x11223344
	Port        uint16 = 26600
)

// CoreID returns the core id derived from MachineSeed and Port.
func CoreID() uuid.UUID {
	return core.NewID(MachineSeed, Port)
}

// CoreConfig returns a registry configuration with the fixed core id.
func CoreConfig() core.Config {
	return core.Config{ID: CoreID()}
}

// FixedIdentity returns an identity store already holding the fixed core id,
// so Bootstrap loads it instead of generating one.
func FixedIdentity() *core.MemoryIdentity {
	return core.NewMemoryIdentity(core.FormatIdentity(CoreID()))
}

// IDs returns a generator of deterministic unassigned object ids.
// Each call starts a fresh sequence.
func IDs() ident.Generator {
	return ident.NewSequenceGenerator()
}
