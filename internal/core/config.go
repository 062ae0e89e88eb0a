package core

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/roach88/qstream/internal/ident"
)

// BasePort is the lowest port-like offset written into a generated core id.
const BasePort = 26567

// PortRange is the width of the random offset added to BasePort.
const PortRange = 1000

// Config is the explicit registry configuration.
type Config struct {
	// ID is the local core id. Its prefix scopes every repository this
	// core creates.
	ID uuid.UUID
}

// Prefix returns the scoping prefix of the core id.
func (c Config) Prefix() ident.Prefix {
	return ident.PrefixOf(c.ID)
}

// MachineSeed returns the machine segment of the core id.
func (c Config) MachineSeed() uint32 {
	return binary.BigEndian.Uint32(c.ID[0:4])
}

// Port returns the port-like segment of the core id.
func (c Config) Port() uint16 {
	return binary.BigEndian.Uint16(c.ID[4:6])
}

// NewID builds a core id from a machine seed and a port. The repository and
// object segments are zero.
func NewID(seed uint32, port uint16) uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint32(id[0:4], seed)
	binary.BigEndian.PutUint16(id[4:6], port)
	return id
}

// repositoryID returns the id of the n-th repository created by core id.
// The repository segment holds n; the object segment stays zero.
func repositoryID(core uuid.UUID, n uint16) uuid.UUID {
	id := NewID(0, 0)
	copy(id[:ident.PrefixLen], core[:ident.PrefixLen])
	binary.BigEndian.PutUint16(id[6:8], n)
	return id
}
