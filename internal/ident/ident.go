// Package ident implements the identity scheme for registry objects.
//
// Every id is a 128-bit UUID split into segments:
//
//	bytes 0-3   core segment (machine seed of the owning registry)
//	bytes 4-5   port segment (per-process offset of the owning registry)
//	bytes 6-7   repository segment
//	bytes 8-15  object segment
//
// The first two segments form the repository-scope prefix. An object id
// created by NewUnassigned has an all-zero prefix, which marks it as not yet
// scoped to a repository. Attaching the object to a repository copies the
// repository's prefix into the id.
package ident

import (
	"github.com/google/uuid"
)

// PrefixLen is the number of leading bytes that make up the repository-scope prefix.
const PrefixLen = 6

// unassignedLen is the number of leading bytes cleared in a fresh object id.
// The repository segment is cleared along with the prefix.
const unassignedLen = 8

// Prefix is the repository-scope prefix of an id.
type Prefix [PrefixLen]byte

// IsZero reports whether the prefix is the unassigned sentinel.
func (p Prefix) IsZero() bool {
	return p == Prefix{}
}

// NewUnassigned returns a fresh random id with its prefix and repository
// segment zeroed. Randomness comes from uuid.New (crypto/rand).
func NewUnassigned() uuid.UUID {
	return Unassign(uuid.New())
}

// Unassign clears the prefix and repository segment of id.
func Unassign(id uuid.UUID) uuid.UUID {
	for i := 0; i < unassignedLen; i++ {
		id[i] = 0
	}
	return id
}

// PrefixOf returns the repository-scope prefix of id.
func PrefixOf(id uuid.UUID) Prefix {
	var p Prefix
	copy(p[:], id[:PrefixLen])
	return p
}

// IsScoped reports whether id carries a non-zero prefix.
func IsScoped(id uuid.UUID) bool {
	return !PrefixOf(id).IsZero()
}

// WithPrefix returns id with its prefix replaced by the prefix of scope.
func WithPrefix(id, scope uuid.UUID) uuid.UUID {
	copy(id[:PrefixLen], scope[:PrefixLen])
	return id
}

// Key returns the map key used for id inside a repository.
func Key(id uuid.UUID) string {
	return id.String()
}

// Parse parses the textual representation of an id. It accepts the
// hyphenated form with or without surrounding braces and the urn:uuid: form.
func Parse(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
