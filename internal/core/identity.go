package core

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/qstream/internal/ident"
)

var (
	// ErrNoIdentity is returned by an IdentityStore that holds no id yet.
	ErrNoIdentity = errors.New("no identity stored")
	// ErrInvalidIdentity is returned when the stored identity cannot be parsed.
	ErrInvalidIdentity = errors.New("invalid identity")
)

// IdentityStore persists the local core id between runs.
type IdentityStore interface {
	// Load returns the stored id. It returns an error wrapping
	// ErrNoIdentity or ErrInvalidIdentity when a new id must be generated.
	Load() (uuid.UUID, error)
	// Save replaces the stored id.
	Save(id uuid.UUID) error
}

// ParseIdentity decodes the textual identity record. Leading and trailing
// whitespace is ignored. The nil id is rejected.
func ParseIdentity(data []byte) (uuid.UUID, error) {
	text := string(bytes.TrimSpace(data))
	if text == "" {
		return uuid.Nil, ErrNoIdentity
	}
	id, err := ident.Parse(text)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q: %v", ErrInvalidIdentity, text, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: nil id", ErrInvalidIdentity)
	}
	return id, nil
}

// FormatIdentity encodes id as the textual identity record: the braced
// hyphenated form.
func FormatIdentity(id uuid.UUID) []byte {
	return []byte("{" + id.String() + "}")
}

// MemoryIdentity is an IdentityStore held in memory.
type MemoryIdentity struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryIdentity returns a store holding the raw record data.
// A nil slice behaves like a missing identity file.
func NewMemoryIdentity(data []byte) *MemoryIdentity {
	return &MemoryIdentity{data: bytes.Clone(data)}
}

// Load implements IdentityStore.
func (m *MemoryIdentity) Load() (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ParseIdentity(m.data)
}

// Save implements IdentityStore.
func (m *MemoryIdentity) Save(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = FormatIdentity(id)
	return nil
}

// Bytes returns the stored record.
func (m *MemoryIdentity) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.data)
}
