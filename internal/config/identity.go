package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/roach88/qstream/internal/core"
)

// IdentityFile stores the core id as a one-line text file.
type IdentityFile struct {
	Path string
}

var _ core.IdentityStore = IdentityFile{}

// Load implements core.IdentityStore. A missing file reports
// core.ErrNoIdentity.
func (f IdentityFile) Load() (uuid.UUID, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return uuid.Nil, fmt.Errorf("%s: %w", f.Path, core.ErrNoIdentity)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("read identity: %w", err)
	}
	return core.ParseIdentity(data)
}

// Save implements core.IdentityStore. The file is replaced atomically.
func (f IdentityFile) Save(id uuid.UUID) error {
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, ".identity-*")
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(core.FormatIdentity(id)); err != nil {
		tmp.Close()
		return fmt.Errorf("save identity: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}
