package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
)

// machineIDFiles are read in order to seed generated core ids.
var machineIDFiles = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// BootstrapOption configures Bootstrap.
type BootstrapOption func(*bootstrapOptions)

type bootstrapOptions struct {
	seed func() (uint32, error)
	port func() uint16
}

// WithMachineSeed overrides the machine seed source.
func WithMachineSeed(fn func() (uint32, error)) BootstrapOption {
	return func(o *bootstrapOptions) {
		o.seed = fn
	}
}

// WithPort overrides the port offset source.
func WithPort(fn func() uint16) BootstrapOption {
	return func(o *bootstrapOptions) {
		o.port = fn
	}
}

// Bootstrap loads the local core id from store, or generates one and saves
// it when the store is empty or holds an unparsable record.
//
// A generated id carries the machine seed in its first segment and
// BasePort plus a random offset below PortRange in the second. A failed save
// is logged; the generated id is still returned.
func Bootstrap(store IdentityStore, opts ...BootstrapOption) (Config, error) {
	o := bootstrapOptions{seed: MachineSeed, port: randomPort}
	for _, opt := range opts {
		opt(&o)
	}

	id, err := store.Load()
	if err == nil {
		return Config{ID: id}, nil
	}
	if !errors.Is(err, ErrNoIdentity) && !errors.Is(err, ErrInvalidIdentity) {
		return Config{}, fmt.Errorf("load identity: %w", err)
	}
	if errors.Is(err, ErrInvalidIdentity) {
		slog.Warn("discarding stored identity", "error", err)
	}

	seed, err := o.seed()
	if err != nil {
		return Config{}, fmt.Errorf("machine seed: %w", err)
	}
	cfg := Config{ID: NewID(seed, o.port())}

	if err := store.Save(cfg.ID); err != nil {
		slog.Warn("failed to save identity", "id", cfg.ID, "error", err)
	} else {
		slog.Debug("generated identity", "id", cfg.ID)
	}
	return cfg, nil
}

// MachineSeed derives a 32-bit seed from the host machine id, falling back
// to the host name. The first four bytes of the source are read as a
// little-endian integer; shorter sources are zero-padded.
func MachineSeed() (uint32, error) {
	for _, path := range machineIDFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if s := strings.TrimSpace(string(data)); s != "" {
			return seedFrom([]byte(s)), nil
		}
	}
	host, err := os.Hostname()
	if err != nil {
		return 0, fmt.Errorf("no machine id and no hostname: %w", err)
	}
	return seedFrom([]byte(host)), nil
}

func seedFrom(b []byte) uint32 {
	var buf [4]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint32(buf[:])
}

func randomPort() uint16 {
	return BasePort + uint16(rand.IntN(PortRange))
}
