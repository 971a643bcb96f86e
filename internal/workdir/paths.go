// Package workdir resolves the daemon's working directory and the per-session
// paths underneath it. Failure to resolve a usable working directory is the
// one fatal startup condition.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir is a resolved daemon working directory.
type Dir struct {
	base string
}

// Resolve determines the working directory. An explicit override wins;
// otherwise ~/.wafleet is used. The directory tree is created eagerly so a
// non-writable location fails here rather than mid-operation.
func Resolve(override string) (*Dir, error) {
	base := override
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".wafleet")
	}
	d := &Dir{base: base}
	for _, p := range []string{d.base, d.SessionsDir(), d.LogDir()} {
		if err := os.MkdirAll(p, 0700); err != nil {
			return nil, fmt.Errorf("create working directory %s: %w", p, err)
		}
	}
	return d, nil
}

// Base returns the working directory root.
func (d *Dir) Base() string {
	return d.base
}

// ConfigPath returns the daemon config file path.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.base, "config.toml")
}

// SessionsDir returns the directory holding all per-session state.
func (d *Dir) SessionsDir() string {
	return filepath.Join(d.base, "sessions")
}

// SessionDir returns the directory for one session.
func (d *Dir) SessionDir(id string) string {
	return filepath.Join(d.SessionsDir(), id)
}

// CredsPath returns the credential blob path for a session.
func (d *Dir) CredsPath(id string) string {
	return filepath.Join(d.SessionDir(id), "creds.bin")
}

// DeviceDBPath returns the transport-owned device database path for a session.
func (d *Dir) DeviceDBPath(id string) string {
	return filepath.Join(d.SessionDir(id), "device.db")
}

// StorePath returns the shared application database path.
func (d *Dir) StorePath() string {
	return filepath.Join(d.base, "wafleet.db")
}

// LogDir returns the daemon log directory.
func (d *Dir) LogDir() string {
	return filepath.Join(d.base, "logs")
}

// LogPath returns the daemon log file path.
func (d *Dir) LogPath() string {
	return filepath.Join(d.LogDir(), "wafleetd.log")
}

// EnsureSessionDir creates the directory tree for one session.
func (d *Dir) EnsureSessionDir(id string) error {
	return os.MkdirAll(d.SessionDir(id), 0700)
}

// RemoveSessionDir deletes a session's directory tree, including the
// credential blob and device database. Used on logout/blocked wipes.
func (d *Dir) RemoveSessionDir(id string) error {
	return os.RemoveAll(d.SessionDir(id))
}
