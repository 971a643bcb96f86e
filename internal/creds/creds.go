// Package creds stores opaque per-session credential blobs on disk.
package creds

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wafleet/wafleet/internal/workdir"
)

// Store persists credential blobs per session id. The blob is opaque to the
// lifecycle manager; the transport writes and reads it.
type Store interface {
	Get(sessionID string) ([]byte, error)
	Set(sessionID string, blob []byte) error
	Delete(sessionID string) error
}

// FileStore keeps one blob file per session under the workdir.
type FileStore struct {
	dir *workdir.Dir
}

// NewFileStore creates a file-backed credential store.
func NewFileStore(dir *workdir.Dir) *FileStore {
	return &FileStore{dir: dir}
}

// Get returns the credential blob for a session, or nil if none exists.
func (s *FileStore) Get(sessionID string) ([]byte, error) {
	data, err := os.ReadFile(s.dir.CredsPath(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read creds: %w", err)
	}
	return data, nil
}

// Set writes the credential blob atomically (temp file + rename) with 0600
// permissions.
func (s *FileStore) Set(sessionID string, blob []byte) error {
	if err := s.dir.EnsureSessionDir(sessionID); err != nil {
		return fmt.Errorf("ensure session dir: %w", err)
	}
	path := s.dir.CredsPath(sessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0600); err != nil {
		return fmt.Errorf("write creds: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace creds: %w", err)
	}
	return nil
}

// Delete removes the credential blob. Missing blob is not an error.
func (s *FileStore) Delete(sessionID string) error {
	err := os.Remove(s.dir.CredsPath(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete creds: %w", err)
	}
	// Clean the temp file too if a crashed write left one behind.
	_ = os.Remove(filepath.Join(s.dir.SessionDir(sessionID), "creds.bin.tmp"))
	return nil
}
