package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// StateFileName is the snapshot file kept inside each entity directory.
const StateFileName = "pull_state.json"

var (
	// ErrCorruptState means the state file exists but cannot be parsed.
	// The caller decides whether to abort or reset; it is never silently
	// discarded.
	ErrCorruptState = errors.New("state file is corrupt")

	// ErrStateNotFound means no state file exists yet for this entity.
	ErrStateNotFound = errors.New("state file not found")
)

// Store persists PullState snapshots for one entity directory.
type Store struct {
	path string
}

// NewStore creates a Store writing to {entityDir}/pull_state.json.
func NewStore(entityDir string) *Store {
	return &Store{path: filepath.Join(entityDir, StateFileName)}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. It returns ErrStateNotFound when no file
// exists and ErrCorruptState when the file cannot be parsed.
func (s *Store) Load() (*PullState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	var ps PullState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, err)
	}
	if ps.Nodes == nil {
		ps.Nodes = make(map[string]*NodeState)
	}
	return &ps, nil
}

// Save writes the snapshot atomically: marshal to a temp file in the
// same directory, fsync, rename. A crash mid-write leaves the previous
// valid snapshot in place.
func (s *Store) Save(ps *PullState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), StateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Reset discards the snapshot. Missing files are not an error: reset of
// a fresh entity is a no-op.
func (s *Store) Reset() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
