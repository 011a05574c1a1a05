package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"

	"github.com/canopyproj/canopy/internal/model"
)

// ErrNodeNotFound is returned when a raw payload does not exist.
var ErrNodeNotFound = errors.New("node payload not found")

// RawStore reads and writes fetched node payloads, one JSON file per
// node named {type}_{id}.json under the layout's raw directory.
type RawStore struct {
	layout Layout
	logger *slog.Logger
}

// NewRawStore creates a RawStore over the given layout.
func NewRawStore(layout Layout, logger *slog.Logger) *RawStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RawStore{layout: layout, logger: logger}
}

// Write persists a node payload. The payload is hashed and compared
// with the file already on disk; identical content is not rewritten, so
// repeated runs do not churn unchanged files. New content lands via a
// temp file and rename, never a partial write.
func (s *RawStore) Write(node *model.EntityNode) error {
	data, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return fmt.Errorf("encode node %s: %w", node.ID, err)
	}

	path := s.nodePath(node.ID, node.Type)
	if existing, err := os.ReadFile(path); err == nil {
		if blake2b.Sum256(existing) == blake2b.Sum256(data) {
			s.logger.Debug("node payload unchanged", "entity_id", node.ID)
			return nil
		}
	}

	if err := os.MkdirAll(s.layout.RawDir(), 0750); err != nil {
		return fmt.Errorf("create raw directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.layout.RawDir(), ".node-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write node %s: %w", node.ID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store node %s: %w", node.ID, err)
	}
	return nil
}

// Read loads one node payload.
func (s *RawStore) Read(id string, typ model.NodeType) (*model.EntityNode, error) {
	data, err := os.ReadFile(s.nodePath(id, typ))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
		}
		return nil, fmt.Errorf("read node %s: %w", id, err)
	}

	var node model.EntityNode
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode node %s: %w", id, err)
	}
	return &node, nil
}

// Exists reports whether a payload for the node is on disk.
func (s *RawStore) Exists(id string, typ model.NodeType) bool {
	_, err := os.Stat(s.nodePath(id, typ))
	return err == nil
}

func (s *RawStore) nodePath(id string, typ model.NodeType) string {
	name := fmt.Sprintf("%s_%s.json", typ, sanitize(id))
	return filepath.Join(s.layout.RawDir(), name)
}
