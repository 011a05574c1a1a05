package storage

import (
	"path/filepath"
	"strings"
)

// RecordsFileName is the flattened record file under the parsed area.
const RecordsFileName = "parsed_records.json"

// Layout resolves the directory structure owned by one root entity.
//
//	{dataDir}/{rootID}/raw/     fetched node payloads
//	{dataDir}/{rootID}/parsed/  flattened records
//	{dataDir}/{rootID}/index/   vector index database
type Layout struct {
	dataDir string
	rootID  string
}

// NewLayout creates a Layout for the given data directory and root id.
func NewLayout(dataDir, rootID string) Layout {
	return Layout{dataDir: dataDir, rootID: sanitize(rootID)}
}

// RootDir returns the directory owned by the root entity.
func (l Layout) RootDir() string {
	return filepath.Join(l.dataDir, l.rootID)
}

// RawDir returns the raw payload directory.
func (l Layout) RawDir() string {
	return filepath.Join(l.RootDir(), "raw")
}

// ParsedDir returns the flattened record directory.
func (l Layout) ParsedDir() string {
	return filepath.Join(l.RootDir(), "parsed")
}

// RecordsPath returns the flattened record file path.
func (l Layout) RecordsPath() string {
	return filepath.Join(l.ParsedDir(), RecordsFileName)
}

// IndexDir returns the vector index directory.
func (l Layout) IndexDir() string {
	return filepath.Join(l.RootDir(), "index")
}

// sanitize strips path separators from an id so it cannot escape the
// data directory. Ids are validated upstream; this is the backstop.
func sanitize(id string) string {
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, string(filepath.Separator), "_")
	return strings.ReplaceAll(id, "..", "_")
}
