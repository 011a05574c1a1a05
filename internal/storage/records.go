package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/canopyproj/canopy/internal/model"
)

// ErrRecordsNotFound is returned when no flattened record file exists
// for a root entity.
var ErrRecordsNotFound = errors.New("flattened records not found")

// WriteRecords persists the flattened record file for a root entity,
// replacing any previous file atomically.
func WriteRecords(layout Layout, records []model.FlatRecord) error {
	if err := os.MkdirAll(layout.ParsedDir(), 0750); err != nil {
		return fmt.Errorf("create parsed directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	tmp, err := os.CreateTemp(layout.ParsedDir(), ".records-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write records: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, layout.RecordsPath()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store records: %w", err)
	}
	return nil
}

// ReadRecords loads the flattened record file for a root entity.
func ReadRecords(layout Layout) ([]model.FlatRecord, error) {
	data, err := os.ReadFile(layout.RecordsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", layout.RecordsPath(), ErrRecordsNotFound)
		}
		return nil, fmt.Errorf("read records: %w", err)
	}

	var records []model.FlatRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}
