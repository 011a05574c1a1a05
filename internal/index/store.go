package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/canopyproj/canopy/internal/model"
)

// dbFileName is the index database file under the layout's index dir.
const dbFileName = "index.db"

// Store is the SQLite-backed record and vector store.
//
// A single file holds all records of one root entity. SQLite supports
// one writer, so the pool is pinned to a single connection.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Options configures Store opening behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when
	// missing. When false, a missing database is an error.
	CreateIfNotExists bool

	// Recreate drops any existing database before opening, discarding
	// all stored records and embeddings.
	Recreate bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{CreateIfNotExists: true}
}

// Open opens or creates the index database in dir.
func Open(dir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dir, dbFileName)

	if opts.Recreate {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("remove existing index: %w", err)
			}
		}
	}

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("index database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("check index path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}

	// One writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		source_id TEXT PRIMARY KEY,
		node_type TEXT NOT NULL,
		title TEXT,
		url TEXT,
		text_content TEXT NOT NULL,
		ancestry TEXT,
		property_bag TEXT,
		content_hash TEXT NOT NULL,
		embedding BLOB,
		dimensions INTEGER DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_type ON records(node_type);
	CREATE INDEX IF NOT EXISTS idx_records_hash ON records(content_hash);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// ContentHash returns the stored content hash for a record and whether
// an embedding is present. A record never indexed reports ("", false).
func (s *Store) ContentHash(ctx context.Context, sourceID string) (string, bool, error) {
	var hash string
	var dims int
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash, dimensions FROM records WHERE source_id = ?`,
		sourceID,
	).Scan(&hash, &dims)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query content hash: %w", err)
	}
	return hash, dims > 0, nil
}

// Upsert stores a record and its embedding, replacing any previous row
// for the same source id.
func (s *Store) Upsert(ctx context.Context, rec model.FlatRecord, hash string, embedding []float32) error {
	ancestryJSON, err := json.Marshal(rec.AncestryPath)
	if err != nil {
		return fmt.Errorf("serialize ancestry: %w", err)
	}
	bagJSON, err := json.Marshal(rec.PropertyBag)
	if err != nil {
		return fmt.Errorf("serialize property bag: %w", err)
	}

	query := `
	INSERT INTO records (source_id, node_type, title, url, text_content, ancestry, property_bag, content_hash, embedding, dimensions)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(source_id) DO UPDATE SET
		node_type = excluded.node_type,
		title = excluded.title,
		url = excluded.url,
		text_content = excluded.text_content,
		ancestry = excluded.ancestry,
		property_bag = excluded.property_bag,
		content_hash = excluded.content_hash,
		embedding = excluded.embedding,
		dimensions = excluded.dimensions,
		updated_at = CURRENT_TIMESTAMP
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.SourceID,
		string(rec.Type),
		rec.Title,
		rec.URL,
		rec.TextContent,
		string(ancestryJSON),
		string(bagJSON),
		hash,
		encodeEmbedding(embedding),
		len(embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// StoredRecord is one indexed record read back from the database.
type StoredRecord struct {
	Record      model.FlatRecord
	ContentHash string
	Embedding   []float32
}

// Get reads back one indexed record. A missing record returns nil.
func (s *Store) Get(ctx context.Context, sourceID string) (*StoredRecord, error) {
	query := `
	SELECT source_id, node_type, title, url, text_content, ancestry, property_bag, content_hash, embedding
	FROM records WHERE source_id = ?
	`

	var sr StoredRecord
	var nodeType, ancestryJSON, bagJSON string
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, sourceID).Scan(
		&sr.Record.SourceID,
		&nodeType,
		&sr.Record.Title,
		&sr.Record.URL,
		&sr.Record.TextContent,
		&ancestryJSON,
		&bagJSON,
		&sr.ContentHash,
		&blob,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	sr.Record.Type = model.NodeType(nodeType)
	if err := json.Unmarshal([]byte(ancestryJSON), &sr.Record.AncestryPath); err != nil {
		return nil, fmt.Errorf("parse ancestry: %w", err)
	}
	if err := json.Unmarshal([]byte(bagJSON), &sr.Record.PropertyBag); err != nil {
		return nil, fmt.Errorf("parse property bag: %w", err)
	}
	sr.Embedding = decodeEmbedding(blob)
	return &sr, nil
}

// encodeEmbedding packs a vector as little-endian float32 bytes.
func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeEmbedding unpacks little-endian float32 bytes.
func decodeEmbedding(buf []byte) []float32 {
	if len(buf) < 4 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
