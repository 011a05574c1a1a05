package index

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/canopyproj/canopy/internal/model"
)

// DefaultBatchSize is how many texts go into one embedding call when
// no batch size is configured.
const DefaultBatchSize = 32

// Indexer embeds flattened records and writes them to a Store.
type Indexer struct {
	store     *Store
	embedder  Embedder
	batchSize int
	logger    *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithBatchSize sets how many texts go into one embedding call.
// Default DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		ix.logger = logger
	}
}

// NewIndexer creates an Indexer over the given store and embedder.
func NewIndexer(store *Store, embedder Embedder, opts ...Option) *Indexer {
	ix := &Indexer{
		store:     store,
		embedder:  embedder,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.logger == nil {
		ix.logger = slog.Default()
	}
	return ix
}

// BuildSummary reports the outcome of one index build.
type BuildSummary struct {
	// Total is the number of input records.
	Total int `json:"total"`

	// Embedded is the number of records embedded and stored this run.
	Embedded int `json:"embedded"`

	// Skipped is the number of records whose content hash matched a
	// stored embedding, costing no embedding call.
	Skipped int `json:"skipped"`
}

// Build indexes the given records. Records whose content is unchanged
// since the last build are skipped; the rest are embedded in batches
// and upserted.
func (ix *Indexer) Build(ctx context.Context, records []model.FlatRecord) (*BuildSummary, error) {
	summary := &BuildSummary{Total: len(records)}

	pending := make([]model.FlatRecord, 0, len(records))
	hashes := make([]string, 0, len(records))
	for _, rec := range records {
		hash := contentHash(rec)
		stored, embedded, err := ix.store.ContentHash(ctx, rec.SourceID)
		if err != nil {
			return nil, err
		}
		if embedded && stored == hash {
			summary.Skipped++
			continue
		}
		pending = append(pending, rec)
		hashes = append(hashes, hash)
	}

	for start := 0; start < len(pending); start += ix.batchSize {
		end := min(start+ix.batchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.TextContent
		}

		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch of %d: %w", len(batch), err)
		}

		for i, rec := range batch {
			if err := ix.store.Upsert(ctx, rec, hashes[start+i], vectors[i]); err != nil {
				return nil, err
			}
			summary.Embedded++
		}
		ix.logger.Debug("indexed batch",
			"records", len(batch),
			"done", summary.Embedded,
			"pending", len(pending)-summary.Embedded,
		)
	}

	ix.logger.Info("index build finished",
		"total", summary.Total,
		"embedded", summary.Embedded,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// contentHash fingerprints everything about a record that affects its
// stored form, so any change forces a re-embed and unchanged records
// are skipped.
func contentHash(rec model.FlatRecord) string {
	var b strings.Builder
	b.WriteString(rec.Title)
	b.WriteByte(0)
	b.WriteString(rec.TextContent)
	b.WriteByte(0)
	b.WriteString(rec.URL)
	b.WriteByte(0)
	b.WriteString(strings.Join(rec.AncestryPath, "\x1f"))
	b.WriteByte(0)

	keys := make([]string, 0, len(rec.PropertyBag))
	for k := range rec.PropertyBag {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(rec.PropertyBag[k])
		b.WriteByte(0)
	}

	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
