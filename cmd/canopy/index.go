package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canopyproj/canopy/internal/index"
	"github.com/canopyproj/canopy/internal/storage"
)

// NewIndexCmd creates the index command.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <root-entity-id>",
		Short: "Embed parsed records into a local vector index",
		Long: `Index reads the flattened records produced by parse, requests an
embedding for each record's text from the configured embedding
endpoint, and stores records and vectors in a local SQLite index.

Indexing is incremental: a record whose content is unchanged since the
last run keeps its stored embedding and is not re-embedded.

Examples:
  canopy index 11111111-2222-3333-4444-555555555555
  canopy index --recreate 11111111-2222-3333-4444-555555555555`,
		Args: cobra.ExactArgs(1),
		RunE: runIndexCmd,
	}

	cmd.Flags().Bool("recreate", false, "Drop the existing index and rebuild it from scratch")
	cmd.Flags().Int("batch-size", index.DefaultBatchSize, "Number of records per embedding request")

	return cmd
}

// runIndexCmd executes the index command.
func runIndexCmd(cmd *cobra.Command, args []string) error {
	rootID, err := parseRootID(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateForIndex(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	layout := storage.NewLayout(cfg.DataDir, rootID)
	records, err := storage.ReadRecords(layout)
	if err != nil {
		if errors.Is(err, storage.ErrRecordsNotFound) {
			return fmt.Errorf("no parsed records for %s: run canopy parse first", rootID)
		}
		return err
	}

	recreate, _ := cmd.Flags().GetBool("recreate")
	store, err := index.Open(layout.IndexDir(), index.Options{
		CreateIfNotExists: true,
		Recreate:          recreate,
	})
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer store.Close()

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	embedder := index.NewHTTPEmbedder(
		cfg.EmbeddingEndpoint, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.RequestTimeout)
	ix := index.NewIndexer(store, embedder,
		index.WithBatchSize(batchSize),
		index.WithLogger(logger),
	)

	summary, err := ix.Build(ctx, records)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d record(s): %d embedded, %d unchanged\n",
		summary.Total, summary.Embedded, summary.Skipped)
	return nil
}
