package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/canopyproj/canopy/internal/flatten"
	"github.com/canopyproj/canopy/internal/model"
	"github.com/canopyproj/canopy/internal/state"
	"github.com/canopyproj/canopy/internal/storage"
)

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <root-entity-id>",
		Short: "Flatten pulled raw data into searchable records",
		Long: `Parse walks the raw node payloads of a completed pull and flattens
them into uniform records: one record per page or database row, with
nested block text folded into the nearest such ancestor.

The records are written to parsed_records.json inside the entity's
data directory, ready for the index stage. Parse works entirely on
local data and needs no API access.

Examples:
  canopy parse 11111111-2222-3333-4444-555555555555
  canopy parse --allow-partial 11111111-2222-3333-4444-555555555555`,
		Args: cobra.ExactArgs(1),
		RunE: runParseCmd,
	}

	cmd.Flags().Bool("allow-partial", false,
		"Flatten a partially complete pull, skipping failed subtrees")

	return cmd
}

// runParseCmd executes the parse command.
func runParseCmd(cmd *cobra.Command, args []string) error {
	rootID, err := parseRootID(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := setupLogger(cfg)

	layout := storage.NewLayout(cfg.DataDir, rootID)
	if _, err := os.Stat(layout.RawDir()); err != nil {
		return fmt.Errorf("no raw data for %s under %s: run canopy pull first", rootID, layout.RootDir())
	}

	ps, err := state.NewStore(cfg.EntityDir(rootID)).Load()
	switch {
	case errors.Is(err, state.ErrStateNotFound):
		return fmt.Errorf("no pull state for %s: run canopy pull first", rootID)
	case errors.Is(err, state.ErrCorruptState):
		return fmt.Errorf("%w (re-run canopy pull --reset to discard it)", err)
	case err != nil:
		return err
	}

	allowPartial, _ := cmd.Flags().GetBool("allow-partial")
	if status := ps.RootStatus(); status != model.StatusSuccess {
		if !allowPartial || status != model.StatusPartial {
			return fmt.Errorf("pull of %s is %s: retry failed nodes with canopy pull --retry-failed, or pass --allow-partial",
				rootID, status)
		}
		logger.Warn("flattening a partially complete tree",
			"root_id", rootID, "failed_nodes", len(ps.FailedDetail()))
	}

	rawStore := storage.NewRawStore(layout, logger)
	records, err := flatten.New(rawStore, ps, flatten.WithLogger(logger)).Flatten()
	if err != nil {
		return err
	}

	if err := storage.WriteRecords(layout, records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d record(s) to %s\n", len(records), layout.RecordsPath())
	return nil
}
