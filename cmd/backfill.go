package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/microgrid-lab/mgsim/app"
	"github.com/microgrid-lab/mgsim/config"
	"github.com/microgrid-lab/mgsim/core/dispatch/ledger"
	"github.com/microgrid-lab/mgsim/infra/logger"
	"github.com/microgrid-lab/mgsim/jobs/ecokpi"
)

var backfillRunID string

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Rebuild community KPIs from the step ledger",
	RunE:  backfill,
}

func init() {
	backfillCmd.Flags().StringVar(&backfillRunID, "run", "", "run ID to backfill (all runs when empty)")
	rootCmd.AddCommand(backfillCmd)
}

func backfill(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Ledger.Kind == "" || cfg.Ledger.Kind == "nop" {
		return fmt.Errorf("backfill: ledger persistence is disabled")
	}
	if cfg.Eco.Store != "sqlite" {
		return fmt.Errorf("backfill: eco store %q does not persist, use sqlite", cfg.Eco.Store)
	}
	logg := logger.New("backfill-command")

	store, err := ledger.New(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("ledger store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Errorf("ledger close: %v", err)
		}
	}()
	records, err := store.Query(cmd.Context(), ledger.Query{RunID: backfillRunID})
	if err != nil {
		return fmt.Errorf("ledger query: %w", err)
	}

	ecoStore, err := app.NewEcoStore(cfg.Eco)
	if err != nil {
		return fmt.Errorf("eco store: %w", err)
	}
	if err := ecokpi.Backfill(ecoStore, records, cfg.Battery.DeltaHours); err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	if c, ok := ecoStore.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("eco store close: %w", err)
		}
	}
	logg.Infof("backfilled %d ledger records into %s", len(records), cfg.Eco.Path)
	return nil
}
