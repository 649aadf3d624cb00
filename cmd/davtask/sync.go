package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/davtask/davtask/internal/engine"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the journal of pending local edits against the server",
	Long: `Process every queued local mutation in order.

Each action resolves to exactly one outcome:
  applied     confirmed by the server, removed from the journal
  recovered   rejected permanently, task moved to the recovery calendar
  retained    transient failure, kept for the next sync

Warnings (conflict copies, recovery demotions) are printed even when
the sync as a whole succeeds. The exit status is non-zero only when
at least one action was retained.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := setup()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		start := time.Now()
		warnings, err := eng.SyncJournal(ctx)
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
		if err != nil {
			if errors.Is(err, engine.ErrSyncIncomplete) {
				return fmt.Errorf("some changes could not be synced yet; they remain queued: %w", err)
			}
			return err
		}
		fmt.Printf("Sync complete in %v\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
