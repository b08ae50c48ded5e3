package main

import (
	"fmt"

	"github.com/fekuna/omnipos-qrmenu/internal/app"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Permanently delete soft-deleted rows whose undo window has passed",
	Long: `sweep finalizes undo batches left behind by a stopped or crashed server.
With Redis configured it sees batches of every replica; otherwise only
batches recorded in this process, which makes it a no-op.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg, appLogger)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Sweeper.SweepOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d batch(es) finalized\n", n)
		return nil
	},
}
