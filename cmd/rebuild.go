package cmd

import (
	"fmt"

	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
)

// rebuildCmd represents the rebuild command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the searchable tables from stored raw sessions",
	Long: `Drop and recreate every derived table (sessions, messages, tool
invocations, file changes, command runs, content blocks and the full-text
index), then re-parse each stored raw payload into them.

Run this after upgrading to pick up parser improvements without rescanning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		bar := internal.NewProgressBar("Rebuilding")
		stats, err := store.RebuildDerivedTables(cmd.Context(), bar.Update)
		bar.Done()
		if err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}

		if stats.Total == 0 {
			internal.PrintInfo("No stored sessions to rebuild; run 'copilot-session scan' first")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, successStyle.Render("Rebuild complete:"))
		fmt.Fprintf(out, "  Processed: %d of %d sessions\n", stats.Processed, stats.Total)
		if stats.Errors > 0 {
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("  Errors: %d (run with --verbose for details)", stats.Errors)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
