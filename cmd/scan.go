package cmd

import (
	"fmt"
	"io"
	"iter"

	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
)

var (
	scanFull    bool
	scanEdition string
	scanPaths   []string
)

// scanStats counts what happened to each discovered session
type scanStats struct {
	Added   int
	Updated int
	Skipped int
	Failed  int
}

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Import chat sessions into the database",
	Long: `Discover chat sessions in the VS Code workspace storage and the Copilot
CLI session state, and import them into the database.

By default only sessions whose source file changed (mtime or size) are
re-imported. Use --full to re-import everything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if scanEdition != "" && scanEdition != "both" {
			if scanEdition != internal.EditionStable && scanEdition != internal.EditionInsider {
				return fmt.Errorf("invalid edition %q (supported: stable, insider, both)", scanEdition)
			}
			cfg.Editions = []string{scanEdition}
		}
		for _, p := range scanPaths {
			cfg.StoragePaths = append(cfg.StoragePaths, internal.StorageRoot{Path: p, Edition: internal.EditionStable})
		}

		paths, err := internal.StoragePathsFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("failed to get storage paths: %w", err)
		}
		for _, root := range paths.Workspaces {
			internal.LogDebug("checking %s (%s)", root.Path, root.Edition)
		}
		for _, root := range paths.CLI {
			internal.LogDebug("checking %s (cli)", root)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		out := cmd.OutOrStdout()
		mode := "incremental: skipping unchanged sessions"
		if scanFull {
			mode = "full: updating all sessions"
		}
		fmt.Fprintf(out, "Scanning for Copilot chat sessions (%s)...\n", mode)

		scanner := internal.NewScanner(paths, internal.NewRepositoryResolver(cfg.GitTimeout))
		var stats scanStats
		ctx := cmd.Context()
		err = internal.ShowProgress(ctx, "Importing sessions", func() error {
			stats, err = importSessions(store, scanner.Sessions(ctx), scanFull)
			return err
		})
		if err != nil {
			return err
		}

		printScanSummary(out, stats, store)
		if stats.Failed > 0 {
			internal.PrintWarning(fmt.Sprintf("%d session(s) could not be stored; run with --verbose for details", stats.Failed))
		}
		return nil
	},
}

// importSessions writes each session to the store. In incremental mode a
// session whose stored fingerprint matches is skipped.
func importSessions(store *internal.Store, sessions iter.Seq[*internal.ChatSession], full bool) (scanStats, error) {
	var stats scanStats
	for session := range sessions {
		log := internal.Logger().With().Str("session", session.SessionID).Str("workspace", session.WorkspaceName).Logger()

		if !full {
			needs, err := store.NeedsUpdate(session.SessionID, session.SourceFileMtime, session.SourceFileSize)
			if err != nil {
				return stats, err
			}
			if !needs {
				stats.Skipped++
				log.Debug().Msg("skipped (unchanged)")
				continue
			}
		}

		added, err := store.AddSession(session)
		if err != nil {
			stats.Failed++
			log.Warn().Err(err).Msg("failed to store session")
			continue
		}
		if added {
			stats.Added++
			log.Debug().Int("messages", len(session.Messages)).Msg("added")
			continue
		}
		if err := store.UpdateSession(session); err != nil {
			stats.Failed++
			log.Warn().Err(err).Msg("failed to update session")
			continue
		}
		stats.Updated++
		log.Debug().Int("messages", len(session.Messages)).Msg("updated")
	}
	return stats, nil
}

func printScanSummary(out io.Writer, stats scanStats, store *internal.Store) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, successStyle.Render("Import complete:"))
	fmt.Fprintf(out, "  Added: %d sessions\n", stats.Added)
	fmt.Fprintf(out, "  Updated: %d sessions\n", stats.Updated)
	fmt.Fprintf(out, "  Skipped (unchanged): %d sessions\n", stats.Skipped)
	if stats.Failed > 0 {
		fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("  Failed: %d sessions", stats.Failed)))
	}

	dbStats, err := store.GetStats()
	if err != nil {
		internal.LogWarn("Failed to read stats: %v", err)
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, infoStyle.Render("Database now contains:"))
	fmt.Fprintf(out, "  %d sessions\n", dbStats.SessionCount)
	fmt.Fprintf(out, "  %d messages\n", dbStats.MessageCount)
	fmt.Fprintf(out, "  %d workspaces\n", dbStats.WorkspaceCount)
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVarP(&scanFull, "full", "f", false, "Re-import every session regardless of file changes")
	scanCmd.Flags().StringVarP(&scanEdition, "edition", "e", "both", "Edition to scan (stable, insider, both)")
	scanCmd.Flags().StringSliceVarP(&scanPaths, "storage-path", "s", nil, "workspaceStorage directory to scan instead of the detected ones (repeatable)")
}
