package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/copilot-session/internal"
	"github.com/iksnae/copilot-session/internal/export"
	"github.com/spf13/cobra"
)

var (
	format            string
	outputDir         string
	workspace         string
	sessionID         string
	includeDiffs      bool
	includeToolInputs bool
	includeThinking   bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to file",
	Long: `Export stored sessions to various formats (jsonl, md, yaml, json).

You can export all sessions, filter by workspace, or export a specific session by ID.
Each session is written to its own file; use --out - to write to stdout.
Use 'copilot-session list' to see available session IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format, internal.MarkdownOptions{
			IncludeDiffs:      includeDiffs,
			IncludeToolInputs: includeToolInputs,
			IncludeThinking:   includeThinking,
		})
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if outputDir == "-" {
			sessions, err := loadExportSessions(store, sessionID, workspace)
			if err != nil {
				return err
			}
			for _, session := range sessions {
				if err := exporter.Export(session, cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return nil
		}

		var sessions []*internal.ChatSession
		exported := 0
		err = internal.ShowProgressWithSteps(cmd.Context(), []internal.ProgressStep{
			{
				Message: "Loading sessions",
				Fn: func() (err error) {
					sessions, err = loadExportSessions(store, sessionID, workspace)
					return err
				},
			},
			{
				Message: "Exporting to " + outputDir,
				Fn: func() error {
					if err := os.MkdirAll(outputDir, 0755); err != nil {
						return fmt.Errorf("failed to create output directory: %w", err)
					}
					for _, session := range sessions {
						path := filepath.Join(outputDir, export.FileName(session, exporter.Extension()))
						if err := exportToFile(exporter, session, path); err != nil {
							internal.PrintError(fmt.Sprintf("Failed to export session %s: %v", session.SessionID, err))
							continue
						}
						exported++
					}
					return nil
				},
			},
		})
		if err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", exported, outputDir))
		if exported < len(sessions) {
			return fmt.Errorf("%d session(s) failed to export", len(sessions)-exported)
		}
		return nil
	},
}

// loadExportSessions resolves the sessions selected by id or workspace
func loadExportSessions(store *internal.Store, id, workspace string) ([]*internal.ChatSession, error) {
	if id != "" {
		session, err := store.GetSession(id)
		if err != nil {
			return nil, sessionLookupError(id, err)
		}
		return []*internal.ChatSession{session}, nil
	}

	summaries, err := store.ListSessions(workspace, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sessions := make([]*internal.ChatSession, 0, len(summaries))
	for _, sum := range summaries {
		session, err := store.GetSession(sum.SessionID)
		if err != nil {
			internal.LogWarn("Skipping session %s: %v", sum.SessionID, err)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func exportToFile(exporter export.Exporter, session *internal.ChatSession, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(session, file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory (- for stdout)")
	exportCmd.Flags().StringVar(&workspace, "workspace", "", "Filter by workspace")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a specific session by ID")
	exportCmd.Flags().BoolVar(&includeDiffs, "include-diffs", false, "Include file diffs in markdown")
	exportCmd.Flags().BoolVar(&includeToolInputs, "include-tool-inputs", false, "Include tool inputs in markdown")
	exportCmd.Flags().BoolVar(&includeThinking, "include-thinking", false, "Include thinking blocks in markdown")
}
