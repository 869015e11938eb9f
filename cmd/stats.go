package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		stats, err := store.GetStats()
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		displayStats(cmd.OutOrStdout(), store.Path(), stats)
		return nil
	},
}

func displayStats(out io.Writer, path string, stats *internal.Stats) {
	fmt.Fprintln(out, sectionStyle.Render("📊 Database Statistics"))
	fmt.Fprintln(out, idStyle.Render(path))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Sessions:   %s\n", countStyle.Render(strconv.Itoa(stats.SessionCount)))
	fmt.Fprintf(out, "  Messages:   %s\n", countStyle.Render(strconv.Itoa(stats.MessageCount)))
	fmt.Fprintf(out, "  Workspaces: %s\n", countStyle.Render(strconv.Itoa(stats.WorkspaceCount)))

	if len(stats.Editions) == 0 {
		return
	}
	editions := make([]string, 0, len(stats.Editions))
	for edition := range stats.Editions {
		editions = append(editions, edition)
	}
	sort.Strings(editions)

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("  By edition:"))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, edition := range editions {
		_, _ = fmt.Fprintf(w, "    %s\t%d\n", editionStyle(edition).Render(edition), stats.Editions[edition])
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
