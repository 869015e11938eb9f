package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
)

// workspacesCmd represents the workspaces command
var workspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "List workspaces with stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		workspaces, err := store.GetWorkspaces()
		if err != nil {
			return fmt.Errorf("failed to list workspaces: %w", err)
		}
		displayWorkspaces(cmd.OutOrStdout(), workspaces)
		return nil
	},
}

func displayWorkspaces(out io.Writer, workspaces []internal.WorkspaceSummary) {
	if len(workspaces) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📁 No workspaces found"))
		return
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📁 Found %d workspace(s)", len(workspaces))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("Workspace")+"\t"+titleStyle.Render("Sessions")+"\t"+titleStyle.Render("Last activity")+"\t"+titleStyle.Render("Path")+"\t")
	for _, ws := range workspaces {
		last := "—"
		if ws.LastActivity != "" {
			last = internal.FormatDisplayTimestamp(ws.LastActivity)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			workspaceStyle.Render(ws.Name),
			countStyle.Render(strconv.Itoa(ws.SessionCount)),
			dateStyle.Render(last),
			idStyle.Render(ws.Path))
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(workspacesCmd)
}
