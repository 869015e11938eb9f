package cmd

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"slices"

	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check if copilot-session can locate session data and open its database",
	Long: `Check the health of copilot-session by verifying:
  • Storage root detection (VS Code stable, Insiders and the Copilot CLI)
  • Workspaces and session files under each root
  • git availability for repository resolution
  • Database accessibility and contents

This command is useful for debugging storage issues, especially in CI/CD environments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthcheck(cmd.Context(), cmd.OutOrStdout())
	},
}

func runHealthcheck(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, sectionStyle.Render("🔍 Copilot Session Health Check"))
	fmt.Fprintln(out)

	// Step 1: storage roots
	fmt.Fprintln(out, infoStyle.Render("Step 1: Detecting storage roots..."))
	paths, err := internal.StoragePathsFromConfig(cfg)
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render("❌ Failed to detect storage paths:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	existing := paths.Existing()
	for _, root := range paths.Workspaces {
		if !slices.Contains(existing.Workspaces, root) {
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  %s storage not found", root.Edition)))
			if verbose {
				fmt.Fprintf(out, "   Expected: %s\n", root.Path)
			}
			continue
		}
		workspaces, err := internal.DetectWorkspaces(root.Path)
		if err != nil {
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  %s storage unreadable:", root.Edition)), err)
			continue
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ %s storage: %d workspace(s)", root.Edition, len(workspaces))))
		if verbose {
			fmt.Fprintf(out, "   Directory: %s\n", root.Path)
		}
	}
	for _, root := range paths.CLI {
		if slices.Contains(existing.CLI, root) {
			fmt.Fprintln(out, successStyle.Render("✅ CLI session state found"))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  CLI session state not found"))
		}
		if verbose {
			fmt.Fprintf(out, "   Directory: %s\n", root)
		}
	}
	fmt.Fprintln(out)

	// Step 2: session files
	fmt.Fprintln(out, infoStyle.Render("Step 2: Counting session files..."))
	byType := make(map[string]int)
	total := 0
	for info := range internal.NewScanner(existing, nil).Files(ctx) {
		byType[info.FileType]++
		total++
	}
	if total > 0 {
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d session file(s)", total)))
		for _, ft := range []string{internal.FileTypeJSON, internal.FileTypeJSONL, internal.FileTypeVSCDB} {
			if byType[ft] > 0 {
				fmt.Fprintf(out, "   %s: %d\n", ft, byType[ft])
			}
		}
	} else {
		fmt.Fprintln(out, warningStyle.Render("⚠️  No session files found"))
	}
	fmt.Fprintln(out)

	// Step 3: git
	fmt.Fprintln(out, infoStyle.Render("Step 3: Checking git..."))
	if gitPath, err := exec.LookPath("git"); err != nil {
		fmt.Fprintln(out, warningStyle.Render("⚠️  git not found: repository URLs will be empty"))
	} else {
		fmt.Fprintln(out, successStyle.Render("✅ git available"))
		if verbose {
			fmt.Fprintf(out, "   Binary: %s\n", gitPath)
		}
	}
	fmt.Fprintln(out)

	// Step 4: database
	fmt.Fprintln(out, infoStyle.Render("Step 4: Opening database..."))
	store, err := openStore()
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render("❌ Failed to open database:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = store.Close() }()
	stats, err := store.GetStats()
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render("❌ Failed to read database:"), err)
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Database holds %d session(s), %d message(s)", stats.SessionCount, stats.MessageCount)))
	if verbose {
		fmt.Fprintf(out, "   Path: %s\n", store.Path())
	}
	fmt.Fprintln(out)

	// Summary
	fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
	fmt.Fprintln(out)
	switch {
	case total > 0:
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		if stats.SessionCount == 0 {
			fmt.Fprintln(out, "   • Run 'copilot-session scan' to import sessions")
		}
		return nil
	case stats.SessionCount > 0:
		fmt.Fprintln(out, warningStyle.Render("⚠️  No session files found, but the database has sessions"))
		return nil
	default:
		fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
		fmt.Fprintln(out, "   • No session files were found under any storage root")
		fmt.Fprintln(out, "   • The database is empty")
		return fmt.Errorf("health check failed: no session data available")
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
