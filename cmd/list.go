package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
)

var (
	listWorkspace string
	listLimit     int
	listOffset    int
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Long:  `List the sessions in the database, most recently active first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		sessions, err := store.ListSessions(listWorkspace, listLimit, listOffset)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		displaySessions(cmd.OutOrStdout(), sessions, time.Now())
		return nil
	},
}

func displaySessions(out io.Writer, sessions []internal.SessionSummary, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No sessions found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(sessions))))
	fmt.Fprintln(out)

	// Use tabwriter for aligned columns with better spacing
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Last active")+"\t"+titleStyle.Render("Edition")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, s := range sessions {
		name := s.Title()
		if name == "" {
			name = s.FirstUserPrompt
		}
		if name == "" {
			name = "Untitled"
		}
		name = truncateLine(name, 50)
		name = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(name)

		last := s.LastMessageAt
		if last == "" {
			last = s.CreatedAt
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(shortID(s.SessionID)),
			name,
			countStyle.Render(strconv.Itoa(s.MessageCount)),
			dateStyle.Render(relativeTime(last, now)),
			editionStyle(s.Edition).Render(s.Edition))
	}

	_ = w.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: Use the full ID (e.g., ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(sessions[0].SessionID)+
		idStyle.Render(") with `copilot-session show <id>`"))
}

// parseEpoch reads a seconds or milliseconds epoch string. CLI sessions
// carry RFC 3339 timestamps instead.
func parseEpoch(value string) (time.Time, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		t, err := time.Parse(time.RFC3339, value)
		return t.UTC(), err == nil
	}
	if n <= 0 {
		return time.Time{}, false
	}
	if n > 1e10 {
		n /= 1000
	}
	return time.Unix(int64(n), 0).UTC(), true
}

// relativeTime formats an epoch value the way a listing reads best: time of
// day for today, weekday within a week, month and day within a year.
func relativeTime(value string, now time.Time) string {
	t, ok := parseEpoch(value)
	if !ok {
		return "—"
	}
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncateLine keeps the first line of s, cut to n runes
func truncateLine(s string, n int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listWorkspace, "workspace", "", "Only list sessions of this workspace")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "Maximum number of sessions (0 for all)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Skip this many sessions")
}
