package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
)

var (
	showRaw          bool
	showPlain        bool
	showStart        int
	showEnd          int
	showNoDiffs      bool
	showNoToolInputs bool
	showThinking     bool
)

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show messages for a specific session",
	Long: `Display a stored session as markdown, rendered for the terminal.

Use --start and --end (1-based, inclusive) to show a range of messages and
--raw to print the stored source payload.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		out := cmd.OutOrStdout()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if showRaw {
			raw, err := store.RawJSON(sessionID)
			if err != nil {
				return sessionLookupError(sessionID, err)
			}
			_, err = out.Write(prettyJSON(raw))
			return err
		}

		session, err := store.GetSession(sessionID)
		if err != nil {
			return sessionLookupError(sessionID, err)
		}

		opts := internal.MarkdownOptions{
			IncludeDiffs:      !showNoDiffs,
			IncludeToolInputs: !showNoToolInputs,
			IncludeThinking:   showThinking,
		}
		md, err := store.MessagesMarkdown(sessionID, showStart, showEnd, opts)
		if err != nil {
			return fmt.Errorf("failed to render session: %w", err)
		}

		displaySessionHeader(out, session)
		if !showPlain && internal.IsTerminal(out) {
			md = renderMarkdown(md)
		}
		_, err = io.WriteString(out, md+"\n")
		return err
	},
}

func sessionLookupError(id string, err error) error {
	if errors.Is(err, internal.ErrSessionNotFound) {
		return fmt.Errorf("session not found: %s (use 'copilot-session list' to see available sessions)", id)
	}
	return err
}

// prettyJSON indents a single JSON document; anything else (such as an
// append log) is returned unchanged
func prettyJSON(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// renderMarkdown styles markdown for the terminal, falling back to the
// source text when rendering fails
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		internal.LogDebug("markdown renderer unavailable: %v", err)
		return md
	}
	rendered, err := r.Render(md)
	if err != nil {
		internal.LogDebug("markdown render failed: %v", err)
		return md
	}
	return rendered
}

func displaySessionHeader(out io.Writer, session *internal.ChatSession) {
	if session == nil {
		return
	}
	title := session.Title()
	if title == "" {
		title = shortID(session.SessionID)
	}
	fmt.Fprintln(out, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", title)))

	var metaParts []string
	if session.CreatedAt != "" {
		metaParts = append(metaParts, fmt.Sprintf("Created: %s", internal.FormatDisplayTimestamp(session.CreatedAt)))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", len(session.Messages)))
	if session.WorkspaceName != "" {
		metaParts = append(metaParts, fmt.Sprintf("Workspace: %s", session.WorkspaceName))
	}
	if session.RepositoryURL != "" {
		metaParts = append(metaParts, fmt.Sprintf("Repository: %s", session.RepositoryURL))
	}
	metaParts = append(metaParts, fmt.Sprintf("Edition: %s", session.Edition))

	fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the stored source payload")
	showCmd.Flags().BoolVar(&showPlain, "plain", false, "Print markdown without terminal rendering")
	showCmd.Flags().IntVar(&showStart, "start", 0, "First message to show (1-based)")
	showCmd.Flags().IntVar(&showEnd, "end", 0, "Last message to show (1-based, inclusive)")
	showCmd.Flags().BoolVar(&showNoDiffs, "no-diffs", false, "Omit file diffs")
	showCmd.Flags().BoolVar(&showNoToolInputs, "no-tool-inputs", false, "Omit tool inputs")
	showCmd.Flags().BoolVar(&showThinking, "thinking", false, "Include thinking blocks")
}
