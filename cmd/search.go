package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
)

var (
	searchRole       string
	searchTitle      string
	searchLimit      int
	searchSort       string
	searchNoMessages bool
	searchNoTools    bool
	searchNoFiles    bool
	searchJSON       bool
)

const (
	snippetLimit = 240
	snippetLead  = 60
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored sessions",
	Long: `Full-text search over message content, tool invocations and file changes.

The query accepts field filters next to the search terms:
  role:user|assistant       only messages with this role
  workspace:<name>          workspace name contains <name>
  title:<text>              custom title or workspace name contains <text>
  edition:stable|insider    only sessions of this edition

Quote values with spaces, e.g. title:"router setup". Terms support FTS5
syntax: "exact phrase", prefix*, OR, NOT.`,
	Example: `  copilot-session search "router panic"
  copilot-session search "main.go role:assistant" --sort date
  copilot-session search "role:user workspace:backend" --limit 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchSort != internal.SortRelevance && searchSort != internal.SortDate {
			return fmt.Errorf("invalid sort %q (supported: relevance, date)", searchSort)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		opts := internal.DefaultSearchOptions()
		opts.Limit = searchLimit
		opts.Role = searchRole
		opts.Title = searchTitle
		opts.SortBy = searchSort
		opts.IncludeMessages = !searchNoMessages
		opts.IncludeToolCalls = !searchNoTools
		opts.IncludeFileChanges = !searchNoFiles

		query := strings.Join(args, " ")
		results, err := store.Search(query, opts)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if searchJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if results == nil {
				results = []internal.SearchResult{}
			}
			return enc.Encode(results)
		}
		displaySearchResults(out, query, results)
		return nil
	},
}

func displaySearchResults(out io.Writer, query string, results []internal.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("🔍 No results for %q", query)))
		return
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("🔍 %d result(s) for %q", len(results), query)))
	fmt.Fprintln(out)

	for i, r := range results {
		title := r.Title()
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(out, "%s %s %s\n",
			countStyle.Render(fmt.Sprintf("[%d]", i+1)),
			titleStyle.Render(title),
			idStyle.Render(shortID(r.SessionID)))

		meta := []string{r.Role, r.MatchType, fmt.Sprintf("message %d", r.MessageIndex+1)}
		if r.CreatedAt != "" {
			meta = append(meta, internal.FormatDisplayTimestamp(r.CreatedAt))
		}
		fmt.Fprintln(out, "    "+dateStyle.Render(strings.Join(meta, " • ")))
		fmt.Fprintln(out, "    "+renderSnippet(r.Highlighted, snippetLimit, markStyle.Render))
		fmt.Fprintln(out)
	}
}

type segment struct {
	text   string
	marked bool
}

// highlightSegments splits text carrying <mark></mark> tags into plain and marked runs
func highlightSegments(s string) []segment {
	var segs []segment
	for s != "" {
		i := strings.Index(s, "<mark>")
		if i < 0 {
			segs = append(segs, segment{text: s})
			break
		}
		if i > 0 {
			segs = append(segs, segment{text: s[:i]})
		}
		s = s[i+len("<mark>"):]
		j := strings.Index(s, "</mark>")
		if j < 0 {
			segs = append(segs, segment{text: s, marked: true})
			break
		}
		segs = append(segs, segment{text: s[:j], marked: true})
		s = s[j+len("</mark>"):]
	}
	return segs
}

// renderSnippet flattens whitespace, trims the text before the first match
// and cuts the result to limit runes, styling marked runs with mark.
func renderSnippet(highlighted string, limit int, mark func(...string) string) string {
	segs := highlightSegments(strings.Join(strings.Fields(highlighted), " "))
	if len(segs) > 1 && !segs[0].marked {
		r := []rune(segs[0].text)
		if len(r) > snippetLead {
			segs[0].text = "..." + string(r[len(r)-snippetLead:])
		}
	}

	var b strings.Builder
	remaining := limit
	for _, seg := range segs {
		r := []rune(seg.text)
		cut := len(r) > remaining
		if cut {
			r = r[:remaining]
		}
		remaining -= len(r)
		if seg.marked {
			b.WriteString(mark(string(r)))
		} else {
			b.WriteString(string(r))
		}
		if cut {
			b.WriteString("...")
			break
		}
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchRole, "role", "r", "", "Only messages with this role (user, assistant)")
	searchCmd.Flags().StringVarP(&searchTitle, "title", "t", "", "Only sessions whose title or workspace contains this text")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchSort, "sort", internal.SortRelevance, "Sort order (relevance, date)")
	searchCmd.Flags().BoolVar(&searchNoMessages, "no-messages", false, "Skip message content")
	searchCmd.Flags().BoolVar(&searchNoTools, "no-tools", false, "Skip tool invocations")
	searchCmd.Flags().BoolVar(&searchNoFiles, "no-files", false, "Skip file changes")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
}
