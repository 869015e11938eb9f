package internal

import (
	"fmt"
	"strings"
)

// MarkdownOptions controls what optional detail is rendered
type MarkdownOptions struct {
	IncludeDiffs      bool
	IncludeToolInputs bool
	IncludeThinking   bool
}

// summaryListLimit is how many names a one-line summary lists before "..."
const summaryListLimit = 3

const commandDisplayLimit = 50

// SessionToMarkdown renders a whole session: a header, a metadata list and every message
func SessionToMarkdown(session *ChatSession, opts MarkdownOptions) string {
	var lines []string
	lines = append(lines, "# Chat Session", "")

	switch {
	case session.CustomTitle != "":
		lines = append(lines, "**Title:** "+session.CustomTitle)
	case session.WorkspaceName != "":
		lines = append(lines, "**Workspace:** "+session.WorkspaceName)
	default:
		lines = append(lines, "**Session:** "+shortID(session.SessionID)+"...")
	}
	lines = append(lines, "", "## Metadata", "")
	lines = append(lines, fmt.Sprintf("- **Session ID:** `%s`", session.SessionID))
	if session.WorkspaceName != "" {
		lines = append(lines, "- **Workspace:** "+session.WorkspaceName)
	}
	if session.WorkspacePath != "" {
		lines = append(lines, fmt.Sprintf("- **Path:** `%s`", decodeWorkspacePath(session.WorkspacePath)))
	}
	if session.RepositoryURL != "" {
		lines = append(lines, "- **Repository:** "+session.RepositoryURL)
	}
	if session.CreatedAt != "" {
		lines = append(lines, "- **Created:** "+FormatDisplayTimestamp(session.CreatedAt))
	}
	if session.UpdatedAt != "" {
		lines = append(lines, "- **Updated:** "+FormatDisplayTimestamp(session.UpdatedAt))
	}
	lines = append(lines, fmt.Sprintf("- **Edition:** `%s`", session.Edition))
	lines = append(lines, fmt.Sprintf("- **Messages:** %d", len(session.Messages)))
	if session.RequesterUsername != "" {
		lines = append(lines, "- **User:** "+session.RequesterUsername)
	}
	if session.ResponderUsername != "" {
		lines = append(lines, "- **Assistant:** "+session.ResponderUsername)
	}
	lines = append(lines, "", "---", "")

	for i := range session.Messages {
		lines = append(lines, MessageToMarkdown(&session.Messages[i], i+1, opts))
	}
	return strings.Join(lines, "\n")
}

// MessageToMarkdown renders one message. number is 1-based; 0 omits the header.
func MessageToMarkdown(msg *ChatMessage, number int, opts MarkdownOptions) string {
	var lines []string
	if number > 0 {
		lines = append(lines, fmt.Sprintf("## Message %d: **%s**", number, strings.ToUpper(msg.Role)), "")
	}
	if msg.Timestamp != "" {
		lines = append(lines, "*"+FormatDisplayTimestamp(msg.Timestamp)+"*", "")
	}
	lines = append(lines, messageBody(msg, opts.IncludeThinking))

	if !hasBlockKind(msg, BlockToolInvocation) {
		if s := toolSummary(msg.ToolInvocations, opts.IncludeToolInputs); s != "" {
			lines = append(lines, s)
		}
		if s := commandSummary(msg.CommandRuns); s != "" {
			lines = append(lines, s)
		}
	}
	if s := fileChangeSummary(msg.FileChanges, opts.IncludeDiffs); s != "" {
		lines = append(lines, s)
	}
	lines = append(lines, "", "---", "")
	return strings.Join(lines, "\n")
}

func messageBody(msg *ChatMessage, includeThinking bool) string {
	var parts []string
	if len(msg.ContentBlocks) > 0 {
		for _, block := range msg.ContentBlocks {
			switch block.Kind {
			case BlockThinking:
				if includeThinking {
					parts = append(parts, "> **Thinking:**\n> "+strings.ReplaceAll(block.Content, "\n", "\n> "))
				}
			case BlockToolInvocation:
				if c := strings.TrimSpace(block.Content); c != "" {
					parts = append(parts, "*"+c+"*")
				}
			default:
				if strings.TrimSpace(block.Content) != "" {
					parts = append(parts, block.Content)
				}
			}
		}
	} else if strings.TrimSpace(msg.Content) != "" {
		parts = append(parts, msg.Content)
	}

	content := normalizeRenderedContent(strings.Join(parts, "\n\n"))
	if !includeThinking && hasBlockKind(msg, BlockThinking) {
		content = "*[Was thinking...]*\n\n" + content
	}
	return content
}

func hasBlockKind(msg *ChatMessage, kind string) bool {
	for _, block := range msg.ContentBlocks {
		if block.Kind == kind {
			return true
		}
	}
	return false
}

// listSummary renders "*<one> x*", "*<many> a, b*" or "*<verb> N <noun>: a, b, c, ...*"
func listSummary(names []string, one, many, verb, noun string) string {
	switch n := len(names); {
	case n == 1:
		return fmt.Sprintf("\n\n*%s: %s*", one, names[0])
	case n <= summaryListLimit:
		return fmt.Sprintf("\n\n*%s: %s*", many, strings.Join(names, ", "))
	default:
		return fmt.Sprintf("\n\n*%s %d %s: %s, ...*", verb, n, noun, strings.Join(names[:summaryListLimit], ", "))
	}
}

func toolSummary(tools []ToolInvocation, includeInputs bool) string {
	if len(tools) == 0 {
		return ""
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	summary := listSummary(names, "Used tool", "Used tools", "Used", "tools")
	if includeInputs {
		for _, t := range tools {
			if t.Input != "" {
				summary += fmt.Sprintf("\n\n**%s input:**\n```\n%s\n```", t.Name, t.Input)
			}
		}
	}
	return summary
}

func fileChangeSummary(changes []FileChange, includeDiffs bool) string {
	if len(changes) == 0 {
		return ""
	}
	paths := make([]string, len(changes))
	for i, c := range changes {
		paths[i] = c.Path
	}
	summary := listSummary(paths, "Changed file", "Changed files", "Changed", "files")
	if includeDiffs {
		for _, c := range changes {
			if c.Diff != "" {
				summary += fmt.Sprintf("\n\n**%s:**\n```diff\n%s\n```", c.Path, c.Diff)
			}
		}
	}
	return summary
}

func commandSummary(runs []CommandRun) string {
	switch len(runs) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("\n\n*Ran command: `%s`*", truncate(runs[0].Command, commandDisplayLimit))
	default:
		return fmt.Sprintf("\n\n*Ran %d commands*", len(runs))
	}
}

// shortID is the first 8 characters of an id
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
