package export

import (
	"io"

	"github.com/iksnae/copilot-session/internal"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct {
	Options internal.MarkdownOptions
}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *internal.ChatSession, w io.Writer) error {
	if _, err := io.WriteString(w, internal.SessionToMarkdown(session, e.Options)); err != nil {
		return &internal.ExportError{Format: "md", Path: session.SessionID, Err: err}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
