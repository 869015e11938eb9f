package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/copilot-session/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(session *internal.ChatSession, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string, opts internal.MarkdownOptions) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{Options: opts}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json)", format)
	}
}

const fileNameLimit = 50

// FileName builds an export file name from the session date, its title (or
// an id prefix) and the first eight characters of its id.
func FileName(session *internal.ChatSession, ext string) string {
	name := session.Title()
	if name == "" {
		name = prefix(session.SessionID, 16)
	}
	safe := sanitizeFileName(name)

	id := prefix(session.SessionID, 8)
	if date := sessionDate(session.CreatedAt); date != "" {
		return fmt.Sprintf("%s_%s_%s.%s", date, safe, id, ext)
	}
	return fmt.Sprintf("%s_%s.%s", safe, id, ext)
}

func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r < 0x80 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return prefix(b.String(), fileNameLimit)
}

// sessionDate renders the creation timestamp as YYYYMMDD, or "" when it is not numeric
func sessionDate(createdAt string) string {
	display := internal.FormatDisplayTimestamp(createdAt)
	t, err := time.Parse("2006-01-02 15:04:05", display)
	if err != nil {
		return ""
	}
	return t.Format("20060102")
}

func prefix(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
