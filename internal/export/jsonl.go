package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/copilot-session/internal"
)

// JSONLExporter exports sessions in JSONL format (one message per line)
type JSONLExporter struct{}

type jsonlLine struct {
	SessionID string   `json:"session_id"`
	Index     int      `json:"index"`
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp,omitempty"`
	Tools     []string `json:"tools,omitempty"`
	Files     []string `json:"files,omitempty"`
}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *internal.ChatSession, w io.Writer) error {
	enc := json.NewEncoder(w)

	for i, msg := range session.Messages {
		line := jsonlLine{
			SessionID: session.SessionID,
			Index:     i,
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		}
		for _, tool := range msg.ToolInvocations {
			line.Tools = append(line.Tools, tool.Name)
		}
		for _, fc := range msg.FileChanges {
			line.Files = append(line.Files, fc.Path)
		}

		if err := enc.Encode(line); err != nil {
			return &internal.ExportError{Format: "jsonl", Path: session.SessionID, Err: err}
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
