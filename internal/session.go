package internal

// Session types and file types
const (
	SessionTypeVSCode = "vscode"
	SessionTypeCLI    = "cli"

	FileTypeJSON  = "json"
	FileTypeJSONL = "jsonl"
	FileTypeVSCDB = "vscdb"

	EditionStable  = "stable"
	EditionInsider = "insider"
	EditionCLI     = "cli"
)

// ChatSession represents a normalized chat session
type ChatSession struct {
	SessionID         string        `json:"session_id" yaml:"session_id"`
	WorkspaceName     string        `json:"workspace_name,omitempty" yaml:"workspace_name,omitempty"`
	WorkspacePath     string        `json:"workspace_path,omitempty" yaml:"workspace_path,omitempty"`
	RepositoryURL     string        `json:"repository_url,omitempty" yaml:"repository_url,omitempty"`
	CreatedAt         string        `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt         string        `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	SourceFile        string        `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	Edition           string        `json:"vscode_edition" yaml:"vscode_edition"`
	CustomTitle       string        `json:"custom_title,omitempty" yaml:"custom_title,omitempty"`
	RequesterUsername string        `json:"requester_username,omitempty" yaml:"requester_username,omitempty"`
	ResponderUsername string        `json:"responder_username,omitempty" yaml:"responder_username,omitempty"`
	SourceFileMtime   *float64      `json:"source_file_mtime,omitempty" yaml:"source_file_mtime,omitempty"`
	SourceFileSize    *int64        `json:"source_file_size,omitempty" yaml:"source_file_size,omitempty"`
	Type              string        `json:"type" yaml:"type"`
	FileType          string        `json:"-" yaml:"-"`
	Messages          []ChatMessage `json:"messages" yaml:"messages"`

	// RawJSON is the source payload as read from disk and is never re-serialized.
	RawJSON []byte `json:"-" yaml:"-"`
	// CLISummary is the workspace.yaml title of a CLI session, kept so a
	// rebuild from RawJSON reproduces the same title.
	CLISummary string `json:"-" yaml:"-"`
}

// Title returns the custom title, falling back to the workspace name
func (s *ChatSession) Title() string {
	if s.CustomTitle != "" {
		return s.CustomTitle
	}
	return s.WorkspaceName
}

// FirstUserPrompt returns the content of the first user message
func (s *ChatSession) FirstUserPrompt() string {
	for _, msg := range s.Messages {
		if msg.Role == "user" {
			return msg.Content
		}
	}
	return ""
}

// sessionMeta carries the file-level facts a parser attaches to every session
type sessionMeta struct {
	SourceFile    string
	FallbackID    string
	Edition       string
	FileType      string
	WorkspaceName string
	WorkspacePath string
	Mtime         *float64
	Size          *int64
}

func (m sessionMeta) apply(s *ChatSession) {
	s.SourceFile = m.SourceFile
	s.Edition = m.Edition
	if s.Edition == "" {
		s.Edition = EditionStable
	}
	s.FileType = m.FileType
	s.WorkspaceName = m.WorkspaceName
	s.WorkspacePath = m.WorkspacePath
	s.SourceFileMtime = m.Mtime
	s.SourceFileSize = m.Size
}
