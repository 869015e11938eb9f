package internal

// ChatMessage is one turn of a chat session
type ChatMessage struct {
	Role            string           `json:"role" yaml:"role"` // "user", "assistant", "system"
	Content         string           `json:"content" yaml:"content"`
	Timestamp       string           `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	ToolInvocations []ToolInvocation `json:"tool_invocations,omitempty" yaml:"tool_invocations,omitempty"`
	FileChanges     []FileChange     `json:"file_changes,omitempty" yaml:"file_changes,omitempty"`
	CommandRuns     []CommandRun     `json:"command_runs,omitempty" yaml:"command_runs,omitempty"`
	ContentBlocks   []ContentBlock   `json:"content_blocks,omitempty" yaml:"content_blocks,omitempty"`
	CachedMarkdown  string           `json:"-" yaml:"-"`
}

// ToolInvocation is a tool call made by the assistant
type ToolInvocation struct {
	Name              string `json:"name" yaml:"name"`
	Input             string `json:"input,omitempty" yaml:"input,omitempty"`
	Result            string `json:"result,omitempty" yaml:"result,omitempty"`
	Status            string `json:"status,omitempty" yaml:"status,omitempty"`
	StartTime         *int64 `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime           *int64 `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	SourceType        string `json:"source_type,omitempty" yaml:"source_type,omitempty"`
	InvocationMessage string `json:"invocation_message,omitempty" yaml:"invocation_message,omitempty"`
}

// FileChange is an edit the assistant made to a file
type FileChange struct {
	Path        string `json:"path" yaml:"path"`
	Diff        string `json:"diff,omitempty" yaml:"diff,omitempty"`
	Content     string `json:"content,omitempty" yaml:"content,omitempty"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	LanguageID  string `json:"language_id,omitempty" yaml:"language_id,omitempty"`
}

// CommandRun is a terminal command executed during a turn
type CommandRun struct {
	Command   string `json:"command" yaml:"command"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Result    string `json:"result,omitempty" yaml:"result,omitempty"`
	Status    string `json:"status,omitempty" yaml:"status,omitempty"`
	Output    string `json:"output,omitempty" yaml:"output,omitempty"`
	Timestamp *int64 `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Content block kinds
const (
	BlockText           = "text"
	BlockThinking       = "thinking"
	BlockToolInvocation = "toolInvocation"
	BlockStatus         = "status"
	BlockIntent         = "intent"
	BlockSkill          = "skill"
	BlockAskUser        = "ask_user"
)

// ContentBlock is one normalized fragment of assistant output
type ContentBlock struct {
	Kind        string `json:"kind" yaml:"kind"`
	Content     string `json:"content" yaml:"content"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// SessionFileInfo describes a candidate source file before it is parsed
type SessionFileInfo struct {
	Path          string
	FileType      string // "json", "jsonl", "vscdb"
	SessionType   string // "vscode", "cli"
	Edition       string
	Mtime         float64
	Size          int64
	WorkspaceName string
	WorkspacePath string
}

// ParsedQuery is a search string split into full-text terms and field filters
type ParsedQuery struct {
	FTSQuery  string
	Role      string
	Workspace string
	Title     string
	Edition   string
}

// Int64Ptr returns a pointer to v
func Int64Ptr(v int64) *int64 {
	return &v
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 {
	return &v
}
