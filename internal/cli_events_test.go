package internal

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/copilot-session/testutil"
)

type ev = map[string]interface{}

func cliEventLine(typ, ts string, data ev) ev {
	return ev{"type": typ, "timestamp": ts, "data": data}
}

func TestParseCLIEvents_Conversation(t *testing.T) {
	data := testutil.JSONLines(t,
		cliEventLine("session.start", "2025-01-01T10:00:00Z", ev{
			"sessionId": "cli-1",
			"startTime": "2025-01-01T10:00:00Z",
			"context":   ev{"cwd": "/home/dev/proj", "repository": "acme/proj"},
		}),
		cliEventLine("session.info", "2025-01-01T10:00:01Z", ev{"infoType": "authentication", "message": "Signed in as user: octocat"}),
		cliEventLine("user.message", "2025-01-01T10:00:02Z", ev{"content": "list the files"}),
		cliEventLine("assistant.turn_start", "2025-01-01T10:00:03Z", ev{}),
		cliEventLine("assistant.reasoning", "2025-01-01T10:00:03Z", ev{"content": "Need ls"}),
		cliEventLine("assistant.message", "2025-01-01T10:00:04Z", ev{
			"content":      "Listing now.",
			"toolRequests": []interface{}{ev{"toolCallId": "t1", "name": "report_intent", "arguments": ev{"intent": "Listing files"}}},
		}),
		cliEventLine("tool.execution_start", "2025-01-01T10:00:04Z", ev{"toolCallId": "t1", "toolName": "report_intent"}),
		cliEventLine("tool.execution_start", "2025-01-01T10:00:05Z", ev{"toolCallId": "t2", "toolName": "bash", "arguments": ev{"command": "ls", "description": "List files"}}),
		cliEventLine("tool.execution_complete", "2025-01-01T10:00:06Z", ev{"toolCallId": "t2", "success": true, "result": ev{"content": "a.go\nb.go"}}),
		cliEventLine("assistant.turn_end", "2025-01-01T10:00:06Z", ev{}),
		cliEventLine("assistant.turn_start", "2025-01-01T10:00:07Z", ev{}),
		cliEventLine("tool.execution_start", "2025-01-01T10:00:07Z", ev{"toolCallId": "t3", "toolName": "view", "arguments": ev{"path": "/home/dev/proj/a.go"}}),
		cliEventLine("tool.execution_complete", "2025-01-01T10:00:08Z", ev{"toolCallId": "t3", "success": false, "result": "denied"}),
		cliEventLine("assistant.message", "2025-01-01T10:00:09Z", ev{"content": "Two Go files."}),
	)

	session, err := ParseCLIEvents(data, sessionMeta{FallbackID: "dir-name", SourceFile: "/x/events.jsonl"}, "")
	if err != nil {
		t.Fatalf("ParseCLIEvents() error = %v", err)
	}

	if session.SessionID != "cli-1" || session.Type != SessionTypeCLI || session.Edition != EditionCLI {
		t.Errorf("unexpected identity %+v", session)
	}
	if session.WorkspacePath != "/home/dev/proj" || session.WorkspaceName != "proj" {
		t.Errorf("workspace = %q / %q", session.WorkspacePath, session.WorkspaceName)
	}
	if session.RepositoryURL != "github.com/acme/proj" {
		t.Errorf("RepositoryURL = %q", session.RepositoryURL)
	}
	if session.RequesterUsername != "octocat" {
		t.Errorf("RequesterUsername = %q", session.RequesterUsername)
	}
	if session.CustomTitle != "Listing files" {
		t.Errorf("title should fall back to the first intent, got %q", session.CustomTitle)
	}
	if session.CreatedAt != "2025-01-01T10:00:00Z" || session.UpdatedAt != "2025-01-01T10:00:09Z" {
		t.Errorf("timestamps = %q / %q", session.CreatedAt, session.UpdatedAt)
	}

	if len(session.Messages) != 2 {
		t.Fatalf("turns should not split the assistant message; got %d messages", len(session.Messages))
	}
	assistant := session.Messages[1]
	if assistant.Content != "Listing now.\n\nTwo Go files." {
		t.Errorf("assistant content = %q", assistant.Content)
	}
	if assistant.Timestamp != "2025-01-01T10:00:04Z" {
		t.Errorf("assistant timestamp = %q", assistant.Timestamp)
	}

	if len(assistant.CommandRuns) != 1 {
		t.Fatalf("expected 1 command, got %+v", assistant.CommandRuns)
	}
	cmd := assistant.CommandRuns[0]
	if cmd.Command != "ls" || cmd.Title != "List files" || cmd.Status != "success" || cmd.Output != "a.go\nb.go" {
		t.Errorf("unexpected command %+v", cmd)
	}

	if len(assistant.ToolInvocations) != 1 {
		t.Fatalf("expected 1 tool, got %+v", assistant.ToolInvocations)
	}
	tool := assistant.ToolInvocations[0]
	if tool.Name != "view" || tool.Status != "error" || tool.Result != "denied" {
		t.Errorf("unexpected tool %+v", tool)
	}
	if tool.InvocationMessage != "Viewing `a.go`" || tool.Input != `{"path":"/home/dev/proj/a.go"}` {
		t.Errorf("unexpected tool display %+v", tool)
	}

	var kinds []string
	for _, b := range assistant.ContentBlocks {
		kinds = append(kinds, b.Kind)
	}
	want := []string{BlockThinking, BlockText, BlockIntent, BlockToolInvocation, BlockToolInvocation, BlockText}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("block kinds = %v, want %v", kinds, want)
	}
	if assistant.ContentBlocks[3].Content != "$ ls" {
		t.Errorf("shell block = %q", assistant.ContentBlocks[3].Content)
	}
}

func TestParseCLIEvents_SummaryWins(t *testing.T) {
	data := testutil.JSONLines(t,
		cliEventLine("user.message", "t1", ev{"content": "hi"}),
		cliEventLine("tool.execution_start", "t2", ev{"toolCallId": "a", "toolName": "report_intent", "arguments": ev{"intent": "Greeting"}}),
	)
	session, err := ParseCLIEvents(data, sessionMeta{FallbackID: "dir-name"}, "From workspace.yaml")
	if err != nil {
		t.Fatalf("ParseCLIEvents() error = %v", err)
	}
	if session.SessionID != "dir-name" {
		t.Errorf("SessionID = %q, want fallback", session.SessionID)
	}
	if session.CustomTitle != "From workspace.yaml" {
		t.Errorf("CustomTitle = %q", session.CustomTitle)
	}
}

func TestParseCLIEvents_AskUser(t *testing.T) {
	data := testutil.JSONLines(t,
		cliEventLine("user.message", "t1", ev{"content": "deploy"}),
		cliEventLine("tool.execution_start", "t2", ev{"toolCallId": "q1", "toolName": "ask_user", "arguments": ev{
			"question": "Which env?",
			"choices":  []interface{}{"dev", "staging", "prod", "qa", "perf", "demo", "eu"},
		}}),
		cliEventLine("tool.execution_complete", "t3", ev{"toolCallId": "q1", "success": true, "result": ev{"content": "User responded: staging"}}),
		cliEventLine("tool.execution_start", "t4", ev{"toolCallId": "q2", "toolName": "ask_user", "arguments": ev{"question": "Proceed?"}}),
		cliEventLine("tool.execution_complete", "t5", ev{"toolCallId": "q2", "success": false}),
	)

	session, err := ParseCLIEvents(data, sessionMeta{FallbackID: "s"}, "")
	if err != nil {
		t.Fatalf("ParseCLIEvents() error = %v", err)
	}
	blocks := session.Messages[1].ContentBlocks
	if len(blocks) != 2 {
		t.Fatalf("expected 2 ask_user blocks, got %+v", blocks)
	}

	want := "❓ Which env?\n   Options: dev, staging, prod, qa, perf, ... (+2 more)\n   ✅ **Answer:** staging"
	if blocks[0].Kind != BlockAskUser || blocks[0].Content != want {
		t.Errorf("first block = %q, want %q", blocks[0].Content, want)
	}
	if !strings.HasSuffix(blocks[1].Content, "⏭️ *Skipped*") {
		t.Errorf("unanswered question should be skipped, got %q", blocks[1].Content)
	}
}

func TestParseCLIEvents_StatusEvents(t *testing.T) {
	data := testutil.JSONLines(t,
		cliEventLine("user.message", "t1", ev{"content": "go"}),
		cliEventLine("session.model_change", "t2", ev{"newModel": "fast-model"}),
		cliEventLine("abort", "t3", ev{}),
		cliEventLine("session.error", "t4", ev{"errorType": "rate_limit"}),
		cliEventLine("skill.invoked", "t5", ev{"name": "pdf", "content": "---\ndescription: Work with PDFs\n---"}),
		cliEventLine("session.compaction_complete", "t6", ev{"summaryContent": "<overview>Refactored auth</overview>"}),
		cliEventLine("session.compaction_complete", "t7", ev{"checkpointNumber": 3}),
		cliEventLine("tool.execution_start", "t8", ev{"toolCallId": "r", "toolName": "read_bash"}),
	)

	session, err := ParseCLIEvents(data, sessionMeta{FallbackID: "s"}, "")
	if err != nil {
		t.Fatalf("ParseCLIEvents() error = %v", err)
	}
	var got []string
	for _, b := range session.Messages[1].ContentBlocks {
		got = append(got, b.Content+"|"+b.Description)
	}
	want := []string{
		"Switched to fast-model|model-change",
		"Aborted: unknown|abort",
		"Error: rate_limit|error",
		"Loaded skill: pdf|Work with PDFs",
		"Refactored auth|compaction",
		"Session compacted to checkpoint 3|compaction",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("blocks =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestParseCLIEvents_FolderTrust(t *testing.T) {
	data := testutil.JSONLines(t,
		cliEventLine("session.info", "t0", ev{"infoType": "folder_trust", "message": "Folder /srv/app has been added to trusted folders"}),
		cliEventLine("user.message", "t1", ev{"content": "hi"}),
	)
	session, err := ParseCLIEvents(data, sessionMeta{FallbackID: "s"}, "")
	if err != nil {
		t.Fatalf("ParseCLIEvents() error = %v", err)
	}
	if session.WorkspacePath != "/srv/app" || session.WorkspaceName != "app" {
		t.Errorf("workspace = %q / %q", session.WorkspacePath, session.WorkspaceName)
	}
}

func TestParseCLIEvents_Empty(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("garbage\n"), testutil.JSONLines(t, cliEventLine("session.start", "t", ev{}))} {
		if _, err := ParseCLIEvents(data, sessionMeta{}, ""); err == nil {
			t.Errorf("ParseCLIEvents(%q) should fail", data)
		}
	}
}

func TestReadCLIWorkspace(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.WriteFile(t, filepath.Join(dir, "workspace.yaml"), []byte("id: abc\ncwd: /home/dev/proj\nsummary: Fix: the parser\n"))

	ws := readCLIWorkspace(dir)
	if ws.ID != "abc" || ws.Cwd != "/home/dev/proj" {
		t.Errorf("unexpected workspace %+v", ws)
	}
	if ws.Summary != "Fix: the parser" {
		t.Errorf("Summary = %q", ws.Summary)
	}

	if ws := readCLIWorkspace(testutil.CreateTempDir(t)); ws != (cliWorkspace{}) {
		t.Errorf("missing file should give a zero value, got %+v", ws)
	}
}

func TestFormatToolDisplay(t *testing.T) {
	tests := []struct {
		name        string
		tool        string
		args        map[string]interface{}
		description string
		want        string
	}{
		{"view", "view", ev{"path": "/a/b/c.go"}, "", "Viewing `c.go`"},
		{"grep", "grep", ev{"pattern": "TODO", "path": "/src"}, "", "Searching for `TODO` in `src`"},
		{"missing placeholder falls back", "grep", ev{"pattern": "x"}, "desc", "desc"},
		{"todo", "update_todo", nil, "", "Updated TODO list"},
		{"str_replace_editor create", "str_replace_editor", ev{"command": "create", "path": "/x/y.md"}, "", "Created `y.md`"},
		{"str_replace_editor view", "str_replace_editor", ev{"path": "/x/y.md"}, "", "Viewing `y.md`"},
		{"unknown with description", "custom", nil, "Doing things", "Doing things"},
		{"unknown bare", "custom", nil, "", "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatToolDisplay(tt.tool, tt.args, tt.description); got != tt.want {
				t.Errorf("FormatToolDisplay() = %q, want %q", got, tt.want)
			}
		})
	}
}
