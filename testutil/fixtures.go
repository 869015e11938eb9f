package testutil

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// SnapshotSession is a minimal editor chat session document with one request
func SnapshotSession(id, prompt, reply string) map[string]interface{} {
	return map[string]interface{}{
		"version":      3,
		"sessionId":    id,
		"creationDate": 1700000000000,
		"customTitle":  "Fixture " + id,
		"requests": []interface{}{
			map[string]interface{}{
				"message":   map[string]interface{}{"text": prompt},
				"response":  []interface{}{map[string]interface{}{"value": reply}},
				"timestamp": 1700000001000,
			},
		},
	}
}

// CreateStateDBFixture creates a state.vscdb with the given ItemTable rows
func CreateStateDBFixture(t *testing.T, dbPath string, items map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(itemTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	for key, value := range items {
		if _, err := db.Exec("INSERT INTO ItemTable (key, value) VALUES (?, ?)", key, value); err != nil {
			t.Fatalf("Failed to insert %s: %v", key, err)
		}
	}
}

// CreateWorkspaceFixture creates workspaceStorage/<hash>/workspace.json pointing at folder
func CreateWorkspaceFixture(t *testing.T, storageDir, workspaceHash, folder string) string {
	t.Helper()
	workspaceDir := filepath.Join(storageDir, workspaceHash)
	data, _ := json.Marshal(map[string]interface{}{"folder": folder})
	WriteFile(t, filepath.Join(workspaceDir, "workspace.json"), data)
	return workspaceDir
}

// CreateChatSessionFile writes a session file under <workspaceDir>/chatSessions
func CreateChatSessionFile(t *testing.T, workspaceDir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(workspaceDir, "chatSessions", name)
	WriteFile(t, path, data)
	return path
}

// CreateCLISessionFixture writes <root>/<id>/events.jsonl and, when summary is
// set, a workspace.yaml beside it
func CreateCLISessionFixture(t *testing.T, root, id string, events []byte, summary string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	path := filepath.Join(dir, "events.jsonl")
	WriteFile(t, path, events)
	if summary != "" {
		WriteFile(t, filepath.Join(dir, "workspace.yaml"), []byte("id: "+id+"\nsummary: "+summary+"\n"))
	}
	return path
}

// CreateMockStorageDir creates a workspaceStorage tree with one JSON session,
// one append-log session and a state database, and a CLI session-state tree
// with one event stream. It returns (workspaceStorage, cliRoot).
func CreateMockStorageDir(t *testing.T) (string, string) {
	t.Helper()
	tmpDir := CreateTempDir(t)
	storage := filepath.Join(tmpDir, "Code", "User", "workspaceStorage")
	cliRoot := filepath.Join(tmpDir, ".copilot", "session-state")

	ws := CreateWorkspaceFixture(t, storage, "workspace-hash-123", "file:///home/dev/my%20project")
	CreateChatSessionFile(t, ws, "json-session.json", JSONMarshal(t, SnapshotSession("json-session", "Explain goroutines", "Goroutines are lightweight threads.")))

	snapshot := SnapshotSession("jsonl-session", "First question", "First answer")
	push := map[string]interface{}{
		"kind": 2,
		"k":    []interface{}{"requests"},
		"v": []interface{}{map[string]interface{}{
			"message":  map[string]interface{}{"text": "Second question"},
			"response": []interface{}{map[string]interface{}{"value": "Second answer"}},
		}},
	}
	CreateChatSessionFile(t, ws, "jsonl-session.jsonl", JSONLines(t, map[string]interface{}{"kind": 0, "v": snapshot}, push))

	CreateStateDBFixture(t, filepath.Join(ws, "state.vscdb"), map[string]string{
		"interactive.sessions": string(JSONMarshal(t, []interface{}{SnapshotSession("vscdb-session", "Hello from state", "Hi from state")})),
	})

	events := JSONLines(t,
		map[string]interface{}{"type": "session.start", "timestamp": "2024-01-01T10:00:00Z", "data": map[string]interface{}{
			"sessionId": "cli-session", "startTime": "2024-01-01T10:00:00Z",
			"context": map[string]interface{}{"cwd": "/home/dev/cli-project"},
		}},
		map[string]interface{}{"type": "user.message", "timestamp": "2024-01-01T10:00:01Z", "data": map[string]interface{}{"content": "List files"}},
		map[string]interface{}{"type": "assistant.message", "timestamp": "2024-01-01T10:00:02Z", "data": map[string]interface{}{"content": "Here are the files."}},
	)
	CreateCLISessionFixture(t, cliRoot, "cli-session", events, "Listing files")

	return storage, cliRoot
}
