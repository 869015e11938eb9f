package internal

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iksnae/copilot-session/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "data", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// snapshotSession parses a fixture document the way the scanner would
func snapshotSession(t *testing.T, id, prompt, reply string) *ChatSession {
	t.Helper()
	raw := testutil.JSONMarshal(t, testutil.SnapshotSession(id, prompt, reply))
	session, err := parseSnapshotSession(raw, sessionMeta{
		SourceFile:    "/tmp/" + id + ".json",
		FallbackID:    id,
		FileType:      FileTypeJSON,
		WorkspaceName: "proj",
		WorkspacePath: "/home/dev/proj",
		Mtime:         Float64Ptr(1700000000.5),
		Size:          Int64Ptr(int64(len(raw))),
	})
	require.NoError(t, err)
	session.RawJSON = raw
	return session
}

func withoutCachedMarkdown(msgs []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		m.CachedMarkdown = ""
		out[i] = m
	}
	return out
}

// derivedSnapshot dumps the derived tables in a stable order
func derivedSnapshot(t *testing.T, s *Store) []map[string]any {
	t.Helper()
	ids, err := s.ListSessions("", 0, 0)
	require.NoError(t, err)
	sort.Slice(ids, func(i, j int) bool { return ids[i].SessionID < ids[j].SessionID })

	var out []map[string]any
	for _, sum := range ids {
		session, err := s.GetSession(sum.SessionID)
		require.NoError(t, err)
		out = append(out, map[string]any{
			"id":       session.SessionID,
			"title":    session.CustomTitle,
			"created":  session.CreatedAt,
			"mtime":    session.SourceFileMtime,
			"messages": session.Messages,
		})
	}
	return out
}

func TestOpenStore_CreatesDirectoryAndSchema(t *testing.T) {
	s := openTestStore(t)

	n, err := s.RawSessionCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SessionCount)
	assert.Empty(t, stats.Editions)
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	session := CreateTestSessionWithMessages("round-trip", []ChatMessage{
		{Role: "user", Content: "Rename the handler", Timestamp: "1700000000000"},
		CreateRichTestMessage(1),
	})
	session.CustomTitle = "Handler rename"
	session.RepositoryURL = "github.com/acme/api"

	added, err := s.AddSession(session)
	require.NoError(t, err)
	require.True(t, added)

	got, err := s.GetSession("round-trip")
	require.NoError(t, err)

	assert.Equal(t, session.SessionID, got.SessionID)
	assert.Equal(t, session.WorkspaceName, got.WorkspaceName)
	assert.Equal(t, session.CustomTitle, got.CustomTitle)
	assert.Equal(t, session.RepositoryURL, got.RepositoryURL)
	assert.Equal(t, session.CreatedAt, got.CreatedAt)
	assert.Equal(t, EditionStable, got.Edition)
	assert.Equal(t, SessionTypeVSCode, got.Type)
	assert.Equal(t, session.Messages, withoutCachedMarkdown(got.Messages))

	for _, msg := range got.Messages {
		assert.NotEmpty(t, msg.CachedMarkdown)
	}
}

func TestStore_GetSessionNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_AddSessionTwice(t *testing.T) {
	s := openTestStore(t)
	session := CreateTestSession("dup")

	added, err := s.AddSession(session)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddSession(session)
	require.NoError(t, err)
	assert.False(t, added)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SessionCount)
	assert.Equal(t, 2, stats.MessageCount)
}

func TestStore_StatsForFourMessageSession(t *testing.T) {
	s := openTestStore(t)
	session := CreateTestSessionWithMessages("four", []ChatMessage{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
		{Role: "assistant", Content: "four"},
	})

	_, err := s.AddSession(session)
	require.NoError(t, err)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SessionCount)
	assert.Equal(t, 4, stats.MessageCount)
	assert.Equal(t, 1, stats.WorkspaceCount)
	assert.Equal(t, map[string]int{EditionStable: 1}, stats.Editions)

	raw, err := s.RawJSON("four")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestStore_NeedsUpdate(t *testing.T) {
	s := openTestStore(t)

	session := CreateTestSession("fingerprinted")
	session.SourceFileMtime = Float64Ptr(1700000000.25)
	session.SourceFileSize = Int64Ptr(2048)
	_, err := s.AddSession(session)
	require.NoError(t, err)

	legacy := CreateTestSession("legacy")
	_, err = s.AddSession(legacy)
	require.NoError(t, err)

	tests := []struct {
		name  string
		id    string
		mtime *float64
		size  *int64
		want  bool
	}{
		{"absent", "nope", Float64Ptr(1), Int64Ptr(1), true},
		{"exact match", "fingerprinted", Float64Ptr(1700000000.25), Int64Ptr(2048), false},
		{"mtime differs", "fingerprinted", Float64Ptr(1700000001.25), Int64Ptr(2048), true},
		{"size differs", "fingerprinted", Float64Ptr(1700000000.25), Int64Ptr(4096), true},
		{"stored fingerprint null", "legacy", Float64Ptr(1700000000.25), Int64Ptr(2048), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.NeedsUpdate(tt.id, tt.mtime, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_UpdateSessionReplaces(t *testing.T) {
	s := openTestStore(t)

	_, err := s.AddSession(CreateTestSession("upd"))
	require.NoError(t, err)

	updated := CreateTestSessionWithMessages("upd", []ChatMessage{
		{Role: "user", Content: "only message"},
	})
	updated.SourceFileMtime = Float64Ptr(42)
	updated.SourceFileSize = Int64Ptr(7)
	require.NoError(t, s.UpdateSession(updated))

	got, err := s.GetSession("upd")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "only message", got.Messages[0].Content)

	needs, err := s.NeedsUpdate("upd", Float64Ptr(42), Int64Ptr(7))
	require.NoError(t, err)
	assert.False(t, needs)

	// updating an absent session adds it
	require.NoError(t, s.UpdateSession(CreateTestSession("fresh")))
	n, err := s.RawSessionCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_UpdateSessionFailureKeepsStoredRecord(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AddSession(CreateTestSession("keep"))
	require.NoError(t, err)

	_, err = s.db.Exec(`CREATE TRIGGER reject_boom BEFORE INSERT ON messages
		WHEN NEW.content = 'boom' BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	require.NoError(t, err)

	broken := CreateTestSessionWithMessages("keep", []ChatMessage{{Role: "user", Content: "boom"}})
	err = s.UpdateSession(broken)
	require.Error(t, err)
	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)

	n, err := s.RawSessionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetSession("keep")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Hello", got.Messages[0].Content)
}

func TestStore_DeleteSession(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AddSession(CreateTestSessionWithMessages("del", []ChatMessage{CreateRichTestMessage(1)}))
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession("del"))
	_, err = s.GetSession("del")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	var children int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM tool_invocations").Scan(&children))
	assert.Equal(t, 0, children)

	assert.ErrorIs(t, s.DeleteSession("del"), ErrSessionNotFound)
}

func TestStore_ListSessions(t *testing.T) {
	s := openTestStore(t)

	older := CreateTestSessionWithMessages("older", []ChatMessage{
		{Role: "assistant", Content: "greeting", Timestamp: "1600000000000"},
		{Role: "user", Content: "first prompt", Timestamp: "1600000001000"},
	})
	newer := CreateTestSessionWithMessages("newer", []ChatMessage{
		{Role: "user", Content: "newest prompt", Timestamp: "1700000005000"},
	})
	newer.WorkspaceName = "other"
	for _, session := range []*ChatSession{older, newer} {
		_, err := s.AddSession(session)
		require.NoError(t, err)
	}

	all, err := s.ListSessions("", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].SessionID)
	assert.Equal(t, "1700000005000", all[0].LastMessageAt)
	assert.Equal(t, "first prompt", all[1].FirstUserPrompt)
	assert.Equal(t, 2, all[1].MessageCount)

	filtered, err := s.ListSessions("other", 0, 0)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "newer", filtered[0].SessionID)

	page, err := s.ListSessions("", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "older", page[0].SessionID)
}

func TestStore_GetWorkspaces(t *testing.T) {
	s := openTestStore(t)

	a := CreateTestSession("a")
	b := CreateTestSession("b")
	b.CreatedAt = "1800000000000"
	c := CreateTestSession("c")
	c.WorkspaceName = ""
	for _, session := range []*ChatSession{a, b, c} {
		_, err := s.AddSession(session)
		require.NoError(t, err)
	}

	workspaces, err := s.GetWorkspaces()
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	assert.Equal(t, "test-workspace", workspaces[0].Name)
	assert.Equal(t, 2, workspaces[0].SessionCount)
	assert.Equal(t, "1800000000000", workspaces[0].LastActivity)
}

func TestStore_MessagesMarkdown(t *testing.T) {
	s := openTestStore(t)
	session := CreateTestSessionWithMessages("md", []ChatMessage{
		{Role: "user", Content: "first"},
		CreateRichTestMessage(2),
		{Role: "user", Content: "third"},
	})
	_, err := s.AddSession(session)
	require.NoError(t, err)

	full := MarkdownOptions{IncludeDiffs: true, IncludeToolInputs: true}
	cached, err := s.MessagesMarkdown("md", 2, 2, full)
	require.NoError(t, err)
	assert.Equal(t, MessageToMarkdown(&session.Messages[1], 2, full), cached)

	plain, err := s.MessagesMarkdown("md", 0, 0, MarkdownOptions{})
	require.NoError(t, err)
	assert.Contains(t, plain, "## Message 1: **USER**")
	assert.Contains(t, plain, "## Message 3: **USER**")
	assert.NotContains(t, plain, "```diff")

	tail, err := s.MessagesMarkdown("md", 3, 0, full)
	require.NoError(t, err)
	assert.Contains(t, tail, "third")
	assert.NotContains(t, tail, "first")
}

func TestStore_RebuildIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	for _, session := range []*ChatSession{
		snapshotSession(t, "s1", "Explain channels", "Channels connect goroutines."),
		snapshotSession(t, "s2", "Explain maps", "Maps are hash tables."),
	} {
		_, err := s.AddSession(session)
		require.NoError(t, err)
	}
	before := derivedSnapshot(t, s)

	var calls int
	stats, err := s.RebuildDerivedTables(context.Background(), func(processed, total int) {
		calls++
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)
	assert.Equal(t, RebuildStats{Total: 2, Processed: 2, Errors: 0}, stats)
	assert.Equal(t, 2, calls)
	first := derivedSnapshot(t, s)

	_, err = s.RebuildDerivedTables(context.Background(), nil)
	require.NoError(t, err)
	second := derivedSnapshot(t, s)

	assert.Equal(t, first, second)
	assert.Equal(t, before, first)

	results, err := s.Search("channels", DefaultSearchOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestStore_RebuildCountsCorruptRecords(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"ok1", "ok2", "bad"} {
		_, err := s.AddSession(snapshotSession(t, id, "question "+id, "answer "+id))
		require.NoError(t, err)
	}
	_, err := s.db.Exec("UPDATE raw_sessions SET raw_json_compressed = ? WHERE session_id = ?", []byte("not zlib"), "bad")
	require.NoError(t, err)

	stats, err := s.RebuildDerivedTables(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RebuildStats{Total: 3, Processed: 3, Errors: 1}, stats)

	summary, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SessionCount)

	raw, err := s.RawSessionCount()
	require.NoError(t, err)
	assert.Equal(t, 3, raw)
}

func TestStore_RebuildInvalidJSONIsAnError(t *testing.T) {
	s := openTestStore(t)
	session := CreateTestSession("garbled")
	session.RawJSON = []byte("{not json")
	_, err := s.AddSession(session)
	require.NoError(t, err)

	stats, err := s.RebuildDerivedTables(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RebuildStats{Total: 1, Processed: 1, Errors: 1}, stats)
}

func TestStore_RebuildEmptyPayloadIsSkipped(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AddSession(CreateTestSession("no-raw"))
	require.NoError(t, err)

	stats, err := s.RebuildDerivedTables(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RebuildStats{Total: 1, Processed: 1, Errors: 0}, stats)

	summary, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 0, summary.SessionCount)
}

func TestStore_RebuildReparsesAppendLogAndCLI(t *testing.T) {
	s := openTestStore(t)

	log := testutil.JSONLines(t,
		map[string]any{"kind": 0, "v": testutil.SnapshotSession("log", "first", "one")},
		map[string]any{"kind": 2, "k": []any{"requests"}, "v": []any{map[string]any{
			"message":  map[string]any{"text": "second"},
			"response": []any{map[string]any{"value": "two"}},
		}}},
	)
	appendLog, err := parseAppendLogSession(log, sessionMeta{SourceFile: "/tmp/log.jsonl", FallbackID: "log", FileType: FileTypeJSONL})
	require.NoError(t, err)
	appendLog.RawJSON = log

	events := testutil.JSONLines(t,
		map[string]any{"type": "session.start", "timestamp": "2024-01-01T10:00:00Z", "data": map[string]any{"sessionId": "cli-1"}},
		map[string]any{"type": "user.message", "timestamp": "2024-01-01T10:00:01Z", "data": map[string]any{"content": "hi"}},
		map[string]any{"type": "assistant.message", "timestamp": "2024-01-01T10:00:02Z", "data": map[string]any{"content": "hello"}},
	)
	cli, err := ParseCLIEvents(events, sessionMeta{SourceFile: "/tmp/cli-1/events.jsonl", FallbackID: "cli-1"}, "Greeting")
	require.NoError(t, err)
	cli.CLISummary = "Greeting"
	cli.RawJSON = events

	for _, session := range []*ChatSession{appendLog, cli} {
		_, err := s.AddSession(session)
		require.NoError(t, err)
	}

	stats, err := s.RebuildDerivedTables(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RebuildStats{Total: 2, Processed: 2, Errors: 0}, stats)

	gotLog, err := s.GetSession("log")
	require.NoError(t, err)
	assert.Len(t, gotLog.Messages, 4)

	gotCLI, err := s.GetSession("cli-1")
	require.NoError(t, err)
	assert.Equal(t, SessionTypeCLI, gotCLI.Type)
	assert.Equal(t, EditionCLI, gotCLI.Edition)
	assert.Equal(t, "Greeting", gotCLI.CustomTitle)
	assert.Len(t, gotCLI.Messages, 2)
}

func TestStore_RebuildHonorsCancellation(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AddSession(snapshotSession(t, "c1", "q", "a"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.RebuildDerivedTables(ctx, nil)
	require.Error(t, err)

	// the rebuild rolled back, so the derived rows survive
	got, err := s.GetSession("c1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
}
