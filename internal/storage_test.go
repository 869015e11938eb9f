package internal

import (
	"path/filepath"
	"testing"

	"github.com/iksnae/copilot-session/testutil"
)

func TestStorage_LoadSessions(t *testing.T) {
	db := testutil.CreateTestDB(t)
	storage := NewStorage(db)

	sessions, err := storage.LoadSessions(sessionMeta{SourceFile: "/ws/state.vscdb", FileType: FileTypeVSCDB})
	if err != nil {
		t.Fatalf("LoadSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	byID := make(map[string]*ChatSession)
	for _, s := range sessions {
		byID[s.SessionID] = s
	}
	arr, ok := byID["vscdb-1"]
	if !ok {
		t.Fatalf("missing vscdb-1 in %v", byID)
	}
	if len(arr.Messages) != 2 || arr.Messages[1].Content != "Hi there" {
		t.Errorf("unexpected messages %+v", arr.Messages)
	}
	if string(arr.RawJSON) == "" || arr.RawJSON[0] != '{' {
		t.Errorf("array elements should keep their own object as raw JSON, got %q", arr.RawJSON)
	}

	obj, ok := byID["vscdb-2"]
	if !ok {
		t.Fatal("missing vscdb-2")
	}
	if obj.FileType != FileTypeVSCDB || obj.SourceFile != "/ws/state.vscdb" {
		t.Errorf("meta not applied: %+v", obj)
	}
}

func TestStorage_LoadSessions_FallbackID(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)
	testutil.InsertItem(t, db, "interactive.sessions", `[{"requests":[{"message":{"text":"no id"}}]}]`)
	testutil.InsertItem(t, db, "copilot.chat.broken", `{not json`)

	meta := sessionMeta{SourceFile: "/ws/state.vscdb"}
	first, err := NewStorage(db).LoadSessions(meta)
	if err != nil {
		t.Fatalf("LoadSessions() error = %v", err)
	}
	second, _ := NewStorage(db).LoadSessions(meta)

	if len(first) != 1 {
		t.Fatalf("expected 1 session, got %d", len(first))
	}
	if first[0].SessionID == "" || first[0].SessionID != second[0].SessionID {
		t.Errorf("fallback ids should be stable, got %q and %q", first[0].SessionID, second[0].SessionID)
	}
	if first[0].SessionID != fallbackSessionID("/ws/state.vscdb", "interactive.sessions#0") {
		t.Errorf("unexpected fallback id %q", first[0].SessionID)
	}
}

func TestParseVSCDB(t *testing.T) {
	dbPath := filepath.Join(testutil.CreateTempDir(t), "state.vscdb")
	testutil.CreateStateDBFixture(t, dbPath, map[string]string{
		"interactive.sessions": string(testutil.JSONMarshal(t, []interface{}{testutil.SnapshotSession("db-1", "q", "a")})),
	})

	sessions := ParseVSCDB(dbPath, sessionMeta{Edition: EditionInsider})
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].SessionID != "db-1" || sessions[0].Edition != EditionInsider || sessions[0].SourceFile != dbPath {
		t.Errorf("unexpected session %+v", sessions[0])
	}

	if got := ParseVSCDB(filepath.Join(t.TempDir(), "missing.vscdb"), sessionMeta{}); got != nil {
		t.Errorf("missing database should yield nothing, got %d sessions", len(got))
	}

	foreign := filepath.Join(t.TempDir(), "other.vscdb")
	testutil.WriteFile(t, foreign, []byte("not a database"))
	if got := ParseVSCDB(foreign, sessionMeta{}); got != nil {
		t.Errorf("foreign file should yield nothing, got %d sessions", len(got))
	}
}
