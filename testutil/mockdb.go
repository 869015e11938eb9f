package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

const itemTableSQL = `
CREATE TABLE IF NOT EXISTS ItemTable (
	key TEXT UNIQUE ON CONFLICT REPLACE,
	value BLOB
)`

// CreateInMemoryDB creates an in-memory SQLite database with an editor ItemTable
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// each pooled connection would get its own empty :memory: database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(itemTableSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create ItemTable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateTestDB creates an in-memory state database holding two chat rows and
// one unrelated row
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	items := []struct {
		key   string
		value string
	}{
		{
			key:   "interactive.sessions",
			value: `[{"sessionId":"vscdb-1","requests":[{"message":{"text":"Hello"},"response":[{"value":"Hi there"}]}]}]`,
		},
		{
			key:   "memento/copilot.chat.panel",
			value: `{"sessionId":"vscdb-2","messages":[{"role":"user","content":"How are you?"}]}`,
		},
		{
			key:   "workbench.panel.markers",
			value: `{"collapsed":true}`,
		},
	}
	for _, item := range items {
		InsertItem(t, db, item.key, item.value)
	}
	return db
}

// InsertItem inserts a key/value row into ItemTable
func InsertItem(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()
	if _, err := db.Exec("INSERT INTO ItemTable (key, value) VALUES (?, ?)", key, value); err != nil {
		t.Fatalf("Failed to insert item %s: %v", key, err)
	}
}
