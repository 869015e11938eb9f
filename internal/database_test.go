package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/copilot-session/testutil"
)

func TestOpenDatabase(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "valid database",
			setup: func(t *testing.T) string {
				dbPath := filepath.Join(testutil.CreateTempDir(t), "state.vscdb")
				testutil.CreateStateDBFixture(t, dbPath, map[string]string{"k": "v"})
				return dbPath
			},
			wantErr: false,
		},
		{
			name: "path with spaces",
			setup: func(t *testing.T) string {
				dbPath := filepath.Join(testutil.CreateTempDir(t), "my project", "state.vscdb")
				testutil.CreateStateDBFixture(t, dbPath, nil)
				return dbPath
			},
			wantErr: false,
		},
		{
			name: "non-existent database",
			setup: func(t *testing.T) string {
				return filepath.Join(testutil.CreateTempDir(t), "nonexistent.db")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := tt.setup(t)
			db, err := OpenDatabase(dbPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("OpenDatabase() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if _, statErr := os.Stat(dbPath); !os.IsNotExist(statErr) {
					t.Error("opening a missing database should not create it")
				}
				return
			}
			defer db.Close()
			if _, err := db.Exec("INSERT INTO ItemTable (key, value) VALUES ('x', 'y')"); err == nil {
				t.Error("database should be read-only")
			}
		})
	}
}

func TestQueryChatItems(t *testing.T) {
	db := testutil.CreateTestDB(t)
	testutil.InsertItem(t, db, "chat.sessions.empty", "")

	pairs, err := QueryChatItems(db)
	if err != nil {
		t.Fatalf("QueryChatItems() error = %v", err)
	}

	keys := make(map[string]bool)
	for _, p := range pairs {
		keys[p.Key] = true
	}
	if !keys["interactive.sessions"] || !keys["memento/copilot.chat.panel"] {
		t.Errorf("expected both chat keys, got %v", keys)
	}
	if keys["workbench.panel.markers"] {
		t.Error("unrelated keys should be filtered out")
	}
	if keys["chat.sessions.empty"] {
		t.Error("empty values should be skipped")
	}
}
