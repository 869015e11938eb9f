package internal

// rawSchema holds the source of truth. A rebuild never touches it.
const rawSchema = `
CREATE TABLE IF NOT EXISTS raw_sessions (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id          TEXT UNIQUE NOT NULL,
	raw_json_compressed BLOB NOT NULL,
	workspace_name      TEXT,
	workspace_path      TEXT,
	source_file         TEXT,
	vscode_edition      TEXT DEFAULT 'stable',
	source_file_mtime   REAL,
	source_file_size    INTEGER,
	session_type        TEXT DEFAULT 'vscode',
	file_type           TEXT DEFAULT 'json',
	repository_url      TEXT,
	cli_summary         TEXT,
	imported_at         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_raw_sessions_workspace ON raw_sessions(workspace_name);
`

// derivedSchema can be dropped and recreated from raw_sessions at any time
const derivedSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id         TEXT UNIQUE NOT NULL,
	workspace_name     TEXT,
	workspace_path     TEXT,
	repository_url     TEXT,
	created_at         TEXT,
	updated_at         TEXT,
	source_file        TEXT,
	vscode_edition     TEXT DEFAULT 'stable',
	custom_title       TEXT,
	requester_username TEXT,
	responder_username TEXT,
	imported_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	source_file_mtime  REAL,
	source_file_size   INTEGER,
	type               TEXT DEFAULT 'vscode'
);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT NOT NULL,
	message_index   INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	timestamp       TEXT,
	cached_markdown TEXT,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tool_invocations (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id         INTEGER NOT NULL,
	name               TEXT NOT NULL,
	input              TEXT,
	result             TEXT,
	status             TEXT,
	start_time         INTEGER,
	end_time           INTEGER,
	source_type        TEXT,
	invocation_message TEXT,
	FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS file_changes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id  INTEGER NOT NULL,
	path        TEXT NOT NULL,
	diff        TEXT,
	content     TEXT,
	explanation TEXT,
	language_id TEXT,
	FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS command_runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL,
	command    TEXT NOT NULL,
	title      TEXT,
	result     TEXT,
	status     TEXT,
	output     TEXT,
	timestamp  INTEGER,
	FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS content_blocks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id  INTEGER NOT NULL,
	block_index INTEGER NOT NULL,
	kind        TEXT NOT NULL DEFAULT 'text',
	content     TEXT NOT NULL,
	description TEXT,
	FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_workspace ON sessions(workspace_name);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
CREATE INDEX IF NOT EXISTS idx_messages_role ON messages(role);
CREATE INDEX IF NOT EXISTS idx_tool_invocations_message ON tool_invocations(message_id);
CREATE INDEX IF NOT EXISTS idx_file_changes_message ON file_changes(message_id);
CREATE INDEX IF NOT EXISTS idx_command_runs_message ON command_runs(message_id);
CREATE INDEX IF NOT EXISTS idx_content_blocks_message ON content_blocks(message_id);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content,
	content='messages',
	content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.id, old.content);
	INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;
`

// derivedTables is the drop order for a rebuild: the FTS table first, then
// children before parents.
var derivedTables = []string{
	"messages_fts",
	"content_blocks",
	"command_runs",
	"file_changes",
	"tool_invocations",
	"messages",
	"sessions",
}

var derivedTriggers = []string{"messages_ai", "messages_ad", "messages_au"}

// validIdentifier reports whether name is safe to splice into DDL
func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
