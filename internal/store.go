package internal

import (
	"bytes"
	"compress/zlib"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// compressionLevel is the zlib level used for raw session payloads
const compressionLevel = 6

// emptyRaw is stored when a session arrives without source bytes
var emptyRaw = []byte("{}")

// Store is the session database: compressed raw payloads plus derived,
// searchable tables that can be rebuilt from them.
type Store struct {
	db   *sql.DB
	path string
}

// SessionSummary is one row of ListSessions
type SessionSummary struct {
	SessionID       string `json:"session_id"`
	WorkspaceName   string `json:"workspace_name,omitempty"`
	WorkspacePath   string `json:"workspace_path,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
	Edition         string `json:"vscode_edition"`
	CustomTitle     string `json:"custom_title,omitempty"`
	MessageCount    int    `json:"message_count"`
	LastMessageAt   string `json:"last_message_at,omitempty"`
	FirstUserPrompt string `json:"first_user_prompt,omitempty"`
}

// Title returns the custom title, falling back to the workspace name
func (s SessionSummary) Title() string {
	if s.CustomTitle != "" {
		return s.CustomTitle
	}
	return s.WorkspaceName
}

// WorkspaceSummary is one row of GetWorkspaces
type WorkspaceSummary struct {
	Name         string `json:"workspace_name"`
	Path         string `json:"workspace_path,omitempty"`
	SessionCount int    `json:"session_count"`
	LastActivity string `json:"last_activity,omitempty"`
}

// Stats summarizes the store contents
type Stats struct {
	SessionCount   int            `json:"session_count"`
	MessageCount   int            `json:"message_count"`
	WorkspaceCount int            `json:"workspace_count"`
	Editions       map[string]int `json:"editions"`
}

// RebuildStats reports the outcome of RebuildDerivedTables
type RebuildStats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// OpenStore opens (creating if needed) the database at path and ensures the schema
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &StorageError{Path: path, Op: "open", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	// one writer; pragmas are per connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(rawSchema); err != nil {
		return errors.Wrap(err, "create raw schema")
	}
	if _, err := s.db.Exec(derivedSchema); err != nil {
		return errors.Wrap(err, "create derived schema")
	}
	return nil
}

// withTx runs fn in a transaction, committing on success and rolling back otherwise
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Path: s.path, Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Path: s.path, Op: op, Err: err}
	}
	return nil
}

// AddSession stores session in the raw and derived tables. It returns false
// without changing anything when the id is already stored.
func (s *Store) AddSession(session *ChatSession) (bool, error) {
	added := false
	err := s.withTx(context.Background(), "write", func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRow("SELECT 1 FROM raw_sessions WHERE session_id = ?", session.SessionID).Scan(&one)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return &StorageError{Path: s.path, Op: "read", Err: err}
		}
		if err := insertRaw(tx, session); err != nil {
			return &StorageError{Path: s.path, Op: "write", Err: err}
		}
		if err := insertDerived(tx, session); err != nil {
			return &StorageError{Path: s.path, Op: "write", Err: err}
		}
		added = true
		return nil
	})
	return added, err
}

// UpdateSession replaces any stored copy of session. The delete and the
// insert share one transaction, so a failed insert keeps the old record.
func (s *Store) UpdateSession(session *ChatSession) error {
	return s.withTx(context.Background(), "write", func(tx *sql.Tx) error {
		if _, err := deleteSession(tx, session.SessionID); err != nil {
			return &StorageError{Path: s.path, Op: "write", Err: err}
		}
		if err := insertRaw(tx, session); err != nil {
			return &StorageError{Path: s.path, Op: "write", Err: err}
		}
		if err := insertDerived(tx, session); err != nil {
			return &StorageError{Path: s.path, Op: "write", Err: err}
		}
		return nil
	})
}

// DeleteSession removes a session from the raw and derived tables
func (s *Store) DeleteSession(id string) error {
	return s.withTx(context.Background(), "write", func(tx *sql.Tx) error {
		n, err := deleteSession(tx, id)
		if err != nil {
			return &StorageError{Path: s.path, Op: "write", Err: err}
		}
		if n == 0 {
			return errors.Wrap(ErrSessionNotFound, id)
		}
		return nil
	})
}

// deleteSession removes id from the raw and derived tables and returns the
// number of raw rows removed
func deleteSession(tx *sql.Tx, id string) (int64, error) {
	res, err := tx.Exec("DELETE FROM raw_sessions WHERE session_id = ?", id)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE session_id = ?", id); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// NeedsUpdate reports whether the stored fingerprint for id differs from
// (mtime, size). Absent rows and rows with a null fingerprint need an update.
func (s *Store) NeedsUpdate(id string, mtime *float64, size *int64) (bool, error) {
	var stored sql.NullFloat64
	var storedSize sql.NullInt64
	err := s.db.QueryRow(
		"SELECT source_file_mtime, source_file_size FROM raw_sessions WHERE session_id = ?", id,
	).Scan(&stored, &storedSize)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	if !stored.Valid || !storedSize.Valid || mtime == nil || size == nil {
		return true, nil
	}
	return stored.Float64 != *mtime || storedSize.Int64 != *size, nil
}

// GetSession loads a session from the derived tables. It returns
// ErrSessionNotFound when the id is unknown.
func (s *Store) GetSession(id string) (*ChatSession, error) {
	var session *ChatSession
	err := s.withTx(context.Background(), "read", func(tx *sql.Tx) error {
		var err error
		session, err = scanSession(tx.QueryRow(`
			SELECT session_id, workspace_name, workspace_path, repository_url, created_at, updated_at,
			       source_file, vscode_edition, custom_title, requester_username, responder_username,
			       source_file_mtime, source_file_size, type
			FROM sessions WHERE session_id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrap(ErrSessionNotFound, id)
		}
		if err != nil {
			return &StorageError{Path: s.path, Op: "read", Err: err}
		}
		refs, err := loadMessages(tx, id, 0, -1)
		if err != nil {
			return &StorageError{Path: s.path, Op: "read", Err: err}
		}
		for _, ref := range refs {
			session.Messages = append(session.Messages, ref.msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// MessagesMarkdown renders messages start..end (1-based, inclusive; 0 means
// unbounded) of a session. The cached rendering is used when opts asks for
// diffs and tool inputs without thinking.
func (s *Store) MessagesMarkdown(id string, start, end int, opts MarkdownOptions) (string, error) {
	lo := 0
	if start > 0 {
		lo = start - 1
	}
	hi := -1
	if end > 0 {
		hi = end - 1
	}
	useCache := opts.IncludeDiffs && opts.IncludeToolInputs && !opts.IncludeThinking

	var parts []string
	err := s.withTx(context.Background(), "read", func(tx *sql.Tx) error {
		refs, err := loadMessages(tx, id, lo, hi)
		if err != nil {
			return &StorageError{Path: s.path, Op: "read", Err: err}
		}
		for _, ref := range refs {
			if useCache {
				if ref.msg.CachedMarkdown != "" {
					parts = append(parts, ref.msg.CachedMarkdown)
				}
				continue
			}
			parts = append(parts, MessageToMarkdown(&ref.msg, ref.index+1, opts))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(parts, "\n"), nil
}

// ListSessions lists sessions, most recently active first. limit <= 0 means all.
func (s *Store) ListSessions(workspace string, limit, offset int) ([]SessionSummary, error) {
	query := `
		SELECT s.session_id, s.workspace_name, s.workspace_path, s.created_at, s.updated_at,
		       s.vscode_edition, s.custom_title,
		       COUNT(m.id) AS message_count,
		       MAX(m.timestamp) AS last_message_at,
		       (SELECT content FROM messages m2
		        WHERE m2.session_id = s.session_id AND m2.role = 'user'
		        ORDER BY m2.message_index LIMIT 1) AS first_user_prompt
		FROM sessions s
		LEFT JOIN messages m ON s.session_id = m.session_id`
	var args []any
	if workspace != "" {
		query += " WHERE s.workspace_name = ?"
		args = append(args, workspace)
	}
	query += " GROUP BY s.session_id ORDER BY last_message_at DESC, s.created_at DESC"
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	var out []SessionSummary
	err := s.withTx(context.Background(), "read", func(tx *sql.Tx) error {
		rows, err := tx.Query(query, args...)
		if err != nil {
			return &StorageError{Path: s.path, Op: "read", Err: err}
		}
		defer rows.Close()
		for rows.Next() {
			var sum SessionSummary
			var ws, wp, created, updated, edition, title, last, prompt sql.NullString
			if err := rows.Scan(&sum.SessionID, &ws, &wp, &created, &updated, &edition, &title,
				&sum.MessageCount, &last, &prompt); err != nil {
				return &StorageError{Path: s.path, Op: "read", Err: err}
			}
			sum.WorkspaceName, sum.WorkspacePath = ws.String, wp.String
			sum.CreatedAt, sum.UpdatedAt = created.String, updated.String
			sum.Edition, sum.CustomTitle = edition.String, title.String
			sum.LastMessageAt, sum.FirstUserPrompt = last.String, prompt.String
			out = append(out, sum)
		}
		return rows.Err()
	})
	return out, err
}

// GetWorkspaces lists the distinct workspaces with their session counts
func (s *Store) GetWorkspaces() ([]WorkspaceSummary, error) {
	var out []WorkspaceSummary
	err := s.withTx(context.Background(), "read", func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT workspace_name, workspace_path, COUNT(*) AS session_count, MAX(created_at) AS last_activity
			FROM sessions
			WHERE workspace_name IS NOT NULL
			GROUP BY workspace_name, workspace_path
			ORDER BY last_activity DESC`)
		if err != nil {
			return &StorageError{Path: s.path, Op: "read", Err: err}
		}
		defer rows.Close()
		for rows.Next() {
			var ws WorkspaceSummary
			var path, last sql.NullString
			if err := rows.Scan(&ws.Name, &path, &ws.SessionCount, &last); err != nil {
				return &StorageError{Path: s.path, Op: "read", Err: err}
			}
			ws.Path, ws.LastActivity = path.String, last.String
			out = append(out, ws)
		}
		return rows.Err()
	})
	return out, err
}

// GetStats counts sessions, messages and workspaces, and sessions per edition
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{Editions: make(map[string]int)}
	err := s.withTx(context.Background(), "read", func(tx *sql.Tx) error {
		counts := []struct {
			query string
			dst   *int
		}{
			{"SELECT COUNT(*) FROM sessions", &stats.SessionCount},
			{"SELECT COUNT(*) FROM messages", &stats.MessageCount},
			{"SELECT COUNT(DISTINCT workspace_name) FROM sessions", &stats.WorkspaceCount},
		}
		for _, c := range counts {
			if err := tx.QueryRow(c.query).Scan(c.dst); err != nil {
				return &StorageError{Path: s.path, Op: "read", Err: err}
			}
		}

		rows, err := tx.Query("SELECT vscode_edition, COUNT(*) FROM sessions GROUP BY vscode_edition")
		if err != nil {
			return &StorageError{Path: s.path, Op: "read", Err: err}
		}
		defer rows.Close()
		for rows.Next() {
			var edition sql.NullString
			var n int
			if err := rows.Scan(&edition, &n); err != nil {
				return &StorageError{Path: s.path, Op: "read", Err: err}
			}
			stats.Editions[edition.String] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// RawSessionCount returns the number of raw records
func (s *Store) RawSessionCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM raw_sessions").Scan(&n); err != nil {
		return 0, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	return n, nil
}

// RawJSON returns the decompressed source payload of a session
func (s *Store) RawJSON(id string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRow("SELECT raw_json_compressed FROM raw_sessions WHERE session_id = ?", id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	data, err := decompress(blob)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	return data, nil
}

// RebuildDerivedTables drops and recreates every derived table, then
// re-parses each raw record into them. A record that fails to decompress or
// decode is counted as an error and skipped. progress may be nil.
func (s *Store) RebuildDerivedTables(ctx context.Context, progress func(processed, total int)) (RebuildStats, error) {
	var stats RebuildStats
	err := s.withTx(ctx, "rebuild", func(tx *sql.Tx) error {
		if err := recreateDerived(tx); err != nil {
			return &StorageError{Path: s.path, Op: "rebuild", Err: err}
		}

		records, err := loadRawRecords(tx)
		if err != nil {
			return &StorageError{Path: s.path, Op: "rebuild", Err: err}
		}
		stats.Total = len(records)

		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			session, err := rec.session()
			if err == nil && session != nil {
				err = insertSavepoint(tx, session)
			}
			if err != nil {
				stats.Errors++
				Logger().Debug().Err(&RebuildError{SessionID: rec.sessionID, Err: err}).Msg("rebuild skipped record")
			}
			stats.Processed++
			if progress != nil {
				progress(stats.Processed, stats.Total)
			}
		}
		return nil
	})
	if err != nil {
		return RebuildStats{}, err
	}
	LogInfo("rebuilt derived tables: %d records, %d errors", stats.Total, stats.Errors)
	return stats, nil
}

// insertSavepoint inserts one rebuilt session so that a failure leaves no partial rows
func insertSavepoint(tx *sql.Tx, session *ChatSession) error {
	if _, err := tx.Exec("SAVEPOINT rebuild_record"); err != nil {
		return err
	}
	if err := insertDerived(tx, session); err != nil {
		_, _ = tx.Exec("ROLLBACK TO rebuild_record")
		_, _ = tx.Exec("RELEASE rebuild_record")
		return err
	}
	_, err := tx.Exec("RELEASE rebuild_record")
	return err
}

func recreateDerived(tx *sql.Tx) error {
	for _, table := range derivedTables {
		if !validIdentifier(table) {
			return errors.Errorf("invalid table name %q", table)
		}
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return errors.Wrapf(err, "drop %s", table)
		}
	}
	for _, trigger := range derivedTriggers {
		if !validIdentifier(trigger) {
			return errors.Errorf("invalid trigger name %q", trigger)
		}
		if _, err := tx.Exec("DROP TRIGGER IF EXISTS " + trigger); err != nil {
			return errors.Wrapf(err, "drop %s", trigger)
		}
	}
	if _, err := tx.Exec(derivedSchema); err != nil {
		return errors.Wrap(err, "create derived schema")
	}
	return nil
}

// rawRecord is one row of raw_sessions
type rawRecord struct {
	sessionID     string
	blob          []byte
	workspaceName string
	workspacePath string
	sourceFile    string
	edition       string
	mtime         *float64
	size          *int64
	sessionType   string
	fileType      string
	repositoryURL string
	cliSummary    string
}

func loadRawRecords(tx *sql.Tx) ([]rawRecord, error) {
	rows, err := tx.Query(`
		SELECT session_id, raw_json_compressed, workspace_name, workspace_path, source_file,
		       vscode_edition, source_file_mtime, source_file_size, session_type, file_type,
		       repository_url, cli_summary
		FROM raw_sessions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []rawRecord
	for rows.Next() {
		var rec rawRecord
		var ws, wp, src, edition, stype, ftype, repo, summary sql.NullString
		var mtime sql.NullFloat64
		var size sql.NullInt64
		if err := rows.Scan(&rec.sessionID, &rec.blob, &ws, &wp, &src, &edition, &mtime, &size,
			&stype, &ftype, &repo, &summary); err != nil {
			return nil, err
		}
		rec.workspaceName, rec.workspacePath, rec.sourceFile = ws.String, wp.String, src.String
		rec.edition, rec.sessionType, rec.fileType = edition.String, stype.String, ftype.String
		rec.repositoryURL, rec.cliSummary = repo.String, summary.String
		if mtime.Valid {
			rec.mtime = Float64Ptr(mtime.Float64)
		}
		if size.Valid {
			rec.size = Int64Ptr(size.Int64)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// session re-parses the record with the parser that produced it. A payload
// that carries no messages yields (nil, nil).
func (rec rawRecord) session() (*ChatSession, error) {
	data, err := decompress(rec.blob)
	if err != nil {
		return nil, errors.Wrap(err, "decompress")
	}
	if bytes.Equal(bytes.TrimSpace(data), emptyRaw) {
		return nil, nil
	}

	meta := sessionMeta{
		SourceFile:    rec.sourceFile,
		FallbackID:    rec.sessionID,
		Edition:       rec.edition,
		FileType:      rec.fileType,
		WorkspaceName: rec.workspaceName,
		WorkspacePath: rec.workspacePath,
		Mtime:         rec.mtime,
		Size:          rec.size,
	}

	var session *ChatSession
	switch {
	case rec.sessionType == SessionTypeCLI:
		session, err = ParseCLIEvents(data, meta, rec.cliSummary)
		if err != nil {
			return nil, err
		}
		session.CLISummary = rec.cliSummary
	case rec.fileType == FileTypeJSONL:
		doc, ok := ReplayAppendLog(data)
		if !ok {
			return nil, &ParseError{Source: FileTypeJSONL, Key: rec.sessionID, Err: ErrUnsupportedShape}
		}
		session, err = ExtractSession(doc, meta)
	default:
		doc, derr := decodeJSONObject(data)
		if derr != nil {
			return nil, &ParseError{Source: FileTypeJSON, Key: rec.sessionID, Err: derr}
		}
		session, err = ExtractSession(doc, meta)
	}
	if errors.Is(err, ErrUnsupportedShape) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	session.SessionID = rec.sessionID
	session.SourceFileMtime = rec.mtime
	session.SourceFileSize = rec.size
	if session.RepositoryURL == "" {
		session.RepositoryURL = rec.repositoryURL
	}
	session.RawJSON = data
	return session, nil
}

func insertRaw(tx *sql.Tx, session *ChatSession) error {
	raw := session.RawJSON
	if len(raw) == 0 {
		raw = emptyRaw
	}
	blob, err := compress(raw)
	if err != nil {
		return err
	}
	sessionType := session.Type
	if sessionType == "" {
		sessionType = SessionTypeVSCode
	}
	fileType := session.FileType
	if fileType == "" {
		fileType = FileTypeJSON
	}
	_, err = tx.Exec(`
		INSERT INTO raw_sessions
		(session_id, raw_json_compressed, workspace_name, workspace_path, source_file, vscode_edition,
		 source_file_mtime, source_file_size, session_type, file_type, repository_url, cli_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID, blob, nullable(session.WorkspaceName), nullable(session.WorkspacePath),
		nullable(session.SourceFile), editionOrDefault(session.Edition),
		session.SourceFileMtime, session.SourceFileSize, sessionType, fileType,
		nullable(session.RepositoryURL), nullable(session.CLISummary),
	)
	return err
}

func insertDerived(tx *sql.Tx, session *ChatSession) error {
	sessionType := session.Type
	if sessionType == "" {
		sessionType = SessionTypeVSCode
	}
	_, err := tx.Exec(`
		INSERT INTO sessions
		(session_id, workspace_name, workspace_path, repository_url, created_at, updated_at, source_file,
		 vscode_edition, custom_title, requester_username, responder_username,
		 source_file_mtime, source_file_size, type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID, nullable(session.WorkspaceName), nullable(session.WorkspacePath),
		nullable(session.RepositoryURL), nullable(session.CreatedAt), nullable(session.UpdatedAt),
		nullable(session.SourceFile), editionOrDefault(session.Edition), nullable(session.CustomTitle),
		nullable(session.RequesterUsername), nullable(session.ResponderUsername),
		session.SourceFileMtime, session.SourceFileSize, sessionType,
	)
	if err != nil {
		return errors.Wrap(err, "insert session")
	}

	full := MarkdownOptions{IncludeDiffs: true, IncludeToolInputs: true}
	for idx := range session.Messages {
		msg := &session.Messages[idx]
		res, err := tx.Exec(`
			INSERT INTO messages (session_id, message_index, role, content, timestamp, cached_markdown)
			VALUES (?, ?, ?, ?, ?, ?)`,
			session.SessionID, idx, msg.Role, msg.Content, nullable(msg.Timestamp),
			MessageToMarkdown(msg, idx+1, full),
		)
		if err != nil {
			return errors.Wrapf(err, "insert message %d", idx)
		}
		messageID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertMessageChildren(tx, messageID, msg); err != nil {
			return errors.Wrapf(err, "insert message %d", idx)
		}
	}
	return nil
}

func insertMessageChildren(tx *sql.Tx, messageID int64, msg *ChatMessage) error {
	for _, t := range msg.ToolInvocations {
		if _, err := tx.Exec(`
			INSERT INTO tool_invocations
			(message_id, name, input, result, status, start_time, end_time, source_type, invocation_message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			messageID, t.Name, nullable(t.Input), nullable(t.Result), nullable(t.Status),
			t.StartTime, t.EndTime, nullable(t.SourceType), nullable(t.InvocationMessage),
		); err != nil {
			return err
		}
	}
	for _, f := range msg.FileChanges {
		if _, err := tx.Exec(`
			INSERT INTO file_changes (message_id, path, diff, content, explanation, language_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			messageID, f.Path, nullable(f.Diff), nullable(f.Content), nullable(f.Explanation), nullable(f.LanguageID),
		); err != nil {
			return err
		}
	}
	for _, c := range msg.CommandRuns {
		if _, err := tx.Exec(`
			INSERT INTO command_runs (message_id, command, title, result, status, output, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			messageID, c.Command, nullable(c.Title), nullable(c.Result), nullable(c.Status),
			nullable(c.Output), c.Timestamp,
		); err != nil {
			return err
		}
	}
	for i, b := range msg.ContentBlocks {
		if _, err := tx.Exec(`
			INSERT INTO content_blocks (message_id, block_index, kind, content, description)
			VALUES (?, ?, ?, ?, ?)`,
			messageID, i, b.Kind, b.Content, nullable(b.Description),
		); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*ChatSession, error) {
	var session ChatSession
	var ws, wp, repo, created, updated, src, edition, title, requester, responder, typ sql.NullString
	var mtime sql.NullFloat64
	var size sql.NullInt64
	if err := row.Scan(&session.SessionID, &ws, &wp, &repo, &created, &updated, &src, &edition,
		&title, &requester, &responder, &mtime, &size, &typ); err != nil {
		return nil, err
	}
	session.WorkspaceName, session.WorkspacePath, session.RepositoryURL = ws.String, wp.String, repo.String
	session.CreatedAt, session.UpdatedAt, session.SourceFile = created.String, updated.String, src.String
	session.Edition, session.CustomTitle = edition.String, title.String
	session.RequesterUsername, session.ResponderUsername = requester.String, responder.String
	session.Type = typ.String
	if session.Type == "" {
		session.Type = SessionTypeVSCode
	}
	if mtime.Valid {
		session.SourceFileMtime = Float64Ptr(mtime.Float64)
	}
	if size.Valid {
		session.SourceFileSize = Int64Ptr(size.Int64)
	}
	return &session, nil
}

type messageRef struct {
	id    int64
	index int
	msg   ChatMessage
}

// loadMessages reads messages lo..hi (0-based, inclusive; hi < 0 is unbounded) with their children
func loadMessages(tx *sql.Tx, sessionID string, lo, hi int) ([]messageRef, error) {
	query := `SELECT id, message_index, role, content, timestamp, cached_markdown
		FROM messages WHERE session_id = ? AND message_index >= ?`
	args := []any{sessionID, lo}
	if hi >= 0 {
		query += " AND message_index <= ?"
		args = append(args, hi)
	}
	query += " ORDER BY message_index"

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	var refs []messageRef
	for rows.Next() {
		var ref messageRef
		var ts, md sql.NullString
		if err := rows.Scan(&ref.id, &ref.index, &ref.msg.Role, &ref.msg.Content, &ts, &md); err != nil {
			rows.Close()
			return nil, err
		}
		ref.msg.Timestamp, ref.msg.CachedMarkdown = ts.String, md.String
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range refs {
		if err := loadMessageChildren(tx, refs[i].id, &refs[i].msg); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func loadMessageChildren(tx *sql.Tx, messageID int64, msg *ChatMessage) error {
	err := queryEach(tx, `SELECT name, input, result, status, start_time, end_time, source_type, invocation_message
		FROM tool_invocations WHERE message_id = ? ORDER BY id`, messageID, func(r rowScanner) error {
		var t ToolInvocation
		var input, result, status, source, invocation sql.NullString
		var start, end sql.NullInt64
		if err := r.Scan(&t.Name, &input, &result, &status, &start, &end, &source, &invocation); err != nil {
			return err
		}
		t.Input, t.Result, t.Status = input.String, result.String, status.String
		t.SourceType, t.InvocationMessage = source.String, invocation.String
		t.StartTime, t.EndTime = nullInt64Ptr(start), nullInt64Ptr(end)
		msg.ToolInvocations = append(msg.ToolInvocations, t)
		return nil
	})
	if err != nil {
		return err
	}

	err = queryEach(tx, `SELECT path, diff, content, explanation, language_id
		FROM file_changes WHERE message_id = ? ORDER BY id`, messageID, func(r rowScanner) error {
		var f FileChange
		var diff, content, explanation, lang sql.NullString
		if err := r.Scan(&f.Path, &diff, &content, &explanation, &lang); err != nil {
			return err
		}
		f.Diff, f.Content, f.Explanation, f.LanguageID = diff.String, content.String, explanation.String, lang.String
		msg.FileChanges = append(msg.FileChanges, f)
		return nil
	})
	if err != nil {
		return err
	}

	err = queryEach(tx, `SELECT command, title, result, status, output, timestamp
		FROM command_runs WHERE message_id = ? ORDER BY id`, messageID, func(r rowScanner) error {
		var c CommandRun
		var title, result, status, output sql.NullString
		var ts sql.NullInt64
		if err := r.Scan(&c.Command, &title, &result, &status, &output, &ts); err != nil {
			return err
		}
		c.Title, c.Result, c.Status, c.Output = title.String, result.String, status.String, output.String
		c.Timestamp = nullInt64Ptr(ts)
		msg.CommandRuns = append(msg.CommandRuns, c)
		return nil
	})
	if err != nil {
		return err
	}

	return queryEach(tx, `SELECT kind, content, description
		FROM content_blocks WHERE message_id = ? ORDER BY block_index`, messageID, func(r rowScanner) error {
		var b ContentBlock
		var desc sql.NullString
		if err := r.Scan(&b.Kind, &b.Content, &desc); err != nil {
			return err
		}
		b.Description = desc.String
		msg.ContentBlocks = append(msg.ContentBlocks, b)
		return nil
	})
}

func queryEach(tx *sql.Tx, query string, arg any, fn func(rowScanner) error) error {
	rows, err := tx.Query(query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, compressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(blob []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// nullable maps "" to SQL NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return Int64Ptr(v.Int64)
}

func editionOrDefault(edition string) string {
	if edition == "" {
		return EditionStable
	}
	return edition
}
