package internal

import (
	"context"
	"database/sql"
	"strings"
	"unicode"
)

// Search sort orders
const (
	SortRelevance = "relevance"
	SortDate      = "date"
)

// Search match types
const (
	MatchMessage        = "message"
	MatchToolInvocation = "tool_invocation"
	MatchFileChange     = "file_change"
)

// sortClauses is the allow-list of ORDER BY clauses for the full-text stage
var sortClauses = map[string]string{
	SortRelevance: "ORDER BY rank",
	SortDate:      "ORDER BY s.created_at DESC",
}

// SearchOptions narrows a search. Role and Title override role: and title:
// filters parsed from the query string.
type SearchOptions struct {
	Limit              int
	Role               string
	Title              string
	IncludeMessages    bool
	IncludeToolCalls   bool
	IncludeFileChanges bool
	SortBy             string
}

// DefaultSearchOptions searches every category, 50 results by relevance
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Limit:              50,
		IncludeMessages:    true,
		IncludeToolCalls:   true,
		IncludeFileChanges: true,
		SortBy:             SortRelevance,
	}
}

// SearchResult is one hit. Highlighted wraps full-text matches in <mark> tags.
type SearchResult struct {
	ID            int64   `json:"id"`
	SessionID     string  `json:"session_id"`
	MessageIndex  int     `json:"message_index"`
	Role          string  `json:"role"`
	Content       string  `json:"content"`
	WorkspaceName string  `json:"workspace_name,omitempty"`
	CustomTitle   string  `json:"custom_title,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
	Edition       string  `json:"vscode_edition"`
	Highlighted   string  `json:"highlighted"`
	MatchType     string  `json:"match_type"`
	Rank          float64 `json:"rank,omitempty"`
}

// Title returns the custom title, falling back to the workspace name
func (r SearchResult) Title() string {
	if r.CustomTitle != "" {
		return r.CustomTitle
	}
	return r.WorkspaceName
}

// sessionFilter builds the AND-ed session-level conditions shared by every stage
type sessionFilter struct {
	workspace string
	title     string
	edition   string
}

func (f sessionFilter) apply(query string, args []any) (string, []any) {
	if f.title != "" {
		query += " AND (s.workspace_name LIKE ? OR s.custom_title LIKE ?)"
		args = append(args, "%"+f.title+"%", "%"+f.title+"%")
	}
	if f.workspace != "" {
		query += " AND s.workspace_name LIKE ?"
		args = append(args, "%"+f.workspace+"%")
	}
	if f.edition != "" {
		query += " AND s.vscode_edition = ?"
		args = append(args, f.edition)
	}
	return query, args
}

// Search runs the query mini-language against messages, then fills the
// remaining limit with tool-invocation and file-change substring matches.
func (s *Store) Search(query string, opts SearchOptions) ([]SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchOptions().Limit
	}
	parsed := ParseSearchQuery(strings.TrimSpace(query))
	if opts.Role != "" {
		parsed.Role = strings.ToLower(opts.Role)
	}
	if opts.Title != "" {
		parsed.Title = opts.Title
	}
	role := parsed.Role
	filter := sessionFilter{workspace: parsed.Workspace, title: parsed.Title, edition: parsed.Edition}
	order, ok := sortClauses[opts.SortBy]
	if !ok {
		order = sortClauses[SortRelevance]
	}

	var results []SearchResult
	err := s.withTx(context.Background(), "search", func(tx *sql.Tx) error {
		if opts.IncludeMessages {
			var hits []SearchResult
			var err error
			switch {
			case parsed.FTSQuery != "":
				hits, err = searchMessagesFTS(tx, sanitizeFTS(parsed.FTSQuery), role, filter, order, opts.Limit)
			case parsed.HasFilters():
				hits, err = searchMessagesFiltered(tx, role, filter, opts.Limit)
			}
			if err != nil {
				return &StorageError{Path: s.path, Op: "search", Err: err}
			}
			results = append(results, hits...)
		}

		// tool and file hits are attributed to the assistant
		terms := parsed.FTSQuery
		if terms == "" || (role != "" && role != "assistant") {
			return nil
		}
		if opts.IncludeToolCalls && len(results) < opts.Limit {
			hits, err := searchToolInvocations(tx, terms, filter, opts.Limit-len(results))
			if err != nil {
				return &StorageError{Path: s.path, Op: "search", Err: err}
			}
			results = append(results, hits...)
		}
		if opts.IncludeFileChanges && len(results) < opts.Limit {
			hits, err := searchFileChanges(tx, terms, filter, opts.Limit-len(results))
			if err != nil {
				return &StorageError{Path: s.path, Op: "search", Err: err}
			}
			results = append(results, hits...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// sanitizeFTS quotes bare terms that FTS5 would reject, such as main.go or
// foo-bar. Quoted phrases, operators and prefix terms pass through.
func sanitizeFTS(query string) string {
	tokens := queryToken.FindAllString(query, -1)
	for i, tok := range tokens {
		if strings.HasPrefix(tok, `"`) || isFTSBareword(strings.TrimSuffix(tok, "*")) {
			continue
		}
		tokens[i] = `"` + strings.ReplaceAll(tok, `"`, "") + `"`
	}
	return strings.Join(tokens, " ")
}

func isFTSBareword(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !(r == '_' || r > 0x7f || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

const searchColumns = `s.workspace_name, s.custom_title, s.created_at, s.vscode_edition`

func searchMessagesFTS(tx *sql.Tx, fts, role string, filter sessionFilter, order string, limit int) ([]SearchResult, error) {
	query := `
		SELECT m.id, m.session_id, m.message_index, m.role, m.content, ` + searchColumns + `,
		       highlight(messages_fts, 0, '<mark>', '</mark>') AS highlighted,
		       'message' AS match_type, rank
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.id
		JOIN sessions s ON m.session_id = s.session_id
		WHERE messages_fts MATCH ?`
	args := []any{fts}
	if role != "" {
		query += " AND m.role = ?"
		args = append(args, role)
	}
	query, args = filter.apply(query, args)
	query += " " + order + " LIMIT ?"
	args = append(args, limit)
	return collectResults(tx, query, args, true)
}

func searchMessagesFiltered(tx *sql.Tx, role string, filter sessionFilter, limit int) ([]SearchResult, error) {
	query := `
		SELECT m.id, m.session_id, m.message_index, m.role, m.content, ` + searchColumns + `,
		       m.content AS highlighted, 'message' AS match_type
		FROM messages m
		JOIN sessions s ON m.session_id = s.session_id
		WHERE 1=1`
	var args []any
	if role != "" {
		query += " AND m.role = ?"
		args = append(args, role)
	}
	query, args = filter.apply(query, args)
	query += " ORDER BY s.created_at DESC LIMIT ?"
	args = append(args, limit)
	return collectResults(tx, query, args, false)
}

func searchToolInvocations(tx *sql.Tx, terms string, filter sessionFilter, limit int) ([]SearchResult, error) {
	like := "%" + terms + "%"
	query := `
		SELECT t.id, m.session_id, m.message_index, 'assistant' AS role,
		       t.name || ': ' || COALESCE(t.input, '') || ' -> ' || COALESCE(t.result, '') AS content,
		       ` + searchColumns + `,
		       t.name || ': ' || COALESCE(t.input, '') AS highlighted,
		       'tool_invocation' AS match_type
		FROM tool_invocations t
		JOIN messages m ON t.message_id = m.id
		JOIN sessions s ON m.session_id = s.session_id
		WHERE (t.name LIKE ? OR t.input LIKE ? OR t.result LIKE ?)`
	args := []any{like, like, like}
	query, args = filter.apply(query, args)
	query += " LIMIT ?"
	args = append(args, limit)
	return collectResults(tx, query, args, false)
}

func searchFileChanges(tx *sql.Tx, terms string, filter sessionFilter, limit int) ([]SearchResult, error) {
	like := "%" + terms + "%"
	query := `
		SELECT f.id, m.session_id, m.message_index, 'assistant' AS role,
		       f.path || ': ' || COALESCE(f.explanation, '') AS content,
		       ` + searchColumns + `,
		       f.path AS highlighted,
		       'file_change' AS match_type
		FROM file_changes f
		JOIN messages m ON f.message_id = m.id
		JOIN sessions s ON m.session_id = s.session_id
		WHERE (f.path LIKE ? OR f.explanation LIKE ? OR f.diff LIKE ?)`
	args := []any{like, like, like}
	query, args = filter.apply(query, args)
	query += " LIMIT ?"
	args = append(args, limit)
	return collectResults(tx, query, args, false)
}

func collectResults(tx *sql.Tx, query string, args []any, ranked bool) ([]SearchResult, error) {
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var ws, title, created, edition, highlighted sql.NullString
		dest := []any{&r.ID, &r.SessionID, &r.MessageIndex, &r.Role, &r.Content,
			&ws, &title, &created, &edition, &highlighted, &r.MatchType}
		if ranked {
			dest = append(dest, &r.Rank)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r.WorkspaceName, r.CustomTitle, r.CreatedAt = ws.String, title.String, created.String
		r.Edition, r.Highlighted = edition.String, highlighted.String
		out = append(out, r)
	}
	return out, rows.Err()
}
