package internal

import (
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
)

// Storage reads chat sessions out of an editor key-value state database
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance
func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// LoadSessions extracts every session stored under a chat-related key.
// Object values are one session; array values hold one session per object element.
func (s *Storage) LoadSessions(meta sessionMeta) ([]*ChatSession, error) {
	pairs, err := QueryChatItems(s.db)
	if err != nil {
		return nil, &StorageError{Path: meta.SourceFile, Op: "read", Err: err}
	}

	var sessions []*ChatSession
	for _, pair := range pairs {
		v, err := decodeJSON(pair.Value)
		if err != nil {
			LogDebug("skipping %s in %s: %v", pair.Key, meta.SourceFile, err)
			continue
		}

		switch data := v.(type) {
		case map[string]interface{}:
			if session := s.extract(data, pair.Value, pair.Key, meta); session != nil {
				sessions = append(sessions, session)
			}
		case []interface{}:
			for i, item := range data {
				obj, ok := asMap(item)
				if !ok {
					continue
				}
				raw, err := json.Marshal(obj)
				if err != nil {
					continue
				}
				key := pair.Key + "#" + strconv.Itoa(i)
				if session := s.extract(obj, raw, key, meta); session != nil {
					sessions = append(sessions, session)
				}
			}
		}
	}

	return sessions, nil
}

func (s *Storage) extract(doc map[string]interface{}, raw []byte, key string, meta sessionMeta) *ChatSession {
	meta.FallbackID = fallbackSessionID(meta.SourceFile, key)
	session, err := ExtractSession(doc, meta)
	if err != nil {
		return nil
	}
	session.RawJSON = raw
	return session
}

// fallbackSessionID derives a stable id for rows that carry none of their own
func fallbackSessionID(sourceFile, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("vscdb://"+sourceFile+"/"+key)).String()
}

// ParseVSCDB opens a state database read-only and extracts its sessions.
// An unreadable or foreign database yields no sessions.
func ParseVSCDB(path string, meta sessionMeta) []*ChatSession {
	db, err := OpenDatabase(path)
	if err != nil {
		LogDebug("cannot open %s: %v", path, err)
		return nil
	}
	defer db.Close()

	meta.SourceFile = path
	meta.FileType = FileTypeVSCDB
	sessions, err := NewStorage(db).LoadSessions(meta)
	if err != nil {
		LogDebug("%v", err)
		return nil
	}
	return sessions
}
