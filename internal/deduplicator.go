package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Deduplicator drops sessions whose id was already produced during one scan.
// A state database and a chatSessions file can both carry the same session.
type Deduplicator struct {
	seen map[string]string
}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]string)}
}

// Add records session and reports whether it is the first with its id
func (d *Deduplicator) Add(session *ChatSession) bool {
	hash := d.hashSessionContent(session)
	if prev, ok := d.seen[session.SessionID]; ok {
		if prev != hash {
			LogDebug("session %s seen again in %s with different content, keeping first", session.SessionID, session.SourceFile)
		}
		return false
	}
	d.seen[session.SessionID] = hash
	return true
}

// Deduplicate removes duplicate sessions, keeping the first of each id
func (d *Deduplicator) Deduplicate(sessions []*ChatSession) []*ChatSession {
	var unique []*ChatSession
	for _, session := range sessions {
		if d.Add(session) {
			unique = append(unique, session)
		}
	}
	return unique
}

// hashSessionContent creates a content-based hash for a session
func (d *Deduplicator) hashSessionContent(session *ChatSession) string {
	h := sha256.New()

	for _, msg := range session.Messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte(msg.Content))
		h.Write([]byte(msg.Timestamp))
	}

	return hex.EncodeToString(h.Sum(nil))
}
