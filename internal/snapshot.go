package internal

import (
	"strings"
)

// messageStrategy names a top-level key that may hold a session's messages
type messageStrategy struct {
	name string
	key  string
}

// messageStrategies are tried in order; the first non-empty array wins
var messageStrategies = []messageStrategy{
	{name: "vscode-requests", key: "requests"},
	{name: "messages", key: "messages"},
	{name: "exchanges", key: "exchanges"},
	{name: "history", key: "history"},
}

// selectMessages returns the entries of the first matching strategy
func selectMessages(doc map[string]interface{}) (string, []interface{}) {
	for _, s := range messageStrategies {
		if entries := getSlice(doc, s.key); len(entries) > 0 {
			return s.name, entries
		}
	}
	return "", nil
}

// ExtractSession converts a decoded session document into a ChatSession.
// It returns ErrUnsupportedShape when no strategy yields any message.
func ExtractSession(doc map[string]interface{}, meta sessionMeta) (*ChatSession, error) {
	strategy, entries := selectMessages(doc)
	if strategy == "" {
		return nil, ErrUnsupportedShape
	}

	var messages []ChatMessage
	for _, e := range entries {
		entry, ok := asMap(e)
		if !ok {
			continue
		}
		if _, ok := entry["message"].(map[string]interface{}); ok {
			messages = append(messages, extractRequest(entry)...)
		} else {
			messages = append(messages, extractFlatMessage(entry))
		}
	}
	if len(messages) == 0 {
		return nil, ErrUnsupportedShape
	}

	session := &ChatSession{Type: SessionTypeVSCode, Messages: messages}
	meta.apply(session)

	session.SessionID = meta.FallbackID
	for _, key := range []string{"sessionId", "id"} {
		if v, ok := doc[key]; ok && v != nil {
			session.SessionID = stringify(v)
			break
		}
	}
	session.CreatedAt = stringify(firstPresent(doc, "createdAt", "created", "creationDate"))
	session.UpdatedAt = stringify(firstPresent(doc, "updatedAt", "lastModified", "lastMessageDate"))
	session.CustomTitle = getText(doc, "customTitle")
	session.RequesterUsername = getText(doc, "requesterUsername")
	session.ResponderUsername = getText(doc, "responderUsername")

	LogDebug("extracted session %s via %s strategy (%d messages)", session.SessionID, strategy, len(messages))
	return session, nil
}

// firstPresent returns the value of the first key present in m, if it is truthy
func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if truthy(v) {
				return v
			}
			return nil
		}
	}
	return nil
}

// extractRequest turns one request/response pair into a user and an assistant message
func extractRequest(entry map[string]interface{}) []ChatMessage {
	var out []ChatMessage

	if text := getText(getMap(entry, "message"), "text"); text != "" {
		out = append(out, ChatMessage{
			Role:      "user",
			Content:   text,
			Timestamp: getText(entry, "timestamp"),
		})
	}

	items := getSlice(entry, "response")
	if len(items) == 0 {
		return out
	}

	res := processResponseItems(items)
	res.tools = append(res.tools, parseLegacyToolInvocations(getSlice(entry, "toolInvocations"))...)
	res.cmds = append(res.cmds, parseCommandRuns(getSlice(entry, "commandRuns"))...)
	res.files = append(res.files, parseFileChanges(getSlice(entry, "fileChanges"))...)

	if res.empty() {
		return out
	}

	return append(out, ChatMessage{
		Role:            "assistant",
		Content:         strings.Join(res.content, ""),
		ToolInvocations: res.tools,
		FileChanges:     res.files,
		CommandRuns:     res.cmds,
		ContentBlocks:   MergeContentBlocks(res.blocks),
	})
}

// extractFlatMessage reads a plain {role, content} record
func extractFlatMessage(entry map[string]interface{}) ChatMessage {
	role := "unknown"
	if v, ok := entry["role"]; ok {
		role = stringify(v)
	} else if v, ok := entry["type"]; ok {
		role = stringify(v)
	}
	role = normalizeRole(role)

	var content interface{} = ""
	for _, key := range []string{"content", "text", "message"} {
		if v, ok := entry[key]; ok {
			content = v
			break
		}
	}

	files := parseFileChanges(getSlice(entry, "fileChanges"))
	if len(files) == 0 {
		files = parseFileChanges(getSlice(entry, "fileEdits"))
	}

	var timestamp interface{}
	if v, ok := entry["timestamp"]; ok {
		timestamp = v
	} else {
		timestamp = entry["createdAt"]
	}
	ts := ""
	if truthy(timestamp) {
		ts = stringify(timestamp)
	}

	return ChatMessage{
		Role:            role,
		Content:         flattenContent(content),
		Timestamp:       ts,
		ToolInvocations: parseLegacyToolInvocations(getSlice(entry, "toolInvocations")),
		FileChanges:     files,
		CommandRuns:     parseCommandRuns(getSlice(entry, "commandRuns")),
	}
}

// normalizeRole maps source role names onto user/assistant; others pass through
func normalizeRole(role string) string {
	switch role {
	case "human", "user":
		return "user"
	case "assistant", "copilot", "ai":
		return "assistant"
	}
	return role
}

// flattenContent joins list content with newlines, taking the text of object parts
func flattenContent(v interface{}) string {
	parts, ok := asSlice(v)
	if !ok {
		return stringify(v)
	}
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if m, ok := asMap(p); ok {
			if text, ok := m["text"]; ok {
				lines = append(lines, stringify(text))
				continue
			}
		}
		lines = append(lines, stringify(p))
	}
	return strings.Join(lines, "\n")
}
