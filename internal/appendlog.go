package internal

import (
	"bytes"
	"encoding/json"
)

// Append-log entry kinds
const (
	opSnapshot = 0
	opSet      = 1
	opPush     = 2
)

// ReplayAppendLog rebuilds a session document from a JSONL append-log.
// Entries apply strictly in file order: the first snapshot starts the
// document and set/push operations before it are dropped. Malformed lines
// and paths that do not resolve are skipped. ok is false without a snapshot.
func ReplayAppendLog(data []byte) (map[string]interface{}, bool) {
	var doc map[string]interface{}
	skipped := 0

	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		v, err := decodeJSON(line)
		if err != nil {
			skipped++
			continue
		}
		entry, ok := asMap(v)
		if !ok {
			skipped++
			continue
		}

		kind, ok := intValue(entry["kind"])
		if !ok {
			continue
		}

		switch kind {
		case opSnapshot:
			if doc != nil {
				continue
			}
			if snap, ok := asMap(entry["v"]); ok && len(snap) > 0 {
				doc = snap
			}
		case opSet, opPush:
			if doc == nil {
				skipped++
				continue
			}
			path, _ := asSlice(entry["k"])
			if !applyOperation(doc, kind, path, entry["v"]) {
				skipped++
			}
		}
	}

	if skipped > 0 {
		LogDebug("append-log replay skipped %d entries", skipped)
	}
	return doc, doc != nil
}

// applyOperation applies one set or push at path; it reports whether anything changed
func applyOperation(doc map[string]interface{}, kind int64, path []interface{}, value interface{}) bool {
	if len(path) == 0 {
		return false
	}

	var target interface{} = doc
	for _, seg := range path[:len(path)-1] {
		next, ok := descend(target, seg)
		if !ok {
			return false
		}
		target = next
	}

	last := path[len(path)-1]
	switch kind {
	case opSet:
		switch t := target.(type) {
		case map[string]interface{}:
			key, ok := last.(string)
			if !ok {
				return false
			}
			t[key] = value
			return true
		case []interface{}:
			idx, ok := indexIn(last, len(t))
			if !ok {
				return false
			}
			t[idx] = value
			return true
		}
	case opPush:
		items, ok := asSlice(value)
		if !ok {
			return false
		}
		switch t := target.(type) {
		case map[string]interface{}:
			key, ok := last.(string)
			if !ok {
				return false
			}
			arr, ok := asSlice(t[key])
			if !ok {
				return false
			}
			t[key] = append(arr, items...)
			return true
		case []interface{}:
			idx, ok := indexIn(last, len(t))
			if !ok {
				return false
			}
			arr, ok := asSlice(t[idx])
			if !ok {
				return false
			}
			t[idx] = append(arr, items...)
			return true
		}
	}
	return false
}

// descend follows one path segment: string keys into objects, indexes into arrays
func descend(target interface{}, seg interface{}) (interface{}, bool) {
	switch t := target.(type) {
	case map[string]interface{}:
		key, ok := seg.(string)
		if !ok {
			return nil, false
		}
		next, ok := t[key]
		if !ok || next == nil {
			return nil, false
		}
		return next, true
	case []interface{}:
		idx, ok := indexIn(seg, len(t))
		if !ok {
			return nil, false
		}
		return t[idx], t[idx] != nil
	}
	return nil, false
}

func indexIn(seg interface{}, n int) (int, bool) {
	i, ok := intValue(seg)
	if !ok || i < 0 || i >= int64(n) {
		return 0, false
	}
	return int(i), true
}

// intValue returns v as an integer when it is an integral JSON number
func intValue(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	case float64:
		if t == float64(int64(t)) {
			return int64(t), true
		}
	case int:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}
