package internal

import (
	"testing"

	"github.com/iksnae/copilot-session/testutil"
)

func TestReplayAppendLog_SnapshotThenPush(t *testing.T) {
	data := testutil.JSONLines(t,
		map[string]interface{}{"kind": 0, "v": map[string]interface{}{
			"sessionId": "log-1",
			"requests": []interface{}{
				map[string]interface{}{"message": map[string]interface{}{"text": "first"}, "response": []interface{}{map[string]interface{}{"value": "one"}}},
			},
		}},
		map[string]interface{}{"kind": 2, "k": []interface{}{"requests"}, "v": []interface{}{
			map[string]interface{}{"message": map[string]interface{}{"text": "second"}, "response": []interface{}{map[string]interface{}{"value": "two"}}},
		}},
	)

	doc, ok := ReplayAppendLog(data)
	if !ok {
		t.Fatal("expected a document")
	}
	session, err := ExtractSession(doc, sessionMeta{FallbackID: "fallback"})
	if err != nil {
		t.Fatalf("ExtractSession() error = %v", err)
	}
	if session.SessionID != "log-1" {
		t.Errorf("SessionID = %q, want log-1", session.SessionID)
	}
	if len(session.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(session.Messages))
	}
	if session.Messages[3].Content != "two" {
		t.Errorf("last message = %q, want two", session.Messages[3].Content)
	}
}

func TestReplayAppendLog_Set(t *testing.T) {
	data := testutil.JSONLines(t,
		map[string]interface{}{"kind": 0, "v": map[string]interface{}{
			"customTitle": "old",
			"requests":    []interface{}{map[string]interface{}{"result": nil}},
		}},
		map[string]interface{}{"kind": 1, "k": []interface{}{"customTitle"}, "v": "new"},
		map[string]interface{}{"kind": 1, "k": []interface{}{"requests", 0, "result"}, "v": "done"},
	)

	doc, ok := ReplayAppendLog(data)
	if !ok {
		t.Fatal("expected a document")
	}
	if doc["customTitle"] != "new" {
		t.Errorf("customTitle = %v, want new", doc["customTitle"])
	}
	req, _ := asMap(getSlice(doc, "requests")[0])
	if req["result"] != "done" {
		t.Errorf("requests[0].result = %v, want done", req["result"])
	}
}

func TestReplayAppendLog_OperationsBeforeSnapshotAreDropped(t *testing.T) {
	data := testutil.JSONLines(t,
		map[string]interface{}{"kind": 1, "k": []interface{}{"customTitle"}, "v": "early"},
		map[string]interface{}{"kind": 0, "v": map[string]interface{}{"customTitle": "snap"}},
		map[string]interface{}{"kind": 0, "v": map[string]interface{}{"customTitle": "second snapshot"}},
	)

	doc, ok := ReplayAppendLog(data)
	if !ok {
		t.Fatal("expected a document")
	}
	if doc["customTitle"] != "snap" {
		t.Errorf("customTitle = %v, want snap", doc["customTitle"])
	}
}

func TestReplayAppendLog_SkipsBadLines(t *testing.T) {
	data := append([]byte("not json\n[1,2]\n"), testutil.JSONLines(t,
		map[string]interface{}{"kind": 0, "v": map[string]interface{}{"requests": []interface{}{}}},
		map[string]interface{}{"kind": 2, "k": []interface{}{"missing", "path"}, "v": []interface{}{1}},
		map[string]interface{}{"kind": 2, "k": []interface{}{"requests"}, "v": "not a list"},
		map[string]interface{}{"kind": 1, "k": []interface{}{"requests", 9}, "v": "out of range"},
	)...)

	doc, ok := ReplayAppendLog(data)
	if !ok {
		t.Fatal("expected a document")
	}
	if n := len(getSlice(doc, "requests")); n != 0 {
		t.Errorf("requests should be untouched, got %d entries", n)
	}
}

func TestReplayAppendLog_NoSnapshot(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"only ops", testutil.JSONLines(t, map[string]interface{}{"kind": 2, "k": []interface{}{"requests"}, "v": []interface{}{1}})},
		{"empty snapshot", testutil.JSONLines(t, map[string]interface{}{"kind": 0, "v": map[string]interface{}{}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ReplayAppendLog(tt.data); ok {
				t.Error("expected no document")
			}
		})
	}
}
