package internal

import (
	"fmt"
)

// CreateTestSession creates a two-message session for testing
func CreateTestSession(id string) *ChatSession {
	return &ChatSession{
		SessionID:     id,
		WorkspaceName: "test-workspace",
		WorkspacePath: "/home/dev/test-workspace",
		CreatedAt:     "1700000000000",
		UpdatedAt:     "1700000060000",
		SourceFile:    "/tmp/" + id + ".json",
		Edition:       EditionStable,
		Type:          SessionTypeVSCode,
		FileType:      FileTypeJSON,
		Messages: []ChatMessage{
			{Role: "user", Content: "Hello", Timestamp: "1700000000000"},
			{Role: "assistant", Content: "Hi there!", Timestamp: "1700000001000"},
		},
	}
}

// CreateTestSessionWithMessages creates a test session with custom messages
func CreateTestSessionWithMessages(id string, messages []ChatMessage) *ChatSession {
	session := CreateTestSession(id)
	session.Messages = messages
	return session
}

// CreateRichTestMessage creates an assistant message carrying every child record kind
func CreateRichTestMessage(n int) ChatMessage {
	return ChatMessage{
		Role:      "assistant",
		Content:   fmt.Sprintf("Updated the handler %d", n),
		Timestamp: "1700000002000",
		ToolInvocations: []ToolInvocation{{
			Name:      "read_file",
			Input:     `{"path":"main.go"}`,
			Result:    "package main",
			Status:    "success",
			StartTime: Int64Ptr(1700000002000),
			EndTime:   Int64Ptr(1700000002500),
		}},
		FileChanges: []FileChange{{
			Path:        "/src/main.go",
			Diff:        "--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n-old\n+new",
			Explanation: "rename handler",
		}},
		CommandRuns: []CommandRun{{
			Command:   "go test ./...",
			Title:     "Run tests",
			Status:    "success",
			Output:    "ok",
			Timestamp: Int64Ptr(1700000003000),
		}},
		ContentBlocks: []ContentBlock{
			{Kind: BlockThinking, Content: "Looking at the handler"},
			{Kind: BlockText, Content: fmt.Sprintf("Updated the handler %d", n)},
		},
	}
}
