package internal

import (
	"errors"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestStorageError(t *testing.T) {
	originalErr := errors.New("permission denied")
	err := &StorageError{
		Path: "/test/path",
		Op:   "open",
		Err:  originalErr,
	}

	// Test Error() method
	errorMsg := err.Error()
	if errorMsg == "" {
		t.Error("StorageError.Error() returned empty string")
	}
	if !strings.Contains(errorMsg, "storage error") {
		t.Errorf("StorageError.Error() should contain 'storage error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "/test/path") {
		t.Errorf("StorageError.Error() should contain path, got: %q", errorMsg)
	}

	// Test Unwrap() method
	if !errors.Is(err, originalErr) {
		t.Error("StorageError.Unwrap() should return original error")
	}
}

func TestParseError(t *testing.T) {
	originalErr := errors.New("invalid JSON")
	err := &ParseError{
		Source: "vscdb",
		Key:    "test:key",
		Err:    originalErr,
	}

	// Test Error() method
	errorMsg := err.Error()
	if errorMsg == "" {
		t.Error("ParseError.Error() returned empty string")
	}
	if !strings.Contains(errorMsg, "parse error") {
		t.Errorf("ParseError.Error() should contain 'parse error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "vscdb") {
		t.Errorf("ParseError.Error() should contain source, got: %q", errorMsg)
	}

	// Test Unwrap() method
	if !errors.Is(err, originalErr) {
		t.Error("ParseError.Unwrap() should return original error")
	}
}

func TestRebuildError(t *testing.T) {
	originalErr := errors.New("zlib: invalid header")
	err := &RebuildError{
		SessionID: "session-1",
		Err:       originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "rebuild error") {
		t.Errorf("RebuildError.Error() should contain 'rebuild error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "session-1") {
		t.Errorf("RebuildError.Error() should contain SessionID, got: %q", errorMsg)
	}

	if !errors.Is(err, originalErr) {
		t.Error("RebuildError.Unwrap() should return original error")
	}
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	err := &ParseError{Source: "json", Key: "/a.json", Err: ErrUnsupportedShape}
	if !errors.Is(err, ErrUnsupportedShape) {
		t.Error("ParseError should unwrap to ErrUnsupportedShape")
	}

	wrapped := &StorageError{Op: "read", Err: pkgerrors.Wrap(ErrSessionNotFound, "abc")}
	if !errors.Is(wrapped, ErrSessionNotFound) {
		t.Error("StorageError should unwrap to ErrSessionNotFound")
	}
}

func TestExportError(t *testing.T) {
	originalErr := errors.New("write failed")
	err := &ExportError{
		Format: "jsonl",
		Path:   "/output/file.jsonl",
		Err:    originalErr,
	}

	// Test Error() method
	errorMsg := err.Error()
	if errorMsg == "" {
		t.Error("ExportError.Error() returned empty string")
	}
	if !strings.Contains(errorMsg, "export error") {
		t.Errorf("ExportError.Error() should contain 'export error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "jsonl") {
		t.Errorf("ExportError.Error() should contain format, got: %q", errorMsg)
	}

	// Test Unwrap() method
	if !errors.Is(err, originalErr) {
		t.Error("ExportError.Unwrap() should return original error")
	}
}
