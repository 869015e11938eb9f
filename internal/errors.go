package internal

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedShape is returned when a document carries no recognized messages
	ErrUnsupportedShape = errors.New("unsupported session shape")
	// ErrSessionNotFound is returned when a session id is not in the store
	ErrSessionNotFound = errors.New("session not found")
)

// StorageError represents errors accessing the session store or a source database
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "rebuild"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors parsing a source file or record
type ParseError struct {
	Source string // "json", "jsonl", "vscdb", "cli"
	Key    string // file path or row key
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RebuildError represents a raw record that could not be re-derived
type RebuildError struct {
	SessionID string
	Err       error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("rebuild error [%s]: %v", e.SessionID, e.Err)
}

func (e *RebuildError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
