package internal

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discovery patterns, relative to a workspaceStorage or CLI root
const (
	chatSessionPattern = "*/chatSessions/*.{json,jsonl,vscdb}"
	stateDBPattern     = "*/state.vscdb"
	cliFlatPattern     = "*.jsonl"
	cliEventsPattern   = "*/events.jsonl"
)

// Scanner discovers session files under the storage roots and parses them
type Scanner struct {
	paths    StoragePaths
	resolver *RepositoryResolver
}

// NewScanner creates a scanner over paths. resolver may be nil to skip repository lookup.
func NewScanner(paths StoragePaths, resolver *RepositoryResolver) *Scanner {
	return &Scanner{paths: paths, resolver: resolver}
}

// Files yields every candidate session file with its fingerprint, without parsing it
func (s *Scanner) Files(ctx context.Context) iter.Seq[SessionFileInfo] {
	return func(yield func(SessionFileInfo) bool) {
		for _, root := range s.paths.Workspaces {
			if !isDir(root.Path) {
				continue
			}
			for _, info := range editorFiles(root) {
				if ctx.Err() != nil || !yield(info) {
					return
				}
			}
		}
		for _, root := range s.paths.CLI {
			if !isDir(root) {
				continue
			}
			for _, info := range cliFiles(root) {
				if ctx.Err() != nil || !yield(info) {
					return
				}
			}
		}
	}
}

func editorFiles(root StorageRoot) []SessionFileInfo {
	fsys := os.DirFS(root.Path)
	var matches []string
	for _, pattern := range []string{chatSessionPattern, stateDBPattern} {
		m, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			LogWarn("glob %s in %s: %v", pattern, root.Path, err)
			continue
		}
		matches = append(matches, m...)
	}

	workspaces := make(map[string]WorkspaceInfo)
	var files []SessionFileInfo
	for _, rel := range matches {
		wsDir := strings.SplitN(rel, "/", 2)[0]
		ws, ok := workspaces[wsDir]
		if !ok {
			ws = ReadWorkspaceInfo(filepath.Join(root.Path, wsDir))
			workspaces[wsDir] = ws
		}

		path := filepath.Join(root.Path, filepath.FromSlash(rel))
		info, ok := statSessionFile(path, fileTypeOf(path), SessionTypeVSCode, root.Edition)
		if !ok {
			continue
		}
		info.WorkspaceName = ws.Name
		info.WorkspacePath = ws.Path
		files = append(files, info)
	}
	return files
}

func cliFiles(root string) []SessionFileInfo {
	fsys := os.DirFS(root)
	var files []SessionFileInfo
	for _, pattern := range []string{cliFlatPattern, cliEventsPattern} {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			LogWarn("glob %s in %s: %v", pattern, root, err)
			continue
		}
		for _, rel := range matches {
			path := filepath.Join(root, filepath.FromSlash(rel))
			if info, ok := statSessionFile(path, FileTypeJSONL, SessionTypeCLI, EditionCLI); ok {
				files = append(files, info)
			}
		}
	}
	return files
}

func fileTypeOf(path string) string {
	switch filepath.Ext(path) {
	case ".jsonl":
		return FileTypeJSONL
	case ".vscdb":
		return FileTypeVSCDB
	}
	return FileTypeJSON
}

func statSessionFile(path, fileType, sessionType, edition string) (SessionFileInfo, bool) {
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return SessionFileInfo{}, false
	}
	return SessionFileInfo{
		Path:        path,
		FileType:    fileType,
		SessionType: sessionType,
		Edition:     edition,
		Mtime:       fileMtime(st),
		Size:        st.Size(),
	}, true
}

// fileMtime is the modification time in fractional seconds
func fileMtime(st fs.FileInfo) float64 {
	return float64(st.ModTime().UnixNano()) / 1e9
}

// fileFingerprint returns (mtime, size), or nils when the file cannot be stat'ed
func fileFingerprint(path string) (*float64, *int64) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, nil
	}
	size := st.Size()
	return Float64Ptr(fileMtime(st)), &size
}

// ParseSessionFile parses one discovered file into zero or more sessions
func ParseSessionFile(info SessionFileInfo) ([]*ChatSession, error) {
	mtime, size := fileFingerprint(info.Path)
	meta := sessionMeta{
		SourceFile:    info.Path,
		FallbackID:    fileStem(info.Path),
		Edition:       info.Edition,
		FileType:      info.FileType,
		WorkspaceName: info.WorkspaceName,
		WorkspacePath: info.WorkspacePath,
		Mtime:         mtime,
		Size:          size,
	}

	if info.FileType == FileTypeVSCDB {
		return ParseVSCDB(info.Path, meta), nil
	}

	data, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, &StorageError{Path: info.Path, Op: "read", Err: err}
	}

	var session *ChatSession
	switch {
	case info.SessionType == SessionTypeCLI:
		summary := readCLIWorkspace(filepath.Dir(info.Path)).Summary
		session, err = ParseCLIEvents(data, meta, summary)
		if session != nil {
			session.CLISummary = summary
		}
	case info.FileType == FileTypeJSONL:
		session, err = parseAppendLogSession(data, meta)
	default:
		session, err = parseSnapshotSession(data, meta)
	}
	if err != nil {
		return nil, err
	}
	session.RawJSON = data
	return []*ChatSession{session}, nil
}

func parseSnapshotSession(data []byte, meta sessionMeta) (*ChatSession, error) {
	doc, err := decodeJSONObject(data)
	if err != nil {
		return nil, &ParseError{Source: FileTypeJSON, Key: meta.SourceFile, Err: err}
	}
	session, err := ExtractSession(doc, meta)
	if err != nil {
		return nil, &ParseError{Source: FileTypeJSON, Key: meta.SourceFile, Err: err}
	}
	return session, nil
}

func parseAppendLogSession(data []byte, meta sessionMeta) (*ChatSession, error) {
	doc, ok := ReplayAppendLog(data)
	if !ok {
		return nil, &ParseError{Source: FileTypeJSONL, Key: meta.SourceFile, Err: ErrUnsupportedShape}
	}
	session, err := ExtractSession(doc, meta)
	if err != nil {
		return nil, &ParseError{Source: FileTypeJSONL, Key: meta.SourceFile, Err: err}
	}
	return session, nil
}

// fileStem is the file name without extension; CLI events.jsonl files use their directory name
func fileStem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if base == "events.jsonl" {
		return filepath.Base(filepath.Dir(path))
	}
	return stem
}

// DescribeFile builds the SessionFileInfo discovery would produce for a
// single file, so it can be parsed outside a storage root. CLI event logs
// are recognized by name or forced with cli.
func DescribeFile(path, edition string, cli bool) (SessionFileInfo, error) {
	if filepath.Base(path) == "events.jsonl" {
		cli = true
	}
	if edition == "" {
		edition = EditionStable
	}
	sessionType, fileType := SessionTypeVSCode, fileTypeOf(path)
	if cli {
		sessionType, fileType, edition = SessionTypeCLI, FileTypeJSONL, EditionCLI
	}

	info, ok := statSessionFile(path, fileType, sessionType, edition)
	if !ok {
		return SessionFileInfo{}, &StorageError{Path: path, Op: "read", Err: fs.ErrNotExist}
	}
	if !cli {
		wsDir := filepath.Dir(path)
		if filepath.Base(wsDir) == "chatSessions" {
			wsDir = filepath.Dir(wsDir)
		}
		ws := ReadWorkspaceInfo(wsDir)
		info.WorkspaceName, info.WorkspacePath = ws.Name, ws.Path
	}
	return info, nil
}

// ParseFile parses one file and fills in repository URLs
func (s *Scanner) ParseFile(ctx context.Context, info SessionFileInfo) ([]*ChatSession, error) {
	sessions, err := ParseSessionFile(info)
	if err != nil {
		return nil, err
	}
	for _, session := range sessions {
		s.resolveRepository(ctx, session)
	}
	return sessions, nil
}

func (s *Scanner) resolveRepository(ctx context.Context, session *ChatSession) {
	if session.RepositoryURL != "" || s.resolver == nil {
		return
	}
	session.RepositoryURL = s.resolver.Resolve(ctx, session.WorkspacePath)
}

// Sessions lazily yields every parsed session. A file that fails to parse is
// logged and skipped. Cancellation is checked between files.
func (s *Scanner) Sessions(ctx context.Context) iter.Seq[*ChatSession] {
	return func(yield func(*ChatSession) bool) {
		dedup := NewDeduplicator()
		for info := range s.Files(ctx) {
			if ctx.Err() != nil {
				return
			}
			sessions, err := s.ParseFile(ctx, info)
			if err != nil {
				Logger().Debug().Err(err).Str("file", info.Path).Msg("skipping session file")
				continue
			}
			for _, session := range sessions {
				if !dedup.Add(session) {
					continue
				}
				if !yield(session) {
					return
				}
			}
		}
	}
}
