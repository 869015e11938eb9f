package internal

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// WorkspaceInfo represents workspace information
type WorkspaceInfo struct {
	Hash string
	Path string
	Name string
}

var windowsDrivePath = regexp.MustCompile(`^/[A-Za-z]:`)

// ReadWorkspaceInfo reads workspace.json in dir and decodes its folder URI
func ReadWorkspaceInfo(dir string) WorkspaceInfo {
	info := WorkspaceInfo{Hash: filepath.Base(dir)}

	data, err := os.ReadFile(filepath.Join(dir, "workspace.json"))
	if err != nil {
		return info
	}
	var workspaceData struct {
		Folder string `json:"folder"`
	}
	if err := json.Unmarshal(data, &workspaceData); err != nil {
		return info
	}

	info.Path = folderURIToPath(workspaceData.Folder)
	if info.Path != "" {
		info.Name = baseName(strings.TrimRight(info.Path, `/\`))
	}
	return info
}

// folderURIToPath turns file:///home/me/my%20proj into /home/me/my proj
// and file:///c%3A/src into c:/src
func folderURIToPath(folder string) string {
	if folder == "" {
		return ""
	}
	if strings.HasPrefix(folder, "file://") {
		folder = strings.TrimPrefix(folder, "file://")
	}
	if decoded, err := url.PathUnescape(folder); err == nil {
		folder = decoded
	}
	if windowsDrivePath.MatchString(folder) {
		folder = folder[1:]
	}
	return folder
}

// DetectWorkspaces lists the workspaces under a workspaceStorage directory
func DetectWorkspaces(workspaceStorage string) (map[string]*WorkspaceInfo, error) {
	workspaces := make(map[string]*WorkspaceInfo)

	entries, err := os.ReadDir(workspaceStorage)
	if err != nil {
		return workspaces, nil // Return empty map if directory doesn't exist
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info := ReadWorkspaceInfo(filepath.Join(workspaceStorage, entry.Name()))
		workspaces[info.Hash] = &info
	}

	return workspaces, nil
}
