package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// StoragePaths holds the detected session storage roots
type StoragePaths struct {
	Workspaces []StorageRoot // editor workspaceStorage directories, one per edition
	CLI        []string      // CLI session-state directories
}

// DetectStoragePaths detects the editor and CLI storage roots for the current OS
func DetectStoragePaths() (StoragePaths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return StoragePaths{}, fmt.Errorf("failed to get home directory: %w", err)
	}
	return storagePathsFor(runtime.GOOS, home, os.Getenv("APPDATA")), nil
}

func storagePathsFor(goos, home, appData string) StoragePaths {
	var base string
	switch goos {
	case "windows":
		base = appData
	case "darwin":
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = filepath.Join(home, ".config")
	}

	var sp StoragePaths
	if base != "" {
		sp.Workspaces = []StorageRoot{
			{Path: filepath.Join(base, "Code", "User", "workspaceStorage"), Edition: EditionStable},
			{Path: filepath.Join(base, "Code - Insiders", "User", "workspaceStorage"), Edition: EditionInsider},
		}
	}
	sp.CLI = []string{
		filepath.Join(home, ".copilot", "session-state"),
		filepath.Join(home, ".copilot", "history-session-state"),
	}
	return sp
}

// StoragePathsFromConfig uses the configured roots, falling back to detection
func StoragePathsFromConfig(cfg Config) (StoragePaths, error) {
	sp, err := DetectStoragePaths()
	if err != nil && len(cfg.StoragePaths) == 0 {
		return StoragePaths{}, err
	}
	if len(cfg.StoragePaths) > 0 {
		sp.Workspaces = cfg.StoragePaths
	}
	if len(cfg.CLIPaths) > 0 {
		sp.CLI = cfg.CLIPaths
	}
	if !cfg.IncludeCLI {
		sp.CLI = nil
	}

	var roots []StorageRoot
	for _, r := range sp.Workspaces {
		if r.Edition == "" {
			r.Edition = EditionStable
		}
		if cfg.HasEdition(r.Edition) {
			roots = append(roots, r)
		}
	}
	sp.Workspaces = roots
	return sp, nil
}

// Existing returns only the roots that are present on disk
func (sp StoragePaths) Existing() StoragePaths {
	var out StoragePaths
	for _, r := range sp.Workspaces {
		if isDir(r.Path) {
			out.Workspaces = append(out.Workspaces, r)
		}
	}
	for _, p := range sp.CLI {
		if isDir(p) {
			out.CLI = append(out.CLI, p)
		}
	}
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
