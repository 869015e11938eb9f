package internal

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	scpLikeURL = regexp.MustCompile(`^[^@/:]+@([^:/]+):(.+)$`)
	schemeURL  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://(?:[^@/]+@)?([^/]+)/(.+)$`)
)

// NormalizeGitURL reduces a git remote URL to host/path form:
// git@github.com:o/r.git, ssh://git@github.com/o/r and https://github.com/o/r/
// all become github.com/o/r. Unrecognized forms are returned unchanged.
func NormalizeGitURL(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	url = strings.TrimSuffix(url, ".git")

	if strings.Contains(url, "://") {
		if m := schemeURL.FindStringSubmatch(url); m != nil {
			return m[1] + "/" + m[2]
		}
		return url
	}
	if m := scpLikeURL.FindStringSubmatch(url); m != nil {
		return m[1] + "/" + m[2]
	}
	return url
}

// RepositoryResolver finds the normalized remote origin URL of a workspace.
// Results, including misses, are cached per path until Clear is called.
// Lookups cut short by the caller's context are not cached.
type RepositoryResolver struct {
	timeout time.Duration
	run     func(ctx context.Context, dir string, args ...string) (string, error)

	mu    sync.RWMutex
	cache map[string]string
	group singleflight.Group
}

// NewRepositoryResolver creates a resolver whose git calls are bounded by timeout
func NewRepositoryResolver(timeout time.Duration) *RepositoryResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RepositoryResolver{
		timeout: timeout,
		run:     runGit,
		cache:   make(map[string]string),
	}
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Resolve returns the repository URL for workspacePath, or "" when there is
// no repository, no origin remote, or git is missing or too slow.
func (r *RepositoryResolver) Resolve(ctx context.Context, workspacePath string) string {
	if workspacePath == "" {
		return ""
	}

	r.mu.RLock()
	url, ok := r.cache[workspacePath]
	r.mu.RUnlock()
	if ok {
		return url
	}

	v, _, _ := r.group.Do(workspacePath, func() (interface{}, error) {
		r.mu.RLock()
		url, ok := r.cache[workspacePath]
		r.mu.RUnlock()
		if ok {
			return url, nil
		}
		url = r.lookup(ctx, workspacePath)
		// a cancelled caller says nothing about the workspace itself
		if ctx.Err() != nil {
			return url, nil
		}
		r.mu.Lock()
		r.cache[workspacePath] = url
		r.mu.Unlock()
		return url, nil
	})
	return v.(string)
}

func (r *RepositoryResolver) lookup(ctx context.Context, dir string) string {
	gitCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.run(gitCtx, dir, "rev-parse", "--git-dir"); err != nil {
		LogDebug("no git repository at %s: %v", dir, err)
		return ""
	}
	remote, err := r.run(gitCtx, dir, "config", "--get", "remote.origin.url")
	if err != nil || remote == "" {
		return ""
	}
	return NormalizeGitURL(remote)
}

// Clear drops every cached result
func (r *RepositoryResolver) Clear() {
	r.mu.Lock()
	r.cache = make(map[string]string)
	r.mu.Unlock()
}
