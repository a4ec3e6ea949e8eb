package gitrepos

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultHost is used for owner/name locators that carry no host.
const DefaultHost = "github.com"

var (
	// ErrInvalidLocator indicates the locator is neither a URL nor an owner/name label
	ErrInvalidLocator = errors.New("invalid repository locator")

	// Matches: git@github.com:org/repo.git or git@github.com:org/subgroup/repo.git
	sshScpPattern = regexp.MustCompile(`^git@([^:/]+):(.+?)(?:\.git)?/?$`)

	// Matches: ssh://git@github.com/org/repo.git
	sshURLPattern = regexp.MustCompile(`^ssh://git@([^/]+)/(.+?)(?:\.git)?/?$`)
)

// RepoTarget is a parsed repository locator. It is derived once and never
// modified afterwards.
type RepoTarget struct {
	// Locator is the raw input string.
	Locator string
	// Host is the domain of the hosting provider, e.g. github.com.
	Host string
	// OwnerPath is owner/name without a trailing .git.
	OwnerPath string
	// SSHCloneURL is git@{host}:{owner_path}.git.
	SSHCloneURL string
	// DirName is the last segment of OwnerPath.
	DirName string
}

// Owner returns the first segment of the owner path, the account name used
// for owner id lookups.
func (t RepoTarget) Owner() string {
	owner, _, _ := strings.Cut(t.OwnerPath, "/")
	return owner
}

// Display returns host/owner/name.
func (t RepoTarget) Display() string {
	return t.Host + "/" + t.OwnerPath
}

// ParseLocator parses a repository locator into a RepoTarget.
// Supports URLs with a host, SCP-style and ssh:// SSH URLs, and bare
// owner/name labels which are resolved against defaultHost.
//
// Examples:
//   - https://github.com/org/repo.git -> host: github.com, path: org/repo, dir: repo
//   - git@gitlab.com:group/sub/repo.git -> host: gitlab.com, path: group/sub/repo, dir: repo
//   - org/repo -> host: defaultHost, path: org/repo, dir: repo
func ParseLocator(locator, defaultHost string) (RepoTarget, error) {
	raw := strings.TrimSpace(locator)
	if defaultHost == "" {
		defaultHost = DefaultHost
	}

	host, path, ok := splitLocator(raw, defaultHost)
	if !ok {
		return RepoTarget{}, fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}

	path, ok = normalizeRepoPath(path)
	if !ok || host == "" || strings.Count(path, "/") < 1 {
		return RepoTarget{}, fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}

	return RepoTarget{
		Locator:     locator,
		Host:        host,
		OwnerPath:   path,
		SSHCloneURL: fmt.Sprintf("git@%s:%s.git", host, path),
		DirName:     extractRepoName(path),
	}, nil
}

// splitLocator returns the host and the raw repository path of a locator.
func splitLocator(raw, defaultHost string) (host, path string, ok bool) {
	if raw == "" {
		return "", "", false
	}

	// Try SCP-style pattern first (more common for SSH)
	if matches := sshScpPattern.FindStringSubmatch(raw); matches != nil {
		return matches[1], matches[2], true
	}

	if matches := sshURLPattern.FindStringSubmatch(raw); matches != nil {
		return matches[1], matches[2], true
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			return "", "", false
		}
		return u.Hostname(), u.Path, true
	}

	// Bare owner/name label
	if strings.ContainsAny(raw, " :@?#") {
		return "", "", false
	}
	return defaultHost, raw, true
}

// normalizeRepoPath trims slashes and a trailing .git from a repository path.
// Paths with "." or ".." segments or backslashes are rejected, since the last
// segment names the working copy directory.
func normalizeRepoPath(path string) (string, bool) {
	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")
	path = strings.Trim(path, "/")

	// Drop empty segments produced by doubled slashes
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, p := range parts {
		switch {
		case p == "":
		case p == "." || p == ".." || strings.Contains(p, `\`):
			return "", false
		default:
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/"), true
}

// extractRepoName extracts the repository name from a path.
// For "org/repo" returns "repo", for "group/sub/repo" returns "repo".
func extractRepoName(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

// TargetToRepoID converts a target to a filesystem-safe repository ID.
// The ID is used as the key of the run state ledger.
//
// Examples:
//   - github.com + org/repo -> github.com_org_repo
//   - gitlab.com + group/sub/repo -> gitlab.com_group_sub_repo
func TargetToRepoID(t RepoTarget) string {
	return sanitizeForFilesystem(t.Host + "/" + t.OwnerPath)
}

// sanitizeForFilesystem replaces slashes, colons, and @ symbols with underscores.
func sanitizeForFilesystem(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "@", "_")
	return s
}
