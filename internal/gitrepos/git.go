package gitrepos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultBranch is reported when the HEAD reference cannot be read.
const DefaultBranch = "master"

// ErrCloneFailed indicates the git clone subprocess failed or could not be started
var ErrCloneFailed = errors.New("clone failed")

// CommandExecutor abstracts command execution for testing.
type CommandExecutor interface {
	// Run executes a command and returns its standard output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor executes commands using os/exec.
type DefaultExecutor struct{}

// Run executes a command and returns its standard output.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Include stderr in error message for debugging
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// GitClient executes git commands.
type GitClient struct {
	executor CommandExecutor
}

// NewGitClient creates a new GitClient with the default command executor.
func NewGitClient() *GitClient {
	return &GitClient{
		executor: &DefaultExecutor{},
	}
}

// NewGitClientWithExecutor creates a GitClient with a custom executor (for testing).
func NewGitClientWithExecutor(executor CommandExecutor) *GitClient {
	return &GitClient{
		executor: executor,
	}
}

// Clone clones sshURL into root/dirName, running git from root.
func (g *GitClient) Clone(ctx context.Context, root, sshURL, dirName string) error {
	_, err := g.executor.Run(ctx, root, "git", "clone", sshURL, dirName)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCloneFailed, sshURL, err)
	}
	return nil
}

// HeadCommit returns the current HEAD commit SHA of a working copy.
func (g *GitClient) HeadCommit(ctx context.Context, repoDir string) (string, error) {
	output, err := g.executor.Run(ctx, repoDir, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// DetectBranch reads the HEAD reference of the working copy at dir and
// returns the last segment of the ref it points to. Any read failure, or
// content that is not a symbolic ref (detached HEAD), yields defaultBranch.
//
// Examples:
//   - "ref: refs/heads/feature-x" -> "feature-x"
//   - "ref: refs/heads/release/v2" -> "v2"
func DetectBranch(dir, defaultBranch string) string {
	if defaultBranch == "" {
		defaultBranch = DefaultBranch
	}

	data, err := os.ReadFile(filepath.Join(dir, ".git", "HEAD"))
	if err != nil {
		return defaultBranch
	}

	ref, ok := strings.CutPrefix(strings.TrimSpace(string(data)), "ref:")
	if !ok {
		return defaultBranch
	}

	ref = strings.TrimSpace(ref)
	name := ref[strings.LastIndex(ref, "/")+1:]
	if name == "" {
		return defaultBranch
	}
	return name
}
