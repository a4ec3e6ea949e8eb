package gitrepos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrWorkingCopyMissing indicates folder mode found no working copy to index
var ErrWorkingCopyMissing = errors.New("working copy not found")

// Cloner clones a repository into root/dirName.
type Cloner interface {
	Clone(ctx context.Context, root, sshURL, dirName string) error
}

// Acquirer makes sure a working copy exists for a target.
type Acquirer struct {
	root         string
	cloner       Cloner
	folderMode   bool
	cloneTimeout time.Duration
}

// AcquirerOptions configures an Acquirer.
type AcquirerOptions struct {
	// Root is the destination folder holding all working copies.
	Root string
	// FolderMode indexes already present folders and never clones.
	FolderMode bool
	// CloneTimeout bounds a single clone, zero means no limit.
	CloneTimeout time.Duration
}

// NewAcquirer creates an Acquirer cloning with the given Cloner.
func NewAcquirer(opts AcquirerOptions, cloner Cloner) *Acquirer {
	return &Acquirer{
		root:         opts.Root,
		cloner:       cloner,
		folderMode:   opts.FolderMode,
		cloneTimeout: opts.CloneTimeout,
	}
}

// Root returns the destination folder.
func (a *Acquirer) Root() string {
	return a.root
}

// Path returns the working copy path of a target. The path is always a
// direct child of the destination folder.
func (a *Acquirer) Path(target RepoTarget) (string, error) {
	root := filepath.Clean(a.root)
	dir := filepath.Join(root, target.DirName)
	if target.DirName == "" || filepath.Dir(dir) != root || filepath.Base(dir) != target.DirName {
		return "", fmt.Errorf("%w: %q escapes %s", ErrInvalidLocator, target.DirName, root)
	}
	return dir, nil
}

// Acquire returns the working copy path of target, cloning it first when it
// does not exist yet. An existing directory is reused as is.
func (a *Acquirer) Acquire(ctx context.Context, target RepoTarget) (string, error) {
	dir, err := a.Path(target)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		slog.Debug("Reusing working copy", "repo", target.OwnerPath, "dir", dir)
		return dir, nil
	}
	if err == nil {
		return "", fmt.Errorf("%w: %s is not a directory", ErrCloneFailed, dir)
	}

	if a.folderMode {
		return "", fmt.Errorf("%w: %s", ErrWorkingCopyMissing, dir)
	}

	if err := os.MkdirAll(a.root, 0755); err != nil {
		return "", fmt.Errorf("%w: failed to create destination: %w", ErrCloneFailed, err)
	}

	if a.cloneTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cloneTimeout)
		defer cancel()
	}

	slog.Info("Cloning repository", "repo", target.OwnerPath, "url", target.SSHCloneURL)
	if err := a.cloner.Clone(ctx, a.root, target.SSHCloneURL, target.DirName); err != nil {
		return "", err
	}
	return dir, nil
}

// RemoveWorkingCopy deletes a working copy recursively. Failures are logged
// and never returned; a missing directory is a no-op.
func RemoveWorkingCopy(dir string) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Info("Working copy already removed", "dir", dir)
		return
	}

	slog.Info("Deleting working copy", "dir", dir)
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("Failed to delete working copy", "dir", dir, "error", err)
	}
}
