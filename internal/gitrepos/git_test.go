package gitrepos

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestNewGitClient(t *testing.T) {
	client := NewGitClient()
	if client.executor == nil {
		t.Error("Expected executor to be set")
	}
}

func TestGitClient_Clone(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git clone", []byte(""), nil)

	client := NewGitClientWithExecutor(mock)
	err := client.Clone(context.Background(), "/tmp/repos", "git@github.com:org/repo.git", "repo")
	if err != nil {
		t.Fatalf("Clone failed: %v", err)
	}

	call := mock.MustGetLastCall(t)
	if call.Name != "git" {
		t.Errorf("Expected git command, got %s", call.Name)
	}
	if call.Dir != "/tmp/repos" {
		t.Errorf("Expected clone to run in destination root, got %q", call.Dir)
	}

	expectedArgs := []string{"clone", "git@github.com:org/repo.git", "repo"}
	if !slices.Equal(call.Args, expectedArgs) {
		t.Errorf("Args = %v, want %v", call.Args, expectedArgs)
	}
}

func TestGitClient_Clone_Error(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git clone", nil, errors.New("exit status 128: repository not found"))

	client := NewGitClientWithExecutor(mock)
	err := client.Clone(context.Background(), "/tmp/repos", "git@github.com:org/missing.git", "missing")
	if !errors.Is(err, ErrCloneFailed) {
		t.Fatalf("Expected ErrCloneFailed, got %v", err)
	}
}

func TestGitClient_HeadCommit(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git rev-parse HEAD", []byte("abc123def\n"), nil)

	client := NewGitClientWithExecutor(mock)
	commit, err := client.HeadCommit(context.Background(), "/tmp/repo")
	if err != nil {
		t.Fatalf("HeadCommit failed: %v", err)
	}
	if commit != "abc123def" {
		t.Errorf("commit = %q, want 'abc123def'", commit)
	}
}

func TestDefaultExecutor_MissingTool(t *testing.T) {
	executor := &DefaultExecutor{}
	_, err := executor.Run(context.Background(), "", "definitely-not-a-real-binary-heline")
	if err == nil {
		t.Error("Expected error for missing executable")
	}
}

func TestDetectBranch(t *testing.T) {
	tests := []struct {
		name     string
		head     *string
		want     string
		fallback string
	}{
		{name: "no head file", head: nil, want: "master"},
		{name: "feature branch", head: ptr("ref: refs/heads/feature-x\n"), want: "feature-x"},
		{name: "main without newline", head: ptr("ref: refs/heads/main"), want: "main"},
		{name: "nested branch name", head: ptr("ref: refs/heads/release/v2\n"), want: "v2"},
		{name: "detached head", head: ptr("3f786850e387550fdab836ed7e6dc881de23001b\n"), want: "master"},
		{name: "empty file", head: ptr(""), want: "master"},
		{name: "custom fallback", head: nil, fallback: "trunk", want: "trunk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.head != nil {
				if err := os.MkdirAll(filepath.Join(dir, ".git"), 0755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte(*tt.head), 0644); err != nil {
					t.Fatal(err)
				}
			}

			if got := DetectBranch(dir, tt.fallback); got != tt.want {
				t.Errorf("DetectBranch() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAcquirer_ReusesExistingDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "repo"), 0755); err != nil {
		t.Fatal(err)
	}

	mock := NewMockExecutor()
	acquirer := NewAcquirer(AcquirerOptions{Root: root}, NewGitClientWithExecutor(mock))
	target, _ := ParseLocator("https://github.com/org/repo", "")

	dir, err := acquirer.Acquire(context.Background(), target)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if dir != filepath.Join(root, "repo") {
		t.Errorf("dir = %q", dir)
	}
	if len(mock.GetCalls()) != 0 {
		t.Errorf("Expected no git calls for an existing working copy, got %v", mock.GetCalls())
	}
}

func TestAcquirer_ClonesMissingDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repos")

	mock := NewMockExecutor()
	mock.AddCommand(MockCommand{
		NamePrefix: "git clone",
		OnRun: func(dir string, args []string) {
			_ = os.MkdirAll(filepath.Join(dir, args[len(args)-1]), 0755)
		},
	})
	acquirer := NewAcquirer(AcquirerOptions{Root: root, CloneTimeout: time.Minute}, NewGitClientWithExecutor(mock))
	target, _ := ParseLocator("https://github.com/org/repo.git", "")

	dir, err := acquirer.Acquire(context.Background(), target)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected working copy to exist: %v", err)
	}

	call := mock.MustGetLastCall(t)
	if call.Dir != root {
		t.Errorf("Expected clone in %q, got %q", root, call.Dir)
	}
	if !slices.Equal(call.Args, []string{"clone", "git@github.com:org/repo.git", "repo"}) {
		t.Errorf("Unexpected clone args: %v", call.Args)
	}
}

func TestAcquirer_CloneFailure(t *testing.T) {
	mock := NewMockExecutor()
	mock.AddResponse("git clone", nil, errors.New("exit status 128"))
	acquirer := NewAcquirer(AcquirerOptions{Root: t.TempDir()}, NewGitClientWithExecutor(mock))
	target, _ := ParseLocator("org/repo", "")

	_, err := acquirer.Acquire(context.Background(), target)
	if !errors.Is(err, ErrCloneFailed) {
		t.Errorf("Expected ErrCloneFailed, got %v", err)
	}
}

func TestAcquirer_FolderModeNeverClones(t *testing.T) {
	mock := NewMockExecutor()
	acquirer := NewAcquirer(AcquirerOptions{Root: t.TempDir(), FolderMode: true}, NewGitClientWithExecutor(mock))
	target, _ := ParseLocator("org/repo", "")

	_, err := acquirer.Acquire(context.Background(), target)
	if !errors.Is(err, ErrWorkingCopyMissing) {
		t.Errorf("Expected ErrWorkingCopyMissing, got %v", err)
	}
	if len(mock.GetCalls()) != 0 {
		t.Error("Expected folder mode not to invoke git")
	}
}

func TestAcquirer_RejectsPathsOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "repos")
	WriteWorkingCopy(t, root, "", map[string]string{"keep/a.go": "package a"})

	for _, dirName := range []string{"..", ".", "", "a/../.."} {
		t.Run(dirName, func(t *testing.T) {
			mock := NewMockExecutor()
			acquirer := NewAcquirer(AcquirerOptions{Root: root}, NewGitClientWithExecutor(mock))
			target := RepoTarget{Host: "github.com", OwnerPath: "org/" + dirName, DirName: dirName}

			_, err := acquirer.Acquire(context.Background(), target)
			if !errors.Is(err, ErrInvalidLocator) {
				t.Fatalf("Expected ErrInvalidLocator, got %v", err)
			}
			if len(mock.GetCalls()) != 0 {
				t.Error("Expected no git invocation")
			}
		})
	}

	if _, err := os.Stat(filepath.Join(root, "keep", "a.go")); err != nil {
		t.Errorf("Expected destination content to be untouched: %v", err)
	}
}

func TestAcquirer_Path(t *testing.T) {
	root := t.TempDir()
	acquirer := NewAcquirer(AcquirerOptions{Root: root + string(filepath.Separator)}, nil)
	target, err := ParseLocator("group/sub/repo", "")
	if err != nil {
		t.Fatalf("ParseLocator failed: %v", err)
	}

	dir, err := acquirer.Path(target)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if dir != filepath.Join(root, "repo") {
		t.Errorf("Path() = %q, want %q", dir, filepath.Join(root, "repo"))
	}
}

func TestRemoveWorkingCopy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "repo")
	WriteWorkingCopy(t, dir, "main", map[string]string{"a/b.go": "package a"})

	RemoveWorkingCopy(dir)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("Expected working copy to be removed, stat err = %v", err)
	}

	// Missing directory is a no-op
	RemoveWorkingCopy(dir)
}

func ptr(s string) *string {
	return &s
}
