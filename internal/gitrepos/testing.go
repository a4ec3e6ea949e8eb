package gitrepos

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// MockExecutor records commands and returns configured responses.
// This is exported for use by tests of other packages.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	calls    []ExecutorCall
}

// MockCommand defines a mock response for a command prefix. When OnRun is
// set it is invoked with the working directory and arguments before the
// response is returned, e.g. to materialise a cloned working copy.
type MockCommand struct {
	NamePrefix string
	Output     []byte
	Err        error
	OnRun      func(dir string, args []string)
}

// ExecutorCall records a command invocation.
type ExecutorCall struct {
	Dir  string
	Name string
	Args []string
}

// NewMockExecutor creates a new mock executor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// AddResponse adds a mock response for commands matching the given prefix.
func (m *MockExecutor) AddResponse(namePrefix string, output []byte, err error) {
	m.AddCommand(MockCommand{NamePrefix: namePrefix, Output: output, Err: err})
}

// AddCommand adds a fully specified mock response.
func (m *MockExecutor) AddCommand(cmd MockCommand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)
}

// Run executes a command and returns the configured mock response.
func (m *MockExecutor) Run(_ context.Context, dir string, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ExecutorCall{Dir: dir, Name: name, Args: args})

	fullCmd := name + " " + strings.Join(args, " ")

	var matched *MockCommand
	for i, cmd := range m.commands {
		if strings.HasPrefix(fullCmd, cmd.NamePrefix) {
			// Remove used response
			m.commands = append(m.commands[:i], m.commands[i+1:]...)
			matched = &cmd
			break
		}
	}
	m.mu.Unlock()

	if matched == nil {
		return nil, errors.New("no mock response configured for: " + fullCmd)
	}
	if matched.OnRun != nil {
		matched.OnRun(dir, args)
	}
	return matched.Output, matched.Err
}

// GetCalls returns all recorded command calls.
func (m *MockExecutor) GetCalls() []ExecutorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutorCall(nil), m.calls...)
}

// MustGetLastCall returns the last recorded call, fails the test if no calls were made.
func (m *MockExecutor) MustGetLastCall(t *testing.T) ExecutorCall {
	t.Helper()
	calls := m.GetCalls()
	if len(calls) == 0 {
		t.Fatal("Expected at least one command call")
	}
	return calls[len(calls)-1]
}

// WriteWorkingCopy creates a working copy fixture at dir with the given files
// (slash separated relative paths) and a .git/HEAD pointing at branch.
func WriteWorkingCopy(t *testing.T, dir, branch string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
	if branch == "" {
		return
	}
	gitDir := filepath.Join(dir, ".git")
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		t.Fatalf("Failed to create .git: %v", err)
	}
	head := []byte("ref: refs/heads/" + branch + "\n")
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), head, 0644); err != nil {
		t.Fatalf("Failed to write HEAD: %v", err)
	}
}
