package gitrepos

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	// ManifestVersion is the current schema version
	ManifestVersion = 1

	// ManifestFilename is the run state file kept in the destination folder
	ManifestFilename = ".heline-state.json"
)

// Manifest records the outcome of indexing runs per repository.
type Manifest struct {
	Version int                  `json:"version"`
	LastRun time.Time            `json:"last_run"`
	Repos   map[string]RepoState `json:"repos"`
	mu      sync.RWMutex         `json:"-"`
}

// RepoState stores the last indexing outcome of a single repository.
type RepoState struct {
	Locator     string    `json:"locator"`
	Branch      string    `json:"branch,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Commit      string    `json:"commit,omitempty"`
	LastIndexed time.Time `json:"last_indexed,omitzero"`
	FileCount   int       `json:"file_count"`
	ChunkCount  int       `json:"chunk_count"`
	Skipped     int       `json:"skipped"`
	Failures    int       `json:"failures"`
	Error       string    `json:"error,omitempty"`
}

// NewManifest creates a new empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Repos:   make(map[string]RepoState),
	}
}

// LoadManifest reads a manifest from disk, or creates a new one if it doesn't exist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if manifest.Repos == nil {
		manifest.Repos = make(map[string]RepoState)
	}

	return &manifest, nil
}

// Save writes the manifest to disk atomically.
// Uses write-to-temp + rename pattern to prevent corruption.
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}

	return nil
}

// RecordSuccess stores the outcome of a completed repository run and clears
// any previous error.
func (m *Manifest) RecordSuccess(repoID string, state RepoState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.Error = ""
	if state.LastIndexed.IsZero() {
		state.LastIndexed = time.Now()
	}
	m.Repos[repoID] = state
}

// RecordError sets the error for a repository, keeping the last successful
// counters.
func (m *Manifest) RecordError(repoID, locator string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.Repos[repoID]
	state.Locator = locator
	state.Error = err.Error()
	m.Repos[repoID] = state
}

// RepoState returns the recorded state for a repository.
func (m *Manifest) RepoState(repoID string) (RepoState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.Repos[repoID]
	return state, ok
}

// RepoIDs returns the sorted list of recorded repository IDs.
func (m *Manifest) RepoIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.Repos))
	for id := range m.Repos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ReposWithErrors returns the repositories whose last run failed.
func (m *Manifest) ReposWithErrors() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string)
	for repoID, state := range m.Repos {
		if state.Error != "" {
			result[repoID] = state.Error
		}
	}
	return result
}

// MarkRun updates the last run timestamp.
func (m *Manifest) MarkRun(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRun = at
}
