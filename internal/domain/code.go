package domain

import (
	"path"
	"strings"
)

// Document represents one indexed source file in the search backend.
// The first chunk of a file is written as a full Document; later chunks only
// append to Content.
type Document struct {
	// ID is stable across runs.
	// Format: "owner/name/path/to/file.go"
	ID string `json:"id"`

	// FileID additionally carries the hosting domain.
	// Format: "github.com/owner/name/path/to/file.go"
	FileID string `json:"file_id"`

	// OwnerID is the numeric id of the owning account, or a sentinel.
	OwnerID string `json:"owner_id"`

	// Path is the directory of the file relative to the repository root,
	// empty for files at the root.
	Path string `json:"path"`

	// Repo is the owner/name path of the repository.
	Repo string `json:"repo"`

	// Branch is the checked out branch of the working copy.
	Branch string `json:"branch"`

	// Lang is the language tag assigned by the classifier.
	Lang string `json:"lang"`

	// Content holds one entry per chunk of highlighted rows.
	Content []string `json:"content"`
}

// HighlightChunk is a bounded group of consecutive highlighted rows of one file.
type HighlightChunk struct {
	DocumentID string
	FileID     string
	OwnerID    string
	RelDir     string
	Repo       string
	Branch     string
	Language   string
	Lines      []string
}

// Text returns the chunk content as stored in the backend: every row
// followed by a newline.
func (c HighlightChunk) Text() string {
	return ChunkText(c.Lines)
}

// Document builds the full document written for the first chunk of a file.
func (c HighlightChunk) Document() Document {
	return Document{
		ID:      c.DocumentID,
		FileID:  c.FileID,
		OwnerID: c.OwnerID,
		Path:    c.RelDir,
		Repo:    c.Repo,
		Branch:  c.Branch,
		Lang:    c.Language,
		Content: []string{c.Text()},
	}
}

// ChunkText joins rows the way chunks are stored.
func ChunkText(lines []string) string {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DocumentID returns the document id for a file.
//
// Examples:
//   - ("org/repo", "src/main.go") -> "org/repo/src/main.go"
func DocumentID(ownerPath, relPath string) string {
	return ownerPath + "/" + relPath
}

// FileID returns the host qualified id for a file.
//
// Examples:
//   - ("github.com", "org/repo", "src/main.go") -> "github.com/org/repo/src/main.go"
func FileID(host, ownerPath, relPath string) string {
	return host + "/" + ownerPath + "/" + relPath
}

// RelDir returns the slash separated directory of a relative path, or ""
// for files at the repository root.
func RelDir(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." {
		return ""
	}
	return dir
}

// Field name constants for consistent field references in queries and mappings.
const (
	FieldID      = "id"
	FieldFileID  = "file_id"
	FieldOwnerID = "owner_id"
	FieldPath    = "path"
	FieldRepo    = "repo"
	FieldBranch  = "branch"
	FieldLang    = "lang"
	FieldContent = "content"
)
