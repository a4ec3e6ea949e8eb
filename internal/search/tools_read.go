package search

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/heline-indexer/internal/index"
)

// ReadArgument defines read parameters.
type ReadArgument struct {
	Repository string `json:"repository" jsonschema_description:"Repository owner/name (e.g., org/repo)"`
	Path       string `json:"path" jsonschema_description:"File path relative to repository root"`
}

// ReadHandler handles the read_code MCP tool.
type ReadHandler struct {
	engine *Engine
}

// NewReadHandler creates a new read handler.
func NewReadHandler(engine *Engine) *ReadHandler {
	return &ReadHandler{engine: engine}
}

// Handle returns the indexed text of a file.
func (h *ReadHandler) Handle(ctx context.Context, _ *mcp.CallToolRequest, args ReadArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Repository) == "" {
		return errorResult("Repository cannot be empty"), nil, nil
	}
	if strings.TrimSpace(args.Path) == "" {
		return errorResult("Path cannot be empty"), nil, nil
	}
	if err := validatePath(args.Path); err != nil {
		return errorResult(fmt.Sprintf("Invalid path: %s", err)), nil, nil
	}

	doc, lines, err := h.engine.Read(ctx, args.Repository, path.Clean(args.Path))
	if errors.Is(err, index.ErrDocumentNotFound) {
		return errorResult(fmt.Sprintf("File not found: %s/%s", args.Repository, args.Path)), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Error reading file: %s", err)), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**File**: `%s`\n", args.Path)
	fmt.Fprintf(&sb, "**Repository**: %s\n", doc.Repo)
	fmt.Fprintf(&sb, "**Branch**: %s\n", doc.Branch)
	fmt.Fprintf(&sb, "**Lines**: %d\n\n", len(lines))
	fmt.Fprintf(&sb, "```%s\n", strings.ToLower(doc.Lang))
	for _, line := range lines {
		sb.WriteString(line.Text)
		sb.WriteByte('\n')
	}
	sb.WriteString("```")

	return textResult(sb.String()), nil, nil
}

// validatePath rejects absolute paths and paths leaving the repository.
func validatePath(p string) error {
	cleaned := path.Clean(p)
	if path.IsAbs(cleaned) {
		return fmt.Errorf("absolute paths are not allowed")
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("path traversal is not allowed")
	}
	return nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ReadHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "read_code",
		Description: "Read the indexed content of a file from a repository",
	}
}

// RegisterReadTool registers the read tool with an MCP server.
func RegisterReadTool(server *mcp.Server, engine *Engine) {
	handler := NewReadHandler(engine)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
