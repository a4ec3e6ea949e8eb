package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query      string `json:"query" jsonschema_description:"Search query matched against file content"`
	Repository string `json:"repository,omitempty" jsonschema_description:"Filter by repository owner/name (e.g., org/repo)"`
	Language   string `json:"language,omitempty" jsonschema_description:"Filter by language tag (e.g., Go, Python, Shell)"`
	Limit      int    `json:"limit,omitempty" jsonschema_description:"Maximum number of results"`
}

// SearchHandler handles the search_code MCP tool.
type SearchHandler struct {
	engine *Engine
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(engine *Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	result, err := h.engine.Search(ctx, Request{
		Query:      args.Query,
		Repository: args.Repository,
		Language:   args.Language,
		Limit:      args.Limit,
	})
	if errors.Is(err, ErrEmptyQuery) {
		return errorResult("Query cannot be empty"), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return textResult(formatResults(result, args.Query)), nil, nil
}

// formatResults renders hits as markdown.
func formatResults(result *Result, queryStr string) string {
	if result.Total == 0 {
		return fmt.Sprintf("No results found for query: %s", queryStr)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results for '%s':\n\n", result.Total, queryStr)

	for i, hit := range result.Hits {
		fmt.Fprintf(&sb, "### %d. %s\n", i+1, hit.FileID)
		fmt.Fprintf(&sb, "**Language**: %s | **Branch**: %s | **Score**: %.4f\n\n", hit.Lang, hit.Branch, hit.Score)

		if len(hit.Lines) > 0 {
			sb.WriteString("```\n")
			for _, line := range hit.Lines {
				fmt.Fprintf(&sb, "%d: %s\n", line.Number, line.Text)
			}
			sb.WriteString("```\n")
		}
		sb.WriteString("\n")
	}

	if result.Total > uint64(len(result.Hits)) {
		fmt.Fprintf(&sb, "... and %d more results\n", result.Total-uint64(len(result.Hits)))
	}
	return sb.String()
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_code",
		Description: "Search for code across indexed repositories using full-text search",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, engine *Engine) {
	handler := NewSearchHandler(engine)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	res := textResult(text)
	res.IsError = true
	return res
}
