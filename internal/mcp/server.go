package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/heline-indexer/internal/search"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string
	// Engine serves the code tools. Without it the server exposes no tools.
	Engine *search.Engine
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Engine != nil {
		search.RegisterSearchTool(s, cfg.Engine)
		search.RegisterReadTool(s, cfg.Engine)
	}

	return s
}
