package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/sha1n/heline-indexer/internal/config"
	mcputil "github.com/sha1n/heline-indexer/internal/mcp"
	"github.com/sha1n/heline-indexer/internal/search"
)

// ServerName is the MCP implementation name of the search server
const ServerName = "heline-indexer"

// ServeParams contains dependencies for the serve command
type ServeParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(context.Context, *mcp.Server, *config.Settings) error
	CreateServer      func(*config.Settings, string) (*mcp.Server, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
	LogOutput         io.Writer     // Optional: defaults to stderr
}

// DefaultServeParams returns production dependencies
func DefaultServeParams() ServeParams {
	return ServeParams{
		LoadSettings:   config.LoadServeSettingsWithFlags,
		ValidSettings:  config.ValidateServeSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// RunServe serves the local index over MCP using the configured transport
func RunServe(ctx context.Context, params ServeParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(params.LogOutput, settings.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Starting heline search server", "version", version)
	config.LogServe(settings, logger)

	mcpServer, cleanup, err := params.CreateServer(settings, version)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if settings.Serve.Transport == config.TransportStdio {
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	logger.Info("Starting SSE server", "host", settings.Serve.Host, "port", settings.Serve.Port)
	return params.StartSSEServer(ctx, mcpServer, settings)
}

// CreateMCPServer opens the local index and creates the MCP server exposing
// the code tools. The returned cleanup closes the index.
func CreateMCPServer(settings *config.Settings, version string) (*mcp.Server, func(), error) {
	engine, err := search.Open(settings.Serve.IndexDir, settings.Serve.MaxResults)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:    ServerName,
		Version: version,
		Engine:  engine,
	})

	cleanup := func() {
		if err := engine.Close(); err != nil {
			slog.Error("Failed to close index", "error", err)
		}
	}
	return server, cleanup, nil
}
