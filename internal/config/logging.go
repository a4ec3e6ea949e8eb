package config

import (
	"context"
	"io"
	"log/slog"
)

const masked = "****"

// NewLogger creates the text logger used by all commands.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Log logs the resolved settings of an index run, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved index settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: index_file", "value", s.IndexFile)
	logger.InfoContext(ctx, "Config: dest", "value", s.Dest)
	logger.InfoContext(ctx, "Config: folder", "value", s.Folder)
	logger.InfoContext(ctx, "Config: delete_dir", "value", s.DeleteDir)
	logger.InfoContext(ctx, "Config: default_host", "value", s.DefaultHost)
	if s.CloneTimeout > 0 {
		logger.InfoContext(ctx, "Config: clone_timeout", "value", s.CloneTimeout)
	}
	if s.MaxFileSize > 0 {
		logger.InfoContext(ctx, "Config: max_file_size", "value", s.MaxFileSize)
	}
	if len(s.Exclude) > 0 {
		logger.InfoContext(ctx, "Config: exclude", "value", s.Exclude)
	}

	logger.InfoContext(ctx, "Config: backend", "value", BackendSettingsLogValue(s.Backend))
	logger.InfoContext(ctx, "Config: highlight", "window", s.Highlight.Window, "max_chars", s.Highlight.MaxChars)
	logger.InfoContext(ctx, "Config: owner", "value", OwnerSettingsLogValue(s.Owner))
	if s.Metrics.PushURL != "" {
		logger.InfoContext(ctx, "Config: metrics.push_url", "value", s.Metrics.PushURL)
	}
}

// LogServe logs the resolved settings of the search server
func LogServe(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Serve.Transport)
	if s.Serve.Transport == TransportSSE {
		logger.InfoContext(ctx, "Config: host", "value", s.Serve.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Serve.Port)
	}
	logger.InfoContext(ctx, "Config: index_dir", "value", s.Serve.IndexDir)

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Serve.Auth.Type)
	switch s.Serve.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Serve.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", masked)
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Serve.Auth.APIKeys))
	}
}

// BackendSettingsLogValue returns a slog.Value for BackendSettings with masked data
func BackendSettingsLogValue(b BackendSettings) slog.Value {
	attrs := []slog.Attr{slog.String("type", b.Type)}
	if b.Type == BackendBleve {
		attrs = append(attrs, slog.String("index_dir", b.IndexDir))
	} else {
		attrs = append(attrs,
			slog.String("url", b.URL),
			slog.String("collection", b.Collection),
		)
	}
	if b.Username != "" {
		attrs = append(attrs, slog.String("username", b.Username), slog.String("password", masked))
	}
	if b.MaxWritesPerSecond > 0 {
		attrs = append(attrs, slog.Float64("max_writes_per_second", b.MaxWritesPerSecond))
	}
	return slog.GroupValue(attrs...)
}

// OwnerSettingsLogValue returns a slog.Value for OwnerSettings with masked data
func OwnerSettingsLogValue(o OwnerSettings) slog.Value {
	token := ""
	if o.GitHubToken != "" {
		token = masked
	}
	return slog.GroupValue(
		slog.String("default_id", o.DefaultID),
		slog.Any("api_hosts", o.APIHosts),
		slog.String("github_token", token),
		slog.String("github_api_url", o.GitHubAPIURL),
	)
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = masked
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", masked),
	)
}
