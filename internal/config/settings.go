package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by the indexer.
const EnvPrefix = "HELINE"

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Backend type constants
const (
	BackendSolr          = "solr"
	BackendElasticsearch = "elasticsearch"
	BackendBleve         = "bleve"
)

// Transport constants
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// BackendSettings configures the search backend chunks are written to.
type BackendSettings struct {
	Type               string        `mapstructure:"type"` // BackendSolr, BackendElasticsearch, or BackendBleve
	URL                string        `mapstructure:"url"`
	Collection         string        `mapstructure:"collection"`
	CommitWithin       int           `mapstructure:"commit_within"` // milliseconds
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxWritesPerSecond float64       `mapstructure:"max_writes_per_second"`
	IndexDir           string        `mapstructure:"index_dir"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
}

// HighlightSettings configures chunking of highlighted rows.
type HighlightSettings struct {
	Window   int `mapstructure:"window"`
	MaxChars int `mapstructure:"max_chars"`
}

// OwnerSettings configures owner id resolution.
type OwnerSettings struct {
	DefaultID    string   `mapstructure:"default_id"`
	NoAPIID      string   `mapstructure:"no_api_id"`
	APIHosts     []string `mapstructure:"api_hosts"`
	GitHubToken  string   `mapstructure:"github_token"`
	GitHubAPIURL string   `mapstructure:"github_api_url"`
	UserAgent    string   `mapstructure:"user_agent"`
}

// MetricsSettings configures run metrics.
type MetricsSettings struct {
	PushURL string `mapstructure:"push_url"`
	Job     string `mapstructure:"job"`
}

// ServeSettings configures the MCP search server.
type ServeSettings struct {
	Transport  string       `mapstructure:"transport"`
	Host       string       `mapstructure:"host"`
	Port       int          `mapstructure:"port"`
	IndexDir   string       `mapstructure:"index_dir"`
	MaxResults int          `mapstructure:"max_results"`
	Auth       AuthSettings `mapstructure:"auth"`
}

// Settings application settings
type Settings struct {
	IndexFile     string        `mapstructure:"index_file"`
	Dest          string        `mapstructure:"dest"`
	Folder        bool          `mapstructure:"folder"`
	DeleteDir     bool          `mapstructure:"delete_dir"`
	DefaultHost   string        `mapstructure:"default_host"`
	DefaultBranch string        `mapstructure:"default_branch"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`
	CloneTimeout  time.Duration `mapstructure:"clone_timeout"`
	MaxFileSize   int64         `mapstructure:"max_file_size"`
	Exclude       []string      `mapstructure:"exclude"`
	LogLevel      string        `mapstructure:"log_level"`

	Backend   BackendSettings   `mapstructure:"backend"`
	Highlight HighlightSettings `mapstructure:"highlight"`
	Owner     OwnerSettings     `mapstructure:"owner"`
	Metrics   MetricsSettings   `mapstructure:"metrics"`
	Serve     ServeSettings     `mapstructure:"serve"`
}

// flagKeys maps CLI flag names to settings keys.
var flagKeys = map[string]string{
	"index-file":            "index_file",
	"dest":                  "dest",
	"folder":                "folder",
	"delete-dir":            "delete_dir",
	"default-host":          "default_host",
	"default-branch":        "default_branch",
	"lock-timeout":          "lock_timeout",
	"clone-timeout":         "clone_timeout",
	"max-file-size":         "max_file_size",
	"exclude":               "exclude",
	"log-level":             "log_level",
	"backend":               "backend.type",
	"base-url":              "backend.url",
	"collection":            "backend.collection",
	"commit-within":         "backend.commit_within",
	"backend-timeout":       "backend.timeout",
	"max-writes-per-second": "backend.max_writes_per_second",
	"index-dir":             "backend.index_dir",
	"window":                "highlight.window",
	"max-chars":             "highlight.max_chars",
	"default-owner-id":      "owner.default_id",
	"github-token":          "owner.github_token",
	"github-api-url":        "owner.github_api_url",
	"metrics-push-url":      "metrics.push_url",
	"transport":             "serve.transport",
	"host":                  "serve.host",
	"port":                  "serve.port",
	"max-results":           "serve.max_results",
	"auth-type":             "serve.auth.type",
	"auth-basic-username":   "serve.auth.basic.username",
	"auth-basic-password":   "serve.auth.basic.password",
	"auth-api-keys":         "serve.auth.api_keys",
}

// serveFlagKeys overrides flagKeys for the flags of the serve command.
var serveFlagKeys = map[string]string{
	"index-dir": "serve.index_dir",
}

// envKeys lists the nested keys bound to HELINE_ prefixed variables.
var envKeys = []string{
	"index_file", "dest", "folder", "delete_dir", "default_host", "default_branch",
	"lock_timeout", "clone_timeout", "max_file_size", "exclude", "log_level",
	"backend.type", "backend.collection", "backend.commit_within", "backend.timeout",
	"backend.max_writes_per_second", "backend.index_dir", "backend.username", "backend.password",
	"highlight.window", "highlight.max_chars",
	"owner.default_id", "owner.no_api_id", "owner.api_hosts", "owner.github_api_url", "owner.user_agent",
	"metrics.push_url", "metrics.job",
	"serve.transport", "serve.host", "serve.port", "serve.index_dir", "serve.max_results",
	"serve.auth.type", "serve.auth.basic.username", "serve.auth.basic.password", "serve.auth.api_keys",
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	return loadSettings(flags, nil)
}

// LoadServeSettingsWithFlags loads settings with the flags of the serve
// command, where --index-dir selects the index to search.
func LoadServeSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	return loadSettings(flags, serveFlagKeys)
}

func loadSettings(flags *pflag.FlagSet, overrides map[string]string) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("dest", "repos")
	v.SetDefault("folder", false)
	v.SetDefault("delete_dir", false)
	v.SetDefault("default_host", "github.com")
	v.SetDefault("default_branch", "master")
	v.SetDefault("lock_timeout", 30*time.Second)
	v.SetDefault("clone_timeout", time.Duration(0))
	v.SetDefault("max_file_size", int64(0))
	v.SetDefault("log_level", "info")

	// Backend defaults
	v.SetDefault("backend.type", BackendSolr)
	v.SetDefault("backend.url", "http://localhost:8984")
	v.SetDefault("backend.collection", "index")
	v.SetDefault("backend.commit_within", 1000)
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.max_writes_per_second", 0.0)
	v.SetDefault("backend.index_dir", defaultIndexDir())

	v.SetDefault("highlight.window", 3)
	v.SetDefault("highlight.max_chars", 2000)

	v.SetDefault("owner.default_id", "00000")
	v.SetDefault("owner.no_api_id", "0000")
	v.SetDefault("owner.api_hosts", []string{"github.com"})
	v.SetDefault("owner.user_agent", "heline-indexer")

	v.SetDefault("metrics.job", "heline_indexer")

	// Serve defaults
	v.SetDefault("serve.transport", TransportStdio)
	v.SetDefault("serve.host", "0.0.0.0")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.max_results", 20)
	v.SetDefault("serve.auth.type", AuthTypeNone)

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		_ = v.BindEnv(key, envName(key))
	}
	// BASE_URL and GITHUB_TOKEN are honoured without the prefix
	_ = v.BindEnv("backend.url", envName("backend.url"), "BASE_URL")
	_ = v.BindEnv("owner.github_token", envName("owner.github_token"), "GITHUB_TOKEN")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for name, key := range flagKeys {
			if k, ok := overrides[name]; ok {
				key = k
			}
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.Exclude = splitAndTrim(settings.Exclude)
	settings.Owner.APIHosts = splitAndTrim(settings.Owner.APIHosts)
	settings.Serve.Auth.APIKeys = splitAndTrim(settings.Serve.Auth.APIKeys)

	settings.Dest = expandHomeDir(settings.Dest)
	settings.Backend.IndexDir = expandHomeDir(settings.Backend.IndexDir)
	settings.Serve.IndexDir = expandHomeDir(settings.Serve.IndexDir)
	if settings.Serve.IndexDir == "" {
		settings.Serve.IndexDir = settings.Backend.IndexDir
	}

	return &settings, nil
}

// envName returns the prefixed environment variable name of a settings key.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// defaultIndexDir returns the default location of the local bleve index
func defaultIndexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".heline-indexer/index.bleve"
	}
	return filepath.Join(home, ".heline-indexer", "index.bleve")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// splitAndTrim splits comma separated entries, trims them and drops empty
// ones. Values from env vars arrive as a single comma separated entry.
func splitAndTrim(values []string) []string {
	var result []string
	for _, value := range values {
		for part := range strings.SplitSeq(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}

// ParseLogLevel parses a slog level name such as "debug" or "warn".
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

// ValidateSettings checks the settings of an index run.
func ValidateSettings(s *Settings) error {
	if s.IndexFile == "" {
		return errors.New("index file is required")
	}
	if s.Dest == "" {
		return errors.New("dest cannot be empty")
	}
	if s.LockTimeout <= 0 {
		return errors.New("lock-timeout must be positive")
	}
	if s.CloneTimeout < 0 {
		return errors.New("clone-timeout cannot be negative")
	}
	if s.MaxFileSize < 0 {
		return errors.New("max-file-size cannot be negative")
	}
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}

	if s.Highlight.Window <= 0 {
		return errors.New("window must be positive")
	}
	if s.Highlight.MaxChars <= 0 {
		return errors.New("max-chars must be positive")
	}

	if err := validateBackendSettings(&s.Backend); err != nil {
		return err
	}

	if s.Metrics.PushURL != "" {
		if err := validateHTTPURL(s.Metrics.PushURL); err != nil {
			return fmt.Errorf("invalid metrics push URL: %w", err)
		}
	}

	return nil
}

// validateBackendSettings validates the search backend configuration
func validateBackendSettings(b *BackendSettings) error {
	switch b.Type {
	case BackendSolr, BackendElasticsearch:
		if err := validateHTTPURL(b.URL); err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
	case BackendBleve:
		if b.IndexDir == "" {
			return errors.New("backend 'bleve' requires an index directory")
		}
	default:
		return errors.New("backend must be 'solr', 'elasticsearch' or 'bleve', got: " + b.Type)
	}

	if b.Timeout < 0 {
		return errors.New("backend-timeout cannot be negative")
	}
	if b.MaxWritesPerSecond < 0 {
		return errors.New("max-writes-per-second cannot be negative")
	}
	return nil
}

// validateHTTPURL checks that raw is an absolute http(s) URL
func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

// ValidateServeSettings checks for conflicting server configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateServeSettings(s *Settings) error {
	// Validate transport type
	switch s.Serve.Transport {
	case TransportStdio, TransportSSE:
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Serve.Transport)
	}

	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}
	if s.Serve.IndexDir == "" {
		return errors.New("serve index directory cannot be empty")
	}
	if s.Serve.MaxResults <= 0 {
		return errors.New("max-results must be positive")
	}

	auth := s.Serve.Auth
	hasBasicCreds := auth.Basic.Username != "" || auth.Basic.Password != ""
	hasAPIKeys := len(auth.APIKeys) > 0

	switch auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if auth.Basic.Username == "" || auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + auth.Type)
	}

	return nil
}
