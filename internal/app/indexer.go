package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/sha1n/heline-indexer/internal/classify"
	"github.com/sha1n/heline-indexer/internal/config"
	"github.com/sha1n/heline-indexer/internal/gitrepos"
	"github.com/sha1n/heline-indexer/internal/highlight"
	"github.com/sha1n/heline-indexer/internal/index"
	"github.com/sha1n/heline-indexer/internal/metrics"
	"github.com/sha1n/heline-indexer/internal/owner"
	"github.com/sha1n/heline-indexer/internal/pipeline"
)

// IndexParams contains dependencies for the index run
type IndexParams struct {
	LoadSettings  func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
	NewStore      func(*config.BackendSettings) (index.Store, error)
	NewResolver   func(context.Context, *config.OwnerSettings) (owner.Resolver, error)
	NewRenderer   func() highlight.Renderer
	GitClient     *gitrepos.GitClient
	LogOutput     io.Writer // Optional: defaults to stderr
}

// DefaultIndexParams returns production dependencies
func DefaultIndexParams() IndexParams {
	return IndexParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		NewStore:      index.NewStore,
		NewResolver:   NewOwnerResolver,
		NewRenderer:   func() highlight.Renderer { return highlight.NewChromaRenderer() },
		GitClient:     gitrepos.NewGitClient(),
	}
}

// RunIndex loads the settings and indexes every repository listed in the
// index file. Only startup failures are returned: settings, the index file,
// the run lock, the run state ledger and the backend. Failures of single
// repositories, files or writes are logged and the run continues.
func RunIndex(ctx context.Context, params IndexParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runID := uuid.NewString()
	logger := newLogger(params.LogOutput, settings.LogLevel).With("run_id", runID)
	slog.SetDefault(logger)

	logger.InfoContext(ctx, "Starting heline indexer", "version", version)
	config.LogWithLogger(settings, logger)

	locators, err := gitrepos.LoadLocators(settings.IndexFile)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Loaded index file", "path", settings.IndexFile, "repositories", len(locators))

	if err := os.MkdirAll(settings.Dest, 0755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	lock := gitrepos.NewFileLock(filepath.Join(settings.Dest, gitrepos.LockFilename))
	if err := lock.Acquire(ctx, settings.LockTimeout); err != nil {
		return fmt.Errorf("failed to lock %s: %w", settings.Dest, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Error("Failed to unlock", "error", err)
		}
	}()

	manifestPath := filepath.Join(settings.Dest, gitrepos.ManifestFilename)
	manifest, err := gitrepos.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	store, err := params.NewStore(&settings.Backend)
	if err != nil {
		return fmt.Errorf("failed to create backend store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close backend store", "error", err)
		}
	}()

	resolver, err := params.NewResolver(ctx, &settings.Owner)
	if err != nil {
		return fmt.Errorf("failed to create owner resolver: %w", err)
	}

	git := params.GitClient
	if git == nil {
		git = gitrepos.NewGitClient()
	}
	renderer := highlight.Renderer(highlight.NewChromaRenderer())
	if params.NewRenderer != nil {
		renderer = params.NewRenderer()
	}

	recorder := metrics.New()
	p, err := pipeline.New(pipeline.Config{
		Root:           settings.Dest,
		FolderMode:     settings.Folder,
		DeleteAfter:    settings.DeleteDir,
		DefaultHost:    settings.DefaultHost,
		DefaultBranch:  settings.DefaultBranch,
		DefaultOwnerID: settings.Owner.DefaultID,
	}, pipeline.Deps{
		Acquirer: gitrepos.NewAcquirer(gitrepos.AcquirerOptions{
			Root:         settings.Dest,
			FolderMode:   settings.Folder,
			CloneTimeout: settings.CloneTimeout,
		}, git),
		Resolver: resolver,
		Commits:  git,
		Files:    classify.NewWalker(classify.NewFileFilter(settings.MaxFileSize, settings.Exclude...)),
		Renderer: renderer,
		Chunker:  highlight.NewBatcher(settings.Highlight.Window, settings.Highlight.MaxChars),
		Writer:   index.NewUpserter(store),
		Ledger:   manifest,
		Recorder: recorder,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	summary := p.Run(ctx, locators)

	finished := time.Now()
	manifest.MarkRun(finished)
	if err := manifest.Save(manifestPath); err != nil {
		logger.Error("Failed to save run state", "path", manifestPath, "error", err)
	}
	recorder.RunFinished(finished)

	if settings.Metrics.PushURL != "" {
		if err := recorder.Push(ctx, settings.Metrics.PushURL, settings.Metrics.Job, runID); err != nil {
			logger.Warn("Failed to push metrics", "url", settings.Metrics.PushURL, "error", err)
		}
	}

	for repoID, msg := range manifest.ReposWithErrors() {
		logger.Debug("Repository has errors", "repo_id", repoID, "error", msg)
	}
	if summary.Failed > 0 {
		logger.Warn("Some repositories were not indexed", "failed", summary.Failed, "total", len(locators))
	}
	return ctx.Err()
}

// NewOwnerResolver creates the owner resolver of an index run: the GitHub
// API for the configured API hosts and a constant id for all other hosts.
func NewOwnerResolver(ctx context.Context, settings *config.OwnerSettings) (owner.Resolver, error) {
	resolver := owner.NewHostResolver(settings.NoAPIID)
	if len(settings.APIHosts) == 0 {
		return resolver, nil
	}

	gh, err := owner.NewGitHubResolver(ctx, owner.GitHubOptions{
		Token:     settings.GitHubToken,
		BaseURL:   settings.GitHubAPIURL,
		UserAgent: settings.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	for _, host := range settings.APIHosts {
		resolver.Register(host, gh)
	}
	return resolver, nil
}

// newLogger creates the command logger, writing to stderr to keep stdout
// free for the stdio transport.
func newLogger(w io.Writer, levelName string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, err := config.ParseLogLevel(levelName)
	if err != nil {
		level = slog.LevelInfo
	}
	return config.NewLogger(w, level)
}
