// Package pipeline indexes repositories: it acquires working copies, walks
// and classifies their files, renders them to highlighted rows, batches the
// rows into chunks and upserts the chunks into the search backend.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/sha1n/heline-indexer/internal/classify"
	"github.com/sha1n/heline-indexer/internal/domain"
	"github.com/sha1n/heline-indexer/internal/gitrepos"
	"github.com/sha1n/heline-indexer/internal/highlight"
	"github.com/sha1n/heline-indexer/internal/index"
	"github.com/sha1n/heline-indexer/internal/metrics"
	"github.com/sha1n/heline-indexer/internal/owner"
)

// Config holds the values fixed for the duration of a run.
type Config struct {
	// Root is the destination folder holding the working copies.
	Root string
	// FolderMode indexes already present folders and never clones.
	FolderMode bool
	// DeleteAfter removes each working copy once it has been indexed.
	DeleteAfter bool
	// DefaultHost is used for locators without a host.
	DefaultHost string
	// DefaultBranch is reported when HEAD cannot be read.
	DefaultBranch string
	// DefaultOwnerID is used when the owner id cannot be resolved.
	DefaultOwnerID string
}

// Acquirer makes sure a working copy exists and returns its path.
type Acquirer interface {
	Acquire(ctx context.Context, target gitrepos.RepoTarget) (string, error)
}

// FileSource yields the classified files of a working copy.
type FileSource interface {
	Files(root string) iter.Seq2[classify.ClassifiedFile, error]
}

// Chunker groups highlighted rows into chunks.
type Chunker interface {
	Chunks(rows []string) [][]string
}

// ChunkWriter writes a chunk and advances the per-file write state.
type ChunkWriter interface {
	Write(ctx context.Context, state *index.WriteState, chunk domain.HighlightChunk) (index.Op, error)
}

// CommitReader reads the HEAD commit of a working copy.
type CommitReader interface {
	HeadCommit(ctx context.Context, repoDir string) (string, error)
}

// Ledger records per-repository outcomes.
type Ledger interface {
	RecordSuccess(repoID string, state gitrepos.RepoState)
	RecordError(repoID, locator string, err error)
}

// Recorder receives run metrics.
type Recorder interface {
	RepositoryDone(result string, d time.Duration)
	FileIndexed()
	FileSkipped(reason string)
	ChunkWritten(op string)
	WriteFailed(op string)
}

// Deps are the collaborators of a Pipeline. Acquirer, Resolver, Renderer and
// Writer are required.
type Deps struct {
	Acquirer Acquirer
	Resolver owner.Resolver
	Commits  CommitReader // optional
	Files    FileSource
	Renderer highlight.Renderer
	Chunker  Chunker
	Writer   ChunkWriter
	Ledger   Ledger
	Recorder Recorder
	Logger   *slog.Logger
}

// RepoContext describes an acquired working copy ready to be indexed.
type RepoContext struct {
	Target  gitrepos.RepoTarget
	Dir     string
	Branch  string
	OwnerID string
}

// RepoResult is the outcome of processing one locator.
type RepoResult struct {
	Locator  string
	Target   gitrepos.RepoTarget
	Branch   string
	Commit   string
	OwnerID  string
	Files    int
	Skipped  int
	Chunks   int
	Failures int
	Duration time.Duration
	// Result is one of the metrics.Result* values.
	Result string
	Err    error
}

// Summary aggregates the results of a run.
type Summary struct {
	Results  []RepoResult
	Indexed  int
	Failed   int
	Files    int
	Skipped  int
	Chunks   int
	Failures int
}

func (s *Summary) add(r RepoResult) {
	s.Results = append(s.Results, r)
	if r.Result == metrics.ResultIndexed {
		s.Indexed++
	} else {
		s.Failed++
	}
	s.Files += r.Files
	s.Skipped += r.Skipped
	s.Chunks += r.Chunks
	s.Failures += r.Failures
}

// Pipeline indexes repositories one at a time, files in walk order.
type Pipeline struct {
	cfg      Config
	acquirer Acquirer
	resolver owner.Resolver
	commits  CommitReader
	files    FileSource
	renderer highlight.Renderer
	chunker  Chunker
	writer   ChunkWriter
	ledger   Ledger
	recorder Recorder
	logger   *slog.Logger

	totalFiles int
}

// New creates a Pipeline. Missing optional collaborators get defaults: the
// default walker, the default batcher, and no ledger or metrics.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	switch {
	case deps.Acquirer == nil:
		return nil, errors.New("acquirer cannot be nil")
	case deps.Resolver == nil:
		return nil, errors.New("owner resolver cannot be nil")
	case deps.Renderer == nil:
		return nil, errors.New("renderer cannot be nil")
	case deps.Writer == nil:
		return nil, errors.New("chunk writer cannot be nil")
	}

	if cfg.DefaultBranch == "" {
		cfg.DefaultBranch = gitrepos.DefaultBranch
	}
	if cfg.DefaultOwnerID == "" {
		cfg.DefaultOwnerID = owner.DefaultOwnerID
	}
	if cfg.DefaultHost == "" {
		cfg.DefaultHost = gitrepos.DefaultHost
	}

	p := &Pipeline{
		cfg:      cfg,
		acquirer: deps.Acquirer,
		resolver: deps.Resolver,
		commits:  deps.Commits,
		files:    deps.Files,
		renderer: deps.Renderer,
		chunker:  deps.Chunker,
		writer:   deps.Writer,
		ledger:   deps.Ledger,
		recorder: deps.Recorder,
		logger:   deps.Logger,
	}
	if p.files == nil {
		p.files = classify.NewWalker(nil)
	}
	if p.chunker == nil {
		p.chunker = highlight.NewBatcher(highlight.DefaultWindow, highlight.DefaultMaxChars)
	}
	if p.ledger == nil {
		p.ledger = nopLedger{}
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// TotalFiles returns the number of files indexed by this pipeline so far.
func (p *Pipeline) TotalFiles() int {
	return p.totalFiles
}

// Run processes every locator in order. Failures of a single repository are
// logged and recorded and never stop the run; only ctx cancellation does.
func (p *Pipeline) Run(ctx context.Context, locators []string) Summary {
	var summary Summary
	for _, locator := range locators {
		if err := ctx.Err(); err != nil {
			p.logger.WarnContext(ctx, "Run interrupted", "remaining", len(locators)-len(summary.Results), "error", err)
			break
		}
		summary.add(p.processLocator(ctx, locator))
	}

	p.logger.InfoContext(ctx, "Run complete",
		"repositories", len(summary.Results),
		"indexed", summary.Indexed,
		"failed", summary.Failed,
		"files", summary.Files,
		"skipped", summary.Skipped,
		"chunks", summary.Chunks,
		"write_failures", summary.Failures,
	)
	return summary
}

func (p *Pipeline) processLocator(ctx context.Context, locator string) (res RepoResult) {
	start := time.Now()
	res.Locator = locator
	defer func() {
		res.Duration = time.Since(start)
		p.recorder.RepositoryDone(res.Result, res.Duration)
	}()

	target, err := gitrepos.ParseLocator(locator, p.cfg.DefaultHost)
	if err != nil {
		p.logger.WarnContext(ctx, "Skipping repository", "locator", locator, "error", err)
		res.Result, res.Err = metrics.ResultInvalid, err
		return res
	}
	res.Target = target
	repoID := gitrepos.TargetToRepoID(target)

	dir, err := p.acquirer.Acquire(ctx, target)
	if err != nil {
		res.Err = err
		if errors.Is(err, gitrepos.ErrWorkingCopyMissing) {
			p.logger.WarnContext(ctx, "Folder not found", "repo", target.Display(), "error", err)
			res.Result = metrics.ResultMissing
		} else {
			p.logger.ErrorContext(ctx, "Failed to acquire repository", "repo", target.Display(), "error", err)
			res.Result = metrics.ResultFailed
		}
		p.ledger.RecordError(repoID, locator, err)
		return res
	}

	res.Branch = gitrepos.DetectBranch(dir, p.cfg.DefaultBranch)
	res.Commit = p.headCommit(ctx, dir)
	res.OwnerID = p.resolveOwner(ctx, target)

	indexed := p.IndexRepository(ctx, RepoContext{
		Target:  target,
		Dir:     dir,
		Branch:  res.Branch,
		OwnerID: res.OwnerID,
	})
	res.Files, res.Skipped, res.Chunks, res.Failures = indexed.Files, indexed.Skipped, indexed.Chunks, indexed.Failures

	if indexed.Err != nil {
		res.Result, res.Err = metrics.ResultFailed, indexed.Err
		p.ledger.RecordError(repoID, locator, indexed.Err)
	} else {
		res.Result = metrics.ResultIndexed
		p.ledger.RecordSuccess(repoID, gitrepos.RepoState{
			Locator:     locator,
			Branch:      res.Branch,
			Commit:      res.Commit,
			OwnerID:     res.OwnerID,
			LastIndexed: time.Now(),
			FileCount:   res.Files,
			ChunkCount:  res.Chunks,
			Skipped:     res.Skipped,
			Failures:    res.Failures,
		})
	}

	if p.cfg.DeleteAfter {
		gitrepos.RemoveWorkingCopy(dir)
	}

	if res.Files == 0 && res.Skipped == 0 && res.Err == nil {
		p.logger.WarnContext(ctx, "Folder not found", "repo", target.Display(), "dir", dir, "reason", "no files")
	}

	p.logger.InfoContext(ctx, "Done indexing",
		"repo", target.Display(),
		"branch", res.Branch,
		"commit", res.Commit,
		"files", res.Files,
		"skipped", res.Skipped,
		"chunks", res.Chunks,
		"total_files", p.totalFiles,
	)
	return res
}

// headCommit returns the HEAD commit of dir, or "" when it cannot be read.
func (p *Pipeline) headCommit(ctx context.Context, dir string) string {
	if p.commits == nil {
		return ""
	}
	commit, err := p.commits.HeadCommit(ctx, dir)
	if err != nil {
		p.logger.DebugContext(ctx, "Failed to read HEAD commit", "dir", dir, "error", err)
		return ""
	}
	return commit
}

// resolveOwner returns the owner id of target, degrading to the default id.
func (p *Pipeline) resolveOwner(ctx context.Context, target gitrepos.RepoTarget) string {
	id, err := p.resolver.ResolveOwnerID(ctx, target.Host, target.Owner())
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to resolve owner id, using default",
			"repo", target.Display(), "default", p.cfg.DefaultOwnerID, "error", err)
		return p.cfg.DefaultOwnerID
	}
	return id
}

// IndexRepository indexes every file of an acquired working copy. Skipped
// files and failed writes are counted; Err is only set when the walk itself
// failed.
func (p *Pipeline) IndexRepository(ctx context.Context, rc RepoContext) RepoResult {
	res := RepoResult{
		Locator: rc.Target.Locator,
		Target:  rc.Target,
		Branch:  rc.Branch,
		OwnerID: rc.OwnerID,
	}

	for file, err := range p.files.Files(rc.Dir) {
		if err != nil {
			if errors.Is(err, classify.ErrFileSkipped) {
				reason := classify.SkipReason(err)
				p.logger.WarnContext(ctx, "Skipping file", "repo", rc.Target.Display(), "reason", reason, "error", err)
				p.recorder.FileSkipped(reason)
				res.Skipped++
				continue
			}
			p.logger.ErrorContext(ctx, "Failed to walk working copy", "dir", rc.Dir, "error", err)
			res.Err = err
			continue
		}

		if ctx.Err() != nil {
			res.Err = ctx.Err()
			break
		}

		p.totalFiles++
		p.logger.DebugContext(ctx, "Indexing file", "path", file.RelativePath, "lang", file.Language, "total", p.totalFiles)

		chunks, failures, err := p.indexFile(ctx, rc, file)
		if err != nil {
			p.logger.WarnContext(ctx, "Skipping file", "path", file.RelativePath, "reason", "render_failed", "error", err)
			p.recorder.FileSkipped("render_failed")
			res.Skipped++
			continue
		}
		res.Files++
		res.Chunks += chunks
		res.Failures += failures
		p.recorder.FileIndexed()
	}
	return res
}

// indexFile renders a file, batches its rows and writes the chunks. It
// returns the number of written and failed chunks; an error means the file
// could not be rendered and nothing was written.
func (p *Pipeline) indexFile(ctx context.Context, rc RepoContext, file classify.ClassifiedFile) (written, failed int, err error) {
	markup, err := p.renderer.Render(string(file.Content), file.Language)
	if err != nil {
		return 0, 0, err
	}
	rows, err := highlight.ExtractRows(markup)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", highlight.ErrRenderFailed, err)
	}

	base := domain.HighlightChunk{
		DocumentID: domain.DocumentID(rc.Target.OwnerPath, file.RelativePath),
		FileID:     domain.FileID(rc.Target.Host, rc.Target.OwnerPath, file.RelativePath),
		OwnerID:    rc.OwnerID,
		RelDir:     domain.RelDir(file.RelativePath),
		Repo:       rc.Target.OwnerPath,
		Branch:     rc.Branch,
		Language:   file.Language,
	}

	state := index.NotWritten
	for _, lines := range p.chunker.Chunks(rows) {
		chunk := base
		chunk.Lines = lines

		op, err := p.writer.Write(ctx, &state, chunk)
		if err != nil {
			p.logger.WarnContext(ctx, "Backend write failed", "id", chunk.DocumentID, "op", op, "error", err)
			p.recorder.WriteFailed(string(op))
			failed++
			continue
		}
		p.recorder.ChunkWritten(string(op))
		written++
	}
	return written, failed, nil
}

type nopLedger struct{}

func (nopLedger) RecordSuccess(string, gitrepos.RepoState) {}
func (nopLedger) RecordError(string, string, error)        {}

type nopRecorder struct{}

func (nopRecorder) RepositoryDone(string, time.Duration) {}
func (nopRecorder) FileIndexed()                         {}
func (nopRecorder) FileSkipped(string)                   {}
func (nopRecorder) ChunkWritten(string)                  {}
func (nopRecorder) WriteFailed(string)                   {}
