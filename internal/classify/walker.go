package classify

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

const gitignoreFile = ".gitignore"

// ErrFileSkipped is wrapped by every SkipError.
var ErrFileSkipped = errors.New("file skipped")

// Skip reasons reported by the walker.
const (
	ReasonDenylisted = "denylisted"
	ReasonEmpty      = "empty"
	ReasonUnreadable = "unreadable"
	ReasonTooLarge   = "too_large"
)

// SkipError describes a file that was visited but not classified.
type SkipError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SkipError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Is reports ErrFileSkipped so callers can use errors.Is.
func (e *SkipError) Is(target error) bool {
	return target == ErrFileSkipped
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// ClassifiedFile is a regular file from a working copy with its language tag.
type ClassifiedFile struct {
	AbsolutePath string
	RelativePath string // slash separated, relative to the walk root
	Language     string
	Content      []byte
}

// Walker enumerates the indexable files under a directory.
type Walker struct {
	filter *FileFilter
}

// NewWalker creates a Walker. A nil filter uses the default denylist with no
// size limit.
func NewWalker(filter *FileFilter) *Walker {
	if filter == nil {
		filter = NewFileFilter(0)
	}
	return &Walker{filter: filter}
}

// Files lazily yields every regular file under root in lexical walk order.
// Hidden entries (including .git directories and files) are pruned, as are
// paths ignored by a .gitignore and directories matching a dir/** exclusion.
// Other files that cannot be indexed are yielded as *SkipError; an error
// walking root itself is yielded once and ends the walk.
func (w *Walker) Files(root string) iter.Seq2[ClassifiedFile, error] {
	return func(yield func(ClassifiedFile, error) bool) {
		stopped := false
		ignore := &ignoreRules{}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if path == root {
					return walkErr
				}
				if !yield(ClassifiedFile{}, &SkipError{Path: path, Reason: ReasonUnreadable, Err: walkErr}) {
					stopped = true
					return fs.SkipAll
				}
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if path == root {
				if d.IsDir() {
					ignore.load(root, "")
				}
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if isHidden(d.Name()) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if ignore.ignored(rel, true) || w.filter.ShouldExcludeDir(rel) {
					return fs.SkipDir
				}
				ignore.load(root, rel)
				return nil
			}
			if !d.Type().IsRegular() || ignore.ignored(rel, false) {
				return nil
			}

			file, err := w.classify(rel, path, d)
			if !yield(file, err) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(ClassifiedFile{}, fmt.Errorf("walk %s: %w", root, err))
		}
	}
}

func (w *Walker) classify(rel, path string, d fs.DirEntry) (ClassifiedFile, error) {
	if w.filter.ShouldExclude(rel) {
		return ClassifiedFile{}, &SkipError{Path: rel, Reason: ReasonDenylisted}
	}

	info, err := d.Info()
	if err != nil {
		return ClassifiedFile{}, &SkipError{Path: rel, Reason: ReasonUnreadable, Err: err}
	}
	if info.Size() == 0 {
		return ClassifiedFile{}, &SkipError{Path: rel, Reason: ReasonEmpty}
	}
	if w.filter.TooLarge(info.Size()) {
		return ClassifiedFile{}, &SkipError{Path: rel, Reason: ReasonTooLarge}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ClassifiedFile{}, &SkipError{Path: rel, Reason: ReasonUnreadable, Err: err}
	}
	if !IsText(content) {
		return ClassifiedFile{}, &SkipError{Path: rel, Reason: ReasonUnreadable}
	}

	return ClassifiedFile{
		AbsolutePath: path,
		RelativePath: rel,
		Language:     Classify(d.Name(), content),
		Content:      content,
	}, nil
}

// isHidden reports whether a file or directory name is hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// ignoreRules collects the .gitignore patterns found during a walk. Patterns
// are scoped to the directory of their .gitignore.
type ignoreRules struct {
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
}

// load reads the .gitignore of the directory relDir ("" for the root).
func (r *ignoreRules) load(root, relDir string) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relDir), gitignoreFile))
	if err != nil {
		return
	}

	var domain []string
	if relDir != "" {
		domain = strings.Split(relDir, "/")
	}
	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		r.patterns = append(r.patterns, gitignore.ParsePattern(line, domain))
	}
	r.matcher = gitignore.NewMatcher(r.patterns)
}

// ignored reports whether rel is excluded by the patterns loaded so far.
func (r *ignoreRules) ignored(rel string, isDir bool) bool {
	return r.matcher != nil && r.matcher.Match(strings.Split(rel, "/"), isDir)
}

// SkipReason returns the reason of a *SkipError, or "" for other errors.
func SkipReason(err error) string {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip.Reason
	}
	return ""
}
