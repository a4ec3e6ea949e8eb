package classify

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultDenylist contains file patterns that are never indexed: dependency
// directories, build outputs, lockfiles and generated files, and binary or
// media files. Cargo.lock is indexed as TOML.
var DefaultDenylist = []string{
	// Dependencies
	"node_modules/**", "vendor/**", "venv/**", ".venv/**",
	"target/**", "build/**", "dist/**", "out/**",
	".git/**", "__pycache__/**", ".pytest_cache/**",
	".gradle/**", ".m2/**", ".npm/**", ".yarn/**",

	// Generated files
	"*.min.js", "*.min.css", "*.map", "*.pb.go",
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "npm-shrinkwrap.json",
	"go.sum", "poetry.lock",

	// Images
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.ico", "*.svg",
	"*.bmp", "*.tiff", "*.webp", "*.psd",

	// Fonts
	"*.woff", "*.woff2", "*.ttf", "*.eot", "*.otf",

	// Archives
	"*.zip", "*.tar", "*.gz", "*.rar", "*.7z", "*.bz2", "*.xz",
	"*.jar", "*.war", "*.ear",

	// Executables and libraries
	"*.exe", "*.dll", "*.so", "*.dylib", "*.a", "*.lib",
	"*.class", "*.pyc", "*.pyo", "*.o", "*.obj",

	// Documents
	"*.pdf", "*.doc", "*.docx", "*.xls", "*.xlsx", "*.ppt", "*.pptx",

	// Other
	"*.db", "*.sqlite", "*.sqlite3",
	"*.mp3", "*.mp4", "*.wav", "*.avi", "*.mov", "*.mkv",
}

// FileFilter determines which files should be included in indexing.
type FileFilter struct {
	patterns    []string
	maxFileSize int64
}

// NewFileFilter creates a FileFilter with the default denylist and any
// extra glob patterns.
func NewFileFilter(maxFileSize int64, extraPatterns ...string) *FileFilter {
	patterns := make([]string, 0, len(DefaultDenylist)+len(extraPatterns))
	patterns = append(patterns, DefaultDenylist...)
	for _, p := range extraPatterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return &FileFilter{
		patterns:    patterns,
		maxFileSize: maxFileSize,
	}
}

// ShouldExclude returns true if the given path matches any exclusion pattern.
// The path should be relative to the repository root.
func (f *FileFilter) ShouldExclude(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range f.patterns {
		if matchPattern(pattern, relPath) {
			return true
		}
	}
	return false
}

// ShouldExcludeDir reports whether every file below the directory relDir is
// excluded by a dir/** pattern, so the walk can skip it.
func (f *FileFilter) ShouldExcludeDir(relDir string) bool {
	relDir = strings.TrimSuffix(filepath.ToSlash(relDir), "/")
	for _, pattern := range f.patterns {
		if strings.HasSuffix(pattern, "/**") && matchPattern(pattern, relDir+"/") {
			return true
		}
	}
	return false
}

// TooLarge reports whether size exceeds the configured limit. A zero limit
// means unlimited.
func (f *FileFilter) TooLarge(size int64) bool {
	return f.maxFileSize > 0 && size > f.maxFileSize
}

// MaxFileSize returns the maximum file size for indexing.
func (f *FileFilter) MaxFileSize() int64 {
	return f.maxFileSize
}

// matchPattern matches a slash separated path against a glob pattern.
// Supports a dir/** suffix for directory contents at any depth; other
// patterns match the full path or the base name.
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/**") {
		dir := pattern[:len(pattern)-3]
		parts := strings.Split(path, "/")
		for i, part := range parts {
			if part == dir && i < len(parts)-1 {
				return true
			}
		}
		return false
	}

	if pattern == path || pattern == filepath.Base(path) {
		return true
	}

	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(strings.ToLower(path), strings.ToLower(pattern[1:]))
	}

	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, filepath.Base(path))
	return matched
}

// IsBinary checks if the content appears to be binary by looking for null bytes
// in the first 512 bytes. This is a heuristic used by git and other tools.
func IsBinary(content []byte) bool {
	checkLen := min(len(content), 512)

	for i := range checkLen {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

// IsText reports whether content decodes as UTF-8 and looks like text.
func IsText(content []byte) bool {
	return utf8.Valid(content) && !IsBinary(content)
}
