package classify

import (
	"bytes"
	"path/filepath"
	"strings"
)

// RawLanguage is assigned when nothing identifies a file's language.
const RawLanguage = "Raw"

// filenameLanguages maps conventionally named files to a language.
var filenameLanguages = map[string]string{
	"Dockerfile":     "Dockerfile",
	"Containerfile":  "Dockerfile",
	"Makefile":       "Makefile",
	"GNUmakefile":    "Makefile",
	"Jenkinsfile":    "Groovy",
	"Gemfile":        "Gemfile",
	"Rakefile":       "Rakefile",
	"Vagrantfile":    "Ruby",
	"Podfile":        "Ruby",
	"Brewfile":       "Ruby",
	"CMakeLists.txt": "CMake",
	"Cargo.lock":     "TOML",
	"Gemfile.lock":   "Gemfile",
	"Pipfile":        "TOML",
	"Pipfile.lock":   "JSON",
	"go.sum":         "Raw",
}

// extensionLanguages maps lowercase file extensions (without the dot) to a
// language.
var extensionLanguages = map[string]string{
	"sh":       "Shell",
	"bash":     "Shell",
	"zsh":      "Shell",
	"c":        "C",
	"h":        "C",
	"cpp":      "C++",
	"c++":      "C++",
	"cc":       "C++",
	"cxx":      "C++",
	"hpp":      "C++",
	"hh":       "C++",
	"cs":       "C#",
	"go":       "Go",
	"java":     "Java",
	"groovy":   "Groovy",
	"gradle":   "Groovy",
	"js":       "JavaScript",
	"mjs":      "JavaScript",
	"cjs":      "JavaScript",
	"jsx":      "JavaScript",
	"ts":       "TypeScript",
	"tsx":      "TypeScript",
	"py":       "Python",
	"rb":       "Ruby",
	"ru":       "Ruby",
	"podspec":  "Ruby",
	"gemspec":  "Ruby",
	"rs":       "Rust",
	"php":      "PHP",
	"lua":      "Lua",
	"hs":       "Haskell",
	"kt":       "Kotlin",
	"kts":      "Kotlin",
	"dart":     "Dart",
	"nim":      "Nim",
	"md":       "Markdown",
	"markdown": "Markdown",
	"adoc":     "Markdown",
	"yml":      "YAML",
	"yaml":     "YAML",
	"toml":     "TOML",
	"html":     "HTML",
	"htm":      "HTML",
	"css":      "CSS",
	"json":     "JSON",
	"proto":    "Protocol Buffer",
	"patch":    "Diff",
	"diff":     "Diff",
	"clj":      "Clojure",
	"edn":      "edn",
	"cu":       "CUDA",
	"lock":     RawLanguage,
}

// interpreterSignature maps an interpreter line prefix to a language.
type interpreterSignature struct {
	prefix   string
	language string
}

// interpreterSignatures are checked in order against the start of a file.
var interpreterSignatures = []interpreterSignature{
	{"#!/bin/sh", "Shell"},
	{"#!/bin/bash", "Shell"},
	{"#!/usr/bin/env bash", "Shell"},
	{"#!/usr/bin/env sh", "Shell"},
	{"#!/usr/bin/env zsh", "Shell"},
	{"#!/usr/bin/env ruby", "Ruby"},
	{"#!/usr/bin/env php", "PHP"},
	{"@ruby", "Ruby"},
}

// Classify returns the language tag of a file from its base name and, when
// neither the name nor the extension is recognised, its content.
//
// Precedence: exact filename, then extension (unknown extensions pass
// through as is), then the interpreter line of extensionless files.
//
// Examples:
//   - "main.go" -> "Go"
//   - "Dockerfile" -> "Dockerfile"
//   - "Cargo.lock" -> "TOML"
//   - "build.foo" -> "foo"
//   - "deploy" starting with "#!/usr/bin/env bash" -> "Shell"
func Classify(name string, content []byte) string {
	base := filepath.Base(name)
	if lang, ok := filenameLanguages[base]; ok {
		return lang
	}

	ext := Extension(base)
	if ext != "" {
		if lang, ok := extensionLanguages[strings.ToLower(ext)]; ok {
			return lang
		}
		return ext
	}

	if lang, ok := SniffInterpreter(content); ok {
		return lang
	}
	return RawLanguage
}

// SniffInterpreter matches the start of content against the known
// interpreter signatures. Content must extend past the signature.
func SniffInterpreter(content []byte) (string, bool) {
	for _, sig := range interpreterSignatures {
		if len(content) > len(sig.prefix) && bytes.HasPrefix(content, []byte(sig.prefix)) {
			return sig.language, true
		}
	}
	return "", false
}

// Extension returns the extension of a file name without the leading dot.
// Dotfiles without a further dot, like ".bashrc", have no extension.
func Extension(name string) string {
	base := filepath.Base(name)
	if strings.LastIndex(base, ".") <= 0 {
		return ""
	}
	return strings.TrimPrefix(filepath.Ext(base), ".")
}
