package highlight

import (
	"strconv"
	"strings"
	"testing"

	"github.com/alecthomas/chroma/v2/lexers"
)

func TestChromaRenderer_OneRowPerLine(t *testing.T) {
	r := NewChromaRenderer()

	tests := []struct {
		name     string
		source   string
		language string
		rows     int
	}{
		{name: "go with trailing newline", source: "package main\n\nfunc main() {}\n", language: "Go", rows: 3},
		{name: "raw without trailing newline", source: "a\nb", language: "Raw", rows: 2},
		{name: "blank lines kept", source: "a\n\n\nb\n", language: "Raw", rows: 4},
		{name: "single line", source: "echo hi\n", language: "Shell", rows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup, err := r.Render(tt.source, tt.language)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if !strings.HasPrefix(markup, `<table class="highlight-table">`) {
				t.Errorf("Unexpected markup prefix: %.60s", markup)
			}

			rows, err := ExtractRows(markup)
			if err != nil {
				t.Fatalf("ExtractRows failed: %v", err)
			}
			if len(rows) != tt.rows {
				t.Fatalf("rows = %d, want %d:\n%s", len(rows), tt.rows, strings.Join(rows, "\n"))
			}
			for i, row := range rows {
				want := `id="L` + strconv.Itoa(i+1) + `"`
				if !strings.Contains(row, want) {
					t.Errorf("row %d missing %s: %s", i, want, row)
				}
			}
		})
	}
}

func TestChromaRenderer_EscapesAndHighlights(t *testing.T) {
	markup, err := NewChromaRenderer().Render("package main\n\nvar ok = 1 < 2\n", "Go")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(markup, "1 < 2") {
		t.Error("Expected source text to be HTML escaped")
	}
	if !strings.Contains(markup, "&lt;") {
		t.Error("Expected escaped comparison operator")
	}
	if !strings.Contains(markup, `<span class="`) {
		t.Error("Expected token spans")
	}
	if !strings.Contains(markup, ">package</span>") {
		t.Error("Expected keyword token span")
	}
}

func TestChromaRenderer_Deterministic(t *testing.T) {
	r := NewChromaRenderer()
	src := "def hello\n  puts 'hi'\nend\n"
	a, err := r.Render(src, "Ruby")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Render(src, "Ruby")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("Render should be deterministic")
	}
}

func TestLexerFor(t *testing.T) {
	tests := []struct {
		name     string
		language string
		source   string
		want     string
	}{
		{name: "direct name", language: "Go", want: "Go"},
		{name: "shell alias", language: "Shell", want: "Bash"},
		{name: "gemfile alias", language: "Gemfile", want: "Ruby"},
		{name: "raw is plain text", language: "Raw", want: "plaintext"},
		{name: "unknown tag sniffs interpreter", language: "zzqq", source: "#!/usr/bin/env bash\necho\n", want: "Bash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := lexerFor(tt.language, tt.source)
			if lexer == nil {
				t.Fatal("Expected a lexer")
			}
			if got := lexer.Config().Name; got != tt.want {
				t.Errorf("lexer = %q, want %q", got, tt.want)
			}
		})
	}

	if lexerFor("zzqq", "plain words\n") != lexers.Fallback {
		t.Error("Expected fallback lexer for unknown tag without interpreter line")
	}
}
