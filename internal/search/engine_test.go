package search

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sha1n/heline-indexer/internal/domain"
	"github.com/sha1n/heline-indexer/internal/highlight"
	"github.com/sha1n/heline-indexer/internal/index"
)

type testFile struct {
	repo string
	path string
	lang string
	src  string
}

var testFiles = []testFile{
	{
		repo: "org/repo",
		path: "main.go",
		lang: "Go",
		src:  "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hello\")\n}\n",
	},
	{
		repo: "org/repo",
		path: "scripts/build.py",
		lang: "Python",
		src:  "def build():\n    print(\"building\")\n",
	},
	{
		repo: "org/other",
		path: "util/strings.go",
		lang: "Go",
		src:  "package util\n\nfunc Shout(s string) string {\n\treturn s + \"!\"\n}\n",
	},
}

// newTestEngine indexes testFiles the way an index run writes them.
func newTestEngine(t *testing.T, maxResults int) *Engine {
	t.Helper()
	store, err := index.OpenBleveStore(filepath.Join(t.TempDir(), "index.bleve"))
	if err != nil {
		t.Fatalf("OpenBleveStore failed: %v", err)
	}

	ctx := context.Background()
	renderer := highlight.NewChromaRenderer()
	batcher := highlight.NewBatcher(3, 1)
	upserter := index.NewUpserter(store)

	for _, f := range testFiles {
		markup, err := renderer.Render(f.src, f.lang)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		rows, err := highlight.ExtractRows(markup)
		if err != nil {
			t.Fatalf("ExtractRows failed: %v", err)
		}

		state := index.NotWritten
		for _, lines := range batcher.Chunks(rows) {
			chunk := domain.HighlightChunk{
				DocumentID: domain.DocumentID(f.repo, f.path),
				FileID:     domain.FileID("github.com", f.repo, f.path),
				OwnerID:    "42",
				RelDir:     domain.RelDir(f.path),
				Repo:       f.repo,
				Branch:     "main",
				Language:   f.lang,
				Lines:      lines,
			}
			if _, err := upserter.Write(ctx, &state, chunk); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}
	}

	engine := NewEngine(store.Index(), maxResults)
	t.Cleanup(func() {
		if err := engine.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return engine
}

func TestEngine_Search(t *testing.T) {
	engine := newTestEngine(t, 10)

	res, err := engine.Search(context.Background(), Request{Query: "Println"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Total != 1 || len(res.Hits) != 1 {
		t.Fatalf("Expected 1 hit, got %+v", res)
	}

	hit := res.Hits[0]
	if hit.ID != "org/repo/main.go" || hit.FileID != "github.com/org/repo/main.go" {
		t.Errorf("Unexpected ids: %+v", hit)
	}
	if hit.Repo != "org/repo" || hit.Lang != "Go" || hit.Branch != "main" {
		t.Errorf("Unexpected metadata: %+v", hit)
	}
	if len(hit.Lines) != 1 || hit.Lines[0].Number != 6 || hit.Lines[0].Text != "\tfmt.Println(\"hello\")" {
		t.Errorf("Unexpected snippet: %+v", hit.Lines)
	}
}

func TestEngine_Search_Filters(t *testing.T) {
	engine := newTestEngine(t, 10)

	tests := []struct {
		name    string
		req     Request
		wantIDs []string
	}{
		{
			name:    "query only",
			req:     Request{Query: "package"},
			wantIDs: []string{"org/other/util/strings.go", "org/repo/main.go"},
		},
		{
			name:    "repository filter",
			req:     Request{Query: "package", Repository: "org/other"},
			wantIDs: []string{"org/other/util/strings.go"},
		},
		{
			name:    "language filter",
			req:     Request{Query: "build", Language: "Python"},
			wantIDs: []string{"org/repo/scripts/build.py"},
		},
		{
			name:    "language mismatch",
			req:     Request{Query: "build", Language: "Go"},
			wantIDs: nil,
		},
		{
			name:    "limit",
			req:     Request{Query: "package", Limit: 1},
			wantIDs: []string{"*"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := engine.Search(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if len(res.Hits) != len(tt.wantIDs) {
				t.Fatalf("Expected %d hits, got %+v", len(tt.wantIDs), res.Hits)
			}
			if len(tt.wantIDs) == 1 && tt.wantIDs[0] == "*" {
				return
			}

			got := make(map[string]bool)
			for _, h := range res.Hits {
				got[h.ID] = true
			}
			for _, id := range tt.wantIDs {
				if !got[id] {
					t.Errorf("Expected hit %s in %v", id, got)
				}
			}
		})
	}
}

func TestEngine_Search_EmptyQuery(t *testing.T) {
	engine := newTestEngine(t, 10)

	_, err := engine.Search(context.Background(), Request{Query: "   "})
	if !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Expected ErrEmptyQuery, got %v", err)
	}
}

func TestEngine_Read(t *testing.T) {
	engine := newTestEngine(t, 10)

	doc, lines, err := engine.Read(context.Background(), "org/repo", "main.go")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if doc.Lang != "Go" || len(doc.Content) != 3 {
		t.Errorf("Unexpected document: lang=%s chunks=%d", doc.Lang, len(doc.Content))
	}

	var texts []string
	for _, l := range lines {
		texts = append(texts, l.Text)
	}
	want := strings.TrimSuffix(testFiles[0].src, "\n")
	if got := strings.Join(texts, "\n"); got != want {
		t.Errorf("Read text = %q, want %q", got, want)
	}
}

func TestEngine_Read_NotFound(t *testing.T) {
	engine := newTestEngine(t, 10)

	_, _, err := engine.Read(context.Background(), "org/repo", "missing.go")
	if !errors.Is(err, index.ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}
}

func TestOpen_MissingIndex(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "none"), 10); err == nil {
		t.Error("Expected error for missing index")
	}
}

func TestMatchingLines(t *testing.T) {
	lines := []highlight.Line{
		{Number: 1, Text: "alpha"},
		{Number: 2, Text: "Beta"},
		{Number: 3, Text: "beta gamma"},
		{Number: 4, Text: "gamma"},
	}

	got := matchingLines(lines, queryTerms("BETA gamma"), 2)
	if len(got) != 2 || got[0].Number != 2 || got[1].Number != 3 {
		t.Errorf("matchingLines = %+v", got)
	}
}
