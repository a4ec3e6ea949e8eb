package index

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/sha1n/heline-indexer/internal/domain"
)

func contentQuery(text string) *query.MatchQuery {
	q := bleve.NewMatchQuery(text)
	q.SetField(domain.FieldContent)
	return q
}

func TestBleveStore_InsertAndAppend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index.bleve")
	store, err := OpenBleveStore(dir)
	if err != nil {
		t.Fatalf("OpenBleveStore failed: %v", err)
	}
	ctx := context.Background()

	doc := domain.Document{
		ID: "org/repo/src/main.go", FileID: "github.com/org/repo/src/main.go", OwnerID: "42",
		Path: "src", Repo: "org/repo", Branch: "main", Lang: "Go",
		Content: []string{`<tr><td class="hl-code"><span class="kn">package</span> main</td></tr>` + "\n"},
	}
	if err := store.Insert(ctx, doc); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Append(ctx, doc.ID, []string{`<tr><td class="hl-code">func handler()</td></tr>` + "\n"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	loaded, err := LoadDocument(ctx, store.Index(), doc.ID)
	if err != nil {
		t.Fatalf("LoadDocument failed: %v", err)
	}
	if len(loaded.Content) != 2 {
		t.Fatalf("Content = %v", loaded.Content)
	}
	if loaded.Repo != "org/repo" || loaded.Lang != "Go" || loaded.OwnerID != "42" || loaded.Path != "src" {
		t.Errorf("Unexpected metadata: %+v", loaded)
	}

	// Markup is stripped before tokenising
	res, err := store.Index().Search(bleve.NewSearchRequest(contentQuery("handler")))
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Errorf("Expected appended content to be searchable, got %d hits", res.Total)
	}
	res, err = store.Index().Search(bleve.NewSearchRequest(contentQuery("span")))
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 {
		t.Errorf("Expected markup not to be indexed, got %d hits", res.Total)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestBleveStore_AppendAfterReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index.bleve")
	ctx := context.Background()

	store, err := OpenBleveStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, domain.Document{ID: "a/b/c.go", Repo: "a/b", Content: []string{"first\n"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = OpenBleveStore(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Append(ctx, "a/b/c.go", []string{"second\n", "third\n"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	loaded, err := LoadDocument(ctx, store.Index(), "a/b/c.go")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(loaded.Content, []string{"first\n", "second\n", "third\n"}) {
		t.Errorf("Content = %q", loaded.Content)
	}
	if loaded.Repo != "a/b" {
		t.Errorf("Repo = %q", loaded.Repo)
	}
}

func TestBleveStore_AppendMissingDocument(t *testing.T) {
	store, err := OpenBleveStore(filepath.Join(t.TempDir(), "index.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Append(context.Background(), "missing", []string{"x"}); err == nil {
		t.Error("Expected error appending to a missing document")
	}
}

func TestOpenBleveStore_EmptyDir(t *testing.T) {
	if _, err := OpenBleveStore(""); err == nil {
		t.Error("Expected error for empty index dir")
	}
}

func TestDocumentFromFields(t *testing.T) {
	doc := DocumentFromFields("id-1", map[string]any{
		domain.FieldRepo:    "org/repo",
		domain.FieldLang:    []any{"Go"},
		domain.FieldContent: []any{"a", "b", 3},
	})
	if doc.ID != "id-1" || doc.Repo != "org/repo" || doc.Lang != "Go" {
		t.Errorf("Unexpected document: %+v", doc)
	}
	if !slices.Equal(doc.Content, []string{"a", "b"}) {
		t.Errorf("Content = %v", doc.Content)
	}
	if doc.Branch != "" {
		t.Errorf("Branch = %q, want empty", doc.Branch)
	}
}
