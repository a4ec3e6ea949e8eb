// Package search queries documents in a local Bleve index and exposes the
// queries as MCP tools.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/sha1n/heline-indexer/internal/domain"
	"github.com/sha1n/heline-indexer/internal/highlight"
	"github.com/sha1n/heline-indexer/internal/index"
)

const (
	// DefaultMaxResults bounds the number of hits when no limit is given.
	DefaultMaxResults = 20

	// maxSnippetLines bounds the matching lines reported per hit.
	maxSnippetLines = 5
)

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Request describes a code search.
type Request struct {
	Query      string
	Repository string
	Language   string
	Limit      int
}

// Hit is one matching file.
type Hit struct {
	ID     string
	FileID string
	Repo   string
	Path   string
	Branch string
	Lang   string
	Score  float64
	// Lines are the lines of the file containing a query term.
	Lines []highlight.Line
}

// Result holds the hits of a search.
type Result struct {
	Total uint64
	Hits  []Hit
}

// Engine runs searches against a Bleve index.
type Engine struct {
	index      bleve.Index
	maxResults int
}

// Open opens the index at dir read-only.
func Open(dir string, maxResults int) (*Engine, error) {
	idx, err := index.OpenBleveIndexReadOnly(dir)
	if err != nil {
		return nil, err
	}
	return NewEngine(idx, maxResults), nil
}

// NewEngine creates an Engine on an open index.
func NewEngine(idx bleve.Index, maxResults int) *Engine {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Engine{index: idx, maxResults: maxResults}
}

// Close closes the index.
func (e *Engine) Close() error {
	return e.index.Close()
}

// Search matches the query against file content, optionally restricted to a
// repository and a language.
func (e *Engine) Search(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	size := e.maxResults
	if req.Limit > 0 && req.Limit < size {
		size = req.Limit
	}

	searchReq := bleve.NewSearchRequestOptions(buildQuery(req), size, 0, false)
	searchReq.Fields = []string{
		domain.FieldFileID,
		domain.FieldRepo,
		domain.FieldPath,
		domain.FieldBranch,
		domain.FieldLang,
		domain.FieldContent,
	}

	res, err := e.index.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	terms := queryTerms(req.Query)
	result := &Result{Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		doc := index.DocumentFromFields(h.ID, h.Fields)
		hit := Hit{
			ID:     doc.ID,
			FileID: doc.FileID,
			Repo:   doc.Repo,
			Path:   doc.Path,
			Branch: doc.Branch,
			Lang:   doc.Lang,
			Score:  h.Score,
		}

		lines, err := highlight.PlainLines(doc.Content...)
		if err != nil {
			return nil, err
		}
		hit.Lines = matchingLines(lines, terms, maxSnippetLines)
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// Read returns a stored document and its plain text lines.
func (e *Engine) Read(ctx context.Context, repo, relPath string) (*domain.Document, []highlight.Line, error) {
	id := domain.DocumentID(strings.Trim(repo, "/"), strings.TrimPrefix(relPath, "/"))
	doc, err := index.LoadDocument(ctx, e.index, id)
	if err != nil {
		return nil, nil, err
	}
	lines, err := highlight.PlainLines(doc.Content...)
	if err != nil {
		return nil, nil, err
	}
	return doc, lines, nil
}

// buildQuery constructs a Bleve query from search arguments.
func buildQuery(req Request) query.Query {
	contentQuery := bleve.NewMatchQuery(req.Query)
	contentQuery.SetField(domain.FieldContent)

	if req.Repository == "" && req.Language == "" {
		return contentQuery
	}

	must := []query.Query{contentQuery}
	if req.Repository != "" {
		repoQuery := bleve.NewTermQuery(strings.Trim(req.Repository, "/"))
		repoQuery.SetField(domain.FieldRepo)
		must = append(must, repoQuery)
	}
	if req.Language != "" {
		langQuery := bleve.NewTermQuery(req.Language)
		langQuery.SetField(domain.FieldLang)
		must = append(must, langQuery)
	}
	return bleve.NewConjunctionQuery(must...)
}

func queryTerms(q string) []string {
	return strings.Fields(strings.ToLower(q))
}

// matchingLines returns up to limit lines containing any of terms.
func matchingLines(lines []highlight.Line, terms []string, limit int) []highlight.Line {
	var matched []highlight.Line
	for _, line := range lines {
		text := strings.ToLower(line.Text)
		for _, term := range terms {
			if strings.Contains(text, term) {
				matched = append(matched, line)
				break
			}
		}
		if len(matched) == limit {
			break
		}
	}
	return matched
}
