package index

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	htmlchar "github.com/blevesearch/bleve/v2/analysis/char/html"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/sha1n/heline-indexer/internal/domain"
)

// HTMLCodeAnalyzer strips markup from highlighted rows before tokenising.
const HTMLCodeAnalyzer = "html_code"

// CreateIndexMapping creates the Bleve index mapping for documents.
func CreateIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(HTMLCodeAnalyzer, map[string]any{
		"type":          custom.Name,
		"char_filters":  []string{htmlchar.Name},
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()

	// Content - highlighted rows, analyzed as text with markup removed
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = HTMLCodeAnalyzer
	contentField.Store = true
	contentField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.FieldContent, contentField)

	// Metadata - keyword, stored for filtering and retrieval
	for _, name := range []string{
		domain.FieldFileID,
		domain.FieldOwnerID,
		domain.FieldPath,
		domain.FieldRepo,
		domain.FieldBranch,
		domain.FieldLang,
	} {
		field := bleve.NewTextFieldMapping()
		field.Analyzer = keyword.Name
		field.Store = true
		docMapping.AddFieldMappingsAt(name, field)
	}

	// ID - stored but not indexed (we use the document ID)
	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldID, idField)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = keyword.Name

	return indexMapping, nil
}

// OpenBleveIndex opens an existing index.
func OpenBleveIndex(dir string) (bleve.Index, error) {
	idx, err := bleve.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return idx, nil
}

// OpenBleveIndexReadOnly opens an existing index for searching only.
func OpenBleveIndexReadOnly(dir string) (bleve.Index, error) {
	idx, err := bleve.OpenUsing(dir, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return idx, nil
}

// BleveStore writes documents to a local Bleve index. Appends re-index the
// whole document with the extended content.
type BleveStore struct {
	index bleve.Index

	mu      sync.Mutex
	current *domain.Document
}

// OpenBleveStore opens the index at dir, creating it when missing.
func OpenBleveStore(dir string) (*BleveStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("bleve index directory is not set")
	}

	if _, err := os.Stat(dir); err == nil {
		idx, err := OpenBleveIndex(dir)
		if err != nil {
			return nil, err
		}
		return NewBleveStore(idx), nil
	}

	indexMapping, err := CreateIndexMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.New(dir, indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return NewBleveStore(idx), nil
}

// NewBleveStore creates a BleveStore on an open index.
func NewBleveStore(idx bleve.Index) *BleveStore {
	return &BleveStore{index: idx}
}

// Index returns the underlying index.
func (s *BleveStore) Index() bleve.Index {
	return s.index
}

// Insert implements Store.
func (s *BleveStore) Insert(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.Content = append([]string(nil), doc.Content...)
	if err := s.index.Index(doc.ID, doc); err != nil {
		s.current = nil
		return fmt.Errorf("failed to index document: %w", err)
	}
	s.current = &doc
	return nil
}

// Append implements Store.
func (s *BleveStore) Append(ctx context.Context, id string, content []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.current
	if doc == nil || doc.ID != id {
		loaded, err := LoadDocument(ctx, s.index, id)
		if err != nil {
			return err
		}
		doc = loaded
	}

	updated := *doc
	updated.Content = append(append([]string(nil), doc.Content...), content...)
	if err := s.index.Index(id, updated); err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	s.current = &updated
	return nil
}

// Close implements Store.
func (s *BleveStore) Close() error {
	return s.index.Close()
}

// LoadDocument reads a document back from its stored fields.
func LoadDocument(ctx context.Context, idx bleve.Index, id string) (*domain.Document, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Fields = []string{"*"}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	if len(res.Hits) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}

	doc := DocumentFromFields(id, res.Hits[0].Fields)
	return &doc, nil
}

// DocumentFromFields builds a document from stored search hit fields.
func DocumentFromFields(id string, fields map[string]any) domain.Document {
	return domain.Document{
		ID:      id,
		FileID:  fieldString(fields, domain.FieldFileID),
		OwnerID: fieldString(fields, domain.FieldOwnerID),
		Path:    fieldString(fields, domain.FieldPath),
		Repo:    fieldString(fields, domain.FieldRepo),
		Branch:  fieldString(fields, domain.FieldBranch),
		Lang:    fieldString(fields, domain.FieldLang),
		Content: fieldStrings(fields, domain.FieldContent),
	}
}

func fieldString(fields map[string]any, name string) string {
	values := fieldStrings(fields, name)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func fieldStrings(fields map[string]any, name string) []string {
	switch v := fields[name].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
