package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/sha1n/heline-indexer/internal/domain"
)

// appendScript extends the content array of a stored document.
const appendScript = "ctx._source.content.addAll(params.content)"

// ElasticsearchOptions configures an ElasticsearchStore.
type ElasticsearchOptions struct {
	Addresses []string
	Index     string
	Username  string
	Password  string

	// Transport overrides the HTTP transport of the client.
	Transport http.RoundTripper
}

// ElasticsearchStore writes documents to an Elasticsearch index.
type ElasticsearchStore struct {
	client *es.Client
	index  string
}

// NewElasticsearchStore creates an ElasticsearchStore.
func NewElasticsearchStore(opts ElasticsearchOptions) (*ElasticsearchStore, error) {
	client, err := es.NewClient(es.Config{
		Addresses: opts.Addresses,
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	index := opts.Index
	if index == "" {
		index = DefaultCollection
	}
	return &ElasticsearchStore{client: client, index: index}, nil
}

// Insert indexes doc under its id, replacing any existing version.
func (s *ElasticsearchStore) Insert(ctx context.Context, doc domain.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(doc.ID),
		s.client.Index.WithRefresh("false"),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}
	return nil
}

// Append adds content to the stored document with a painless script.
func (s *ElasticsearchStore) Append(ctx context.Context, id string, content []string) error {
	update := map[string]any{
		"script": map[string]any{
			"source": appendScript,
			"lang":   "painless",
			"params": map[string]any{
				"content": content,
			},
		},
	}

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	res, err := s.client.Update(
		s.index,
		id,
		bytes.NewReader(body),
		s.client.Update.WithContext(ctx),
		s.client.Update.WithRetryOnConflict(3),
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("error updating document: %s", res.String())
	}
	return nil
}

// Close is a no-op; the client holds no resources that need releasing.
func (s *ElasticsearchStore) Close() error {
	return nil
}
