package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sha1n/heline-indexer/internal/domain"
)

// Solr defaults.
const (
	DefaultCollection   = "index"
	DefaultCommitWithin = 1000
	DefaultSolrTimeout  = 30 * time.Second

	maxErrorBody = 4096
)

// SolrOptions configures a SolrStore.
type SolrOptions struct {
	BaseURL      string
	Collection   string
	CommitWithin int // milliseconds
	Timeout      time.Duration
	Username     string
	Password     string

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// SolrStore writes documents through the Solr JSON update handler.
type SolrStore struct {
	client       *http.Client
	updateURL    string
	commitWithin int
	username     string
	password     string
}

// NewSolrStore creates a SolrStore for {BaseURL}/{Collection}/update.
func NewSolrStore(opts SolrOptions) (*SolrStore, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid Solr base URL %q", opts.BaseURL)
	}

	collection := opts.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	commitWithin := opts.CommitWithin
	if commitWithin <= 0 {
		commitWithin = DefaultCommitWithin
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultSolrTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &SolrStore{
		client:       client,
		updateURL:    strings.TrimSuffix(opts.BaseURL, "/") + "/" + collection + "/update",
		commitWithin: commitWithin,
		username:     opts.Username,
		password:     opts.Password,
	}, nil
}

type solrAppend struct {
	ID      string          `json:"id"`
	Content solrAppendField `json:"content"`
}

type solrAppendField struct {
	Add []string `json:"add"`
}

// Insert posts doc with overwrite semantics.
func (s *SolrStore) Insert(ctx context.Context, doc domain.Document) error {
	params := url.Values{}
	params.Set("commitWithin", strconv.Itoa(s.commitWithin))
	params.Set("overwrite", "true")
	params.Set("wt", "json")

	return s.post(ctx, s.updateURL+"?"+params.Encode(), []domain.Document{doc})
}

// Append posts an atomic add update for the content field.
func (s *SolrStore) Append(ctx context.Context, id string, content []string) error {
	return s.post(ctx, s.updateURL, []solrAppend{{ID: id, Content: solrAppendField{Add: content}}})
}

// Close releases idle connections.
func (s *SolrStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *SolrStore) post(ctx context.Context, target string, payload any) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("solr request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("solr returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
