// Package index writes highlighted chunks to a search backend.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/sha1n/heline-indexer/internal/config"
	"github.com/sha1n/heline-indexer/internal/domain"
)

var (
	// ErrBackendWrite wraps every failed insert or append.
	ErrBackendWrite = errors.New("backend write failed")

	// ErrDocumentNotFound is returned when a stored document does not exist.
	ErrDocumentNotFound = errors.New("document not found")
)

// Store is a search backend holding one document per source file.
type Store interface {
	// Insert writes a full document, replacing any document with the same id.
	Insert(ctx context.Context, doc domain.Document) error

	// Append adds entries to the content field of an existing document.
	Append(ctx context.Context, id string, content []string) error

	Close() error
}

// NewStore creates the store selected by settings.Type, rate limited when
// settings.MaxWritesPerSecond is positive.
func NewStore(settings *config.BackendSettings) (Store, error) {
	if settings == nil {
		return nil, fmt.Errorf("backend settings cannot be nil")
	}

	var store Store
	var err error
	switch settings.Type {
	case config.BackendSolr, "":
		store, err = NewSolrStore(SolrOptions{
			BaseURL:      settings.URL,
			Collection:   settings.Collection,
			CommitWithin: settings.CommitWithin,
			Timeout:      settings.Timeout,
			Username:     settings.Username,
			Password:     settings.Password,
		})
	case config.BackendElasticsearch:
		store, err = NewElasticsearchStore(ElasticsearchOptions{
			Addresses: []string{settings.URL},
			Index:     settings.Collection,
			Username:  settings.Username,
			Password:  settings.Password,
		})
	case config.BackendBleve:
		store, err = OpenBleveStore(settings.IndexDir)
	default:
		return nil, fmt.Errorf("unsupported backend type %q", settings.Type)
	}
	if err != nil {
		return nil, err
	}

	return NewRateLimitedStore(store, settings.MaxWritesPerSecond), nil
}
