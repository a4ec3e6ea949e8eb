package index

import (
	"context"
	"math"

	"golang.org/x/time/rate"

	"github.com/sha1n/heline-indexer/internal/domain"
)

// RateLimitedStore bounds the write rate of another store.
type RateLimitedStore struct {
	store   Store
	limiter *rate.Limiter
}

// NewRateLimitedStore wraps store with a limiter of perSecond writes. A
// non-positive rate returns store unchanged.
func NewRateLimitedStore(store Store, perSecond float64) Store {
	if perSecond <= 0 {
		return store
	}
	burst := max(1, int(math.Ceil(perSecond)))
	return &RateLimitedStore{
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Insert implements Store.
func (s *RateLimitedStore) Insert(ctx context.Context, doc domain.Document) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.store.Insert(ctx, doc)
}

// Append implements Store.
func (s *RateLimitedStore) Append(ctx context.Context, id string, content []string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.store.Append(ctx, id, content)
}

// Close implements Store.
func (s *RateLimitedStore) Close() error {
	return s.store.Close()
}
