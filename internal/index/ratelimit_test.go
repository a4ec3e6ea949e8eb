package index

import (
	"context"
	"testing"
	"time"

	"github.com/sha1n/heline-indexer/internal/domain"
)

func TestNewRateLimitedStore_Disabled(t *testing.T) {
	inner := NewMemoryStore()
	if store := NewRateLimitedStore(inner, 0); store != Store(inner) {
		t.Error("Expected the inner store when the rate is zero")
	}
}

func TestRateLimitedStore_LimitsWrites(t *testing.T) {
	inner := NewMemoryStore()
	store := NewRateLimitedStore(inner, 20)
	ctx := context.Background()

	start := time.Now()
	for i := range 25 {
		if i == 0 {
			if err := store.Insert(ctx, domain.Document{ID: "a"}); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := store.Append(ctx, "a", []string{"x"}); err != nil {
			t.Fatal(err)
		}
	}
	elapsed := time.Since(start)

	// burst of 20, then 5 more writes at 20/s
	if elapsed < 200*time.Millisecond {
		t.Errorf("Expected writes to be throttled, took %v", elapsed)
	}
	if len(inner.Calls) != 25 {
		t.Errorf("Expected 25 calls, got %d", len(inner.Calls))
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if !inner.Closed {
		t.Error("Expected Close to reach the inner store")
	}
}

func TestRateLimitedStore_Canceled(t *testing.T) {
	store := NewRateLimitedStore(NewMemoryStore(), 0.001)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Insert(ctx, domain.Document{ID: "a"}); err == nil {
		t.Error("Expected error for canceled context")
	}
}
