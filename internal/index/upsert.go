package index

import (
	"context"
	"fmt"

	"github.com/sha1n/heline-indexer/internal/domain"
)

// WriteState tracks whether the document of a file has been written.
// It is scoped to the processing of a single file.
type WriteState int

const (
	NotWritten WriteState = iota
	Written
)

// Op names a backend write operation.
type Op string

const (
	OpInsert Op = "insert"
	OpAppend Op = "append"
)

// Upserter writes the chunks of a file: the first chunk inserts the
// document and later chunks append to it.
type Upserter struct {
	store Store
}

// NewUpserter creates an Upserter writing to store.
func NewUpserter(store Store) *Upserter {
	return &Upserter{store: store}
}

// Write sends chunk to the store and advances state. A failed insert still
// moves state to Written so a file never produces two inserts.
func (u *Upserter) Write(ctx context.Context, state *WriteState, chunk domain.HighlightChunk) (Op, error) {
	if *state == NotWritten {
		*state = Written
		if err := u.store.Insert(ctx, chunk.Document()); err != nil {
			return OpInsert, fmt.Errorf("%w: insert %s: %w", ErrBackendWrite, chunk.DocumentID, err)
		}
		return OpInsert, nil
	}

	if err := u.store.Append(ctx, chunk.DocumentID, []string{chunk.Text()}); err != nil {
		return OpAppend, fmt.Errorf("%w: append %s: %w", ErrBackendWrite, chunk.DocumentID, err)
	}
	return OpAppend, nil
}
