package index

import (
	"context"
	"sync"

	"github.com/sha1n/heline-indexer/internal/domain"
)

// MemoryStore is an in-memory Store that records every call. It is used by
// tests of packages writing documents.
type MemoryStore struct {
	mu        sync.Mutex
	Docs      map[string]domain.Document
	Calls     []StoreCall
	InsertErr error
	AppendErr error
	Closed    bool
}

// StoreCall records a single store operation.
type StoreCall struct {
	Op      Op
	ID      string
	Content []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Docs: make(map[string]domain.Document)}
}

// Insert implements Store.
func (m *MemoryStore) Insert(_ context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, StoreCall{Op: OpInsert, ID: doc.ID, Content: doc.Content})
	if m.InsertErr != nil {
		return m.InsertErr
	}
	doc.Content = append([]string(nil), doc.Content...)
	m.Docs[doc.ID] = doc
	return nil
}

// Append implements Store. Appending to a missing document creates a
// document holding only the content, like an atomic update would.
func (m *MemoryStore) Append(_ context.Context, id string, content []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, StoreCall{Op: OpAppend, ID: id, Content: content})
	if m.AppendErr != nil {
		return m.AppendErr
	}
	doc := m.Docs[id]
	doc.ID = id
	doc.Content = append(doc.Content, content...)
	m.Docs[id] = doc
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Ops returns the recorded operations for id in call order.
func (m *MemoryStore) Ops(id string) []Op {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ops []Op
	for _, c := range m.Calls {
		if c.ID == id {
			ops = append(ops, c.Op)
		}
	}
	return ops
}
