package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"docindex/internal/index_service/pipeline/schema"
)

// MemoryStore is a thread-safe, in-memory Store implementation. It backs
// tests and "store.type: memory" configurations.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*schema.Document
	dims        map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*schema.Document),
		dims:        make(map[string]int),
	}
}

// EnsureCollection creates the collection if it does not exist yet.
func (s *MemoryStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.dims[name]; ok {
		if existing != dim {
			return fmt.Errorf("collection %s exists with dimension %d, requested %d", name, existing, dim)
		}
		return nil
	}
	s.collections[name] = make(map[string]*schema.Document)
	s.dims[name] = dim
	return nil
}

// Upsert writes documents keyed by their ID, overwriting earlier writes with
// the same identity.
func (s *MemoryStore) Upsert(ctx context.Context, collection string, docs []*schema.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s does not exist", collection)
	}
	dim := s.dims[collection]
	for _, doc := range docs {
		if len(doc.Embedding) != dim {
			return fmt.Errorf("document %s has dimension %d, collection %s expects %d",
				doc.ID, len(doc.Embedding), collection, dim)
		}
		coll[doc.ID] = doc
	}
	return nil
}

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Get returns the document with the given ID, or nil.
func (s *MemoryStore) Get(collection, id string) *schema.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections[collection][id]
}

// Collections lists the collection names that have been created.
func (s *MemoryStore) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names
}

var _ Store = (*MemoryStore)(nil)
