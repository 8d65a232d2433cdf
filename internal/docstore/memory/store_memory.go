package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"shadow/internal/docstore"
	"shadow/pkg/platform/sentinel"
)

// InMemoryStore keeps collections in process memory. Used for local development
// and as the reference backend in service tests.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Document
}

func New() *InMemoryStore {
	return &InMemoryStore{collections: make(map[string]map[string]docstore.Document)}
}

func (s *InMemoryStore) FindOne(_ context.Context, collection, key string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, sentinel.ErrNotFound)
	}
	return maps.Clone(doc), nil
}

func (s *InMemoryStore) Upsert(_ context.Context, collection, key string, patch, setOnInsert docstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]docstore.Document)
		s.collections[collection] = docs
	}

	doc, exists := docs[key]
	if !exists {
		doc = maps.Clone(setOnInsert)
		if doc == nil {
			doc = docstore.Document{}
		}
	}
	maps.Copy(doc, patch)
	docs[key] = doc
	return nil
}

func (s *InMemoryStore) FindMany(_ context.Context, collection string, filter docstore.Filter, sort *docstore.Sort, limit int) ([]docstore.Document, error) {
	s.mu.RLock()
	var matched []docstore.Document
	for _, doc := range s.collections[collection] {
		if docstore.Match(doc, filter) {
			matched = append(matched, maps.Clone(doc))
		}
	}
	s.mu.RUnlock()

	docstore.SortDocuments(matched, sort)
	return docstore.Truncate(matched, limit), nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
