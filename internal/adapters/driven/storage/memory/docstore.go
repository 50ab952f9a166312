package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

type titleKey struct {
	owner string
	title string
}

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	titles    map[titleKey]string
	order     map[string]int
	nextOrder int
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		titles:    make(map[titleKey]string),
		order:     make(map[string]int),
	}
}

// CreateDocument stores a new document and its chunks.
func (s *DocumentStore) CreateDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := titleKey{owner: doc.OwnerID, title: doc.Title}
	if _, exists := s.titles[key]; exists {
		return domain.ConflictError("create document", fmt.Sprintf("document %q already exists", doc.Title), domain.ErrAlreadyExists)
	}
	if _, exists := s.documents[doc.ID]; exists {
		return domain.ConflictError("create document", "document id already exists", domain.ErrAlreadyExists)
	}

	s.documents[doc.ID] = *doc
	s.titles[key] = doc.ID
	s.order[doc.ID] = s.nextOrder
	s.nextOrder++

	stored := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.DocumentID = doc.ID
		c.OwnerID = doc.OwnerID
		stored[i] = c
	}
	s.chunks[doc.ID] = stored
	return nil
}

// GetDocument retrieves one of the owner's documents by ID.
func (s *DocumentStore) GetDocument(_ context.Context, ownerID, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, domain.NotFoundError("get document", "document not found")
	}
	return &doc, nil
}

// FindByTitle retrieves one of the owner's documents by title.
func (s *DocumentStore) FindByTitle(_ context.Context, ownerID, title string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.titles[titleKey{owner: ownerID, title: title}]
	if !ok {
		return nil, domain.NotFoundError("find document", "document not found")
	}
	doc := s.documents[id]
	return &doc, nil
}

// GetChunks retrieves the chunks of a document in position order.
func (s *DocumentStore) GetChunks(_ context.Context, ownerID, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok || doc.OwnerID != ownerID {
		return nil, nil
	}
	chunks := make([]domain.Chunk, len(s.chunks[documentID]))
	copy(chunks, s.chunks[documentID])
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Position < chunks[j].Position })
	return chunks, nil
}

// ListDocuments returns the owner's documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, ownerID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []domain.Document
	for _, doc := range s.documents {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return s.order[docs[i].ID] > s.order[docs[j].ID]
	})
	return docs, nil
}

// DeleteDocument removes a document and its chunks. Missing documents are ignored.
func (s *DocumentStore) DeleteDocument(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok || doc.OwnerID != ownerID {
		return nil
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	delete(s.order, id)
	delete(s.titles, titleKey{owner: doc.OwnerID, title: doc.Title})
	return nil
}

// Count returns the number of stored documents across all owners.
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}
