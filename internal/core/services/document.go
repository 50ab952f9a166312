package services

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
	"github.com/custodia-labs/studyrag/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages an owner's ingested documents.
type DocumentService struct {
	docStore   driven.DocumentStore
	index      driven.VectorIndex
	flashcards driven.FlashcardStore
}

// NewDocumentService creates a new document service.
// The vector index and flashcard store may be nil.
func NewDocumentService(
	docStore driven.DocumentStore,
	index driven.VectorIndex,
	flashcards driven.FlashcardStore,
) *DocumentService {
	return &DocumentService{
		docStore:   docStore,
		index:      index,
		flashcards: flashcards,
	}
}

// List returns all documents of the owner, newest first.
func (s *DocumentService) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	if err := requireOwner("list documents", ownerID); err != nil {
		return nil, err
	}
	return s.docStore.ListDocuments(ctx, ownerID)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	if err := requireOwner("get document", ownerID); err != nil {
		return nil, err
	}
	return s.docStore.GetDocument(ctx, ownerID, documentID)
}

// GetContent returns the persisted document body.
func (s *DocumentService) GetContent(ctx context.Context, ownerID, documentID string) (string, error) {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// Delete removes the document's vector units and flashcards, then the
// document and its chunks.
func (s *DocumentService) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return err
	}

	if s.index != nil {
		unitIDs, err := documentUnitIDs(ctx, s.docStore, doc)
		if err != nil {
			return err
		}
		if err := s.index.DeleteMany(ctx, ownerID, unitIDs); err != nil {
			return err
		}
	}

	if s.flashcards != nil {
		if err := s.flashcards.DeleteFlashcards(ctx, ownerID, documentID); err != nil {
			return err
		}
	}

	if err := s.docStore.DeleteDocument(ctx, ownerID, documentID); err != nil {
		return err
	}
	logger.Info("deleted document %s (%q)", doc.ID, doc.Title)
	return nil
}

// documentUnitIDs lists the vector units that belong to a document.
func documentUnitIDs(ctx context.Context, store driven.DocumentStore, doc *domain.Document) ([]string, error) {
	if doc.Granularity == domain.GranularityDocument {
		return []string{doc.ID}, nil
	}
	chunks, err := store.GetChunks(ctx, doc.OwnerID, doc.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids, nil
}
