package driving

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// DocumentService manages an owner's ingested documents.
type DocumentService interface {
	// List returns all documents of the owner.
	List(ctx context.Context, ownerID string) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error)

	// GetContent returns the persisted document body.
	GetContent(ctx context.Context, ownerID, documentID string) (string, error)

	// Delete removes the document's vector units, flashcards and the document itself.
	Delete(ctx context.Context, ownerID, documentID string) error
}
