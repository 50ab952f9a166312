package driven

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// All reads and deletes are scoped to an owner.
type DocumentStore interface {
	// CreateDocument stores a new document and its chunks.
	// Returns a conflict error wrapping domain.ErrAlreadyExists when the owner
	// already has a document with the same title.
	CreateDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// GetDocument retrieves one of the owner's documents by ID.
	GetDocument(ctx context.Context, ownerID, id string) (*domain.Document, error)

	// FindByTitle retrieves one of the owner's documents by title.
	FindByTitle(ctx context.Context, ownerID, title string) (*domain.Document, error)

	// GetChunks retrieves the chunks of a document in position order.
	GetChunks(ctx context.Context, ownerID, documentID string) ([]domain.Chunk, error)

	// ListDocuments returns the owner's documents, newest first.
	ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, ownerID, id string) error
}

// FlashcardStore persists generated flashcards.
type FlashcardStore interface {
	// SaveFlashcards stores a batch of cards.
	SaveFlashcards(ctx context.Context, cards []domain.Flashcard) error

	// ListFlashcards returns the owner's cards for a document, oldest first.
	ListFlashcards(ctx context.Context, ownerID, documentID string) ([]domain.Flashcard, error)

	// DeleteFlashcards removes every card of a document.
	DeleteFlashcards(ctx context.Context, ownerID, documentID string) error
}

// QueryLog records answered questions.
type QueryLog interface {
	// RecordQuery stores a question and its answer.
	RecordQuery(ctx context.Context, rec *domain.QueryRecord) error

	// ListQueries returns the owner's most recent queries, newest first.
	ListQueries(ctx context.Context, ownerID string, limit int) ([]domain.QueryRecord, error)
}
