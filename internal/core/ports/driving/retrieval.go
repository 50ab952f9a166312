package driving

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// IngestRequest carries an already extracted upload.
type IngestRequest struct {
	// OwnerID is the identifier of the uploading user.
	OwnerID string

	// Title must be unique among the owner's documents.
	Title string

	// Pages holds the text of each page in page order.
	Pages []string
}

// RetrievalService ingests documents and assembles grounding context.
type RetrievalService interface {
	// Ingest segments, embeds and persists a document. Returns the document ID.
	Ingest(ctx context.Context, req IngestRequest) (string, error)

	// IngestPDF extracts the pages of a PDF upload and ingests them.
	// The title is the file name.
	IngestPDF(ctx context.Context, ownerID, filename string, content []byte) (string, error)

	// ReplacePDF ingests a new version of a PDF and removes the owner's
	// previous document with the same title. The previous document survives
	// when the new version cannot be ingested.
	ReplacePDF(ctx context.Context, ownerID, filename string, content []byte) (string, error)

	// AnswerableContext returns the owner's best-matching passages for a question.
	// topK <= 0 uses the configured default.
	AnswerableContext(ctx context.Context, ownerID, question string, topK int) (*domain.AnswerContext, error)
}

// AnswerService answers questions from retrieved context.
type AnswerService interface {
	// Ask answers a question using the owner's documents as the only source.
	Ask(ctx context.Context, ownerID, question string) (*domain.Answer, error)

	// History returns the owner's most recent logged queries.
	History(ctx context.Context, ownerID string, limit int) ([]domain.QueryRecord, error)
}

// FlashcardService generates study flashcards from documents.
type FlashcardService interface {
	// Generate creates up to count cards for one of the owner's documents.
	// count is clamped to [1, 20].
	Generate(ctx context.Context, ownerID, documentID string, count int) (*domain.FlashcardSet, error)

	// List returns the stored cards for a document.
	List(ctx context.Context, ownerID, documentID string) ([]domain.Flashcard, error)
}

// WatchService keeps an owner's documents in step with a directory of PDFs.
type WatchService interface {
	// Scan ingests the given files, skipping titles the owner already has.
	// Returns the number of documents ingested.
	Scan(ctx context.Context, ownerID string, paths []string) (int, error)

	// Run applies changes until the channel closes or ctx is done.
	Run(ctx context.Context, ownerID string, changes <-chan domain.FileChange) error
}
