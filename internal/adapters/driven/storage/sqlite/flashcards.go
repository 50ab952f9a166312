package sqlite

import (
	"context"
	"fmt"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// flashcardStore implements driven.FlashcardStore.
type flashcardStore struct {
	store *Store
}

var _ driven.FlashcardStore = (*flashcardStore)(nil)

// SaveFlashcards stores a batch of cards in one transaction.
func (s *flashcardStore) SaveFlashcards(ctx context.Context, cards []domain.Flashcard) error {
	const op = "save flashcards"

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(op, fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO flashcards (id, owner_id, document_id, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storageErr(op, fmt.Errorf("preparing statement: %w", err))
	}
	defer stmt.Close()

	for _, c := range cards {
		if _, err := stmt.ExecContext(ctx, c.ID, c.OwnerID, c.DocumentID, c.Question, c.Answer, c.CreatedAt); err != nil {
			return storageErr(op, fmt.Errorf("saving flashcard: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr(op, fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// ListFlashcards returns the owner's cards for a document, oldest first.
func (s *flashcardStore) ListFlashcards(ctx context.Context, ownerID, documentID string) ([]domain.Flashcard, error) {
	const op = "list flashcards"

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, owner_id, document_id, question, answer, created_at
		FROM flashcards WHERE owner_id = ? AND document_id = ?
		ORDER BY created_at, rowid
	`, ownerID, documentID)
	if err != nil {
		return nil, storageErr(op, fmt.Errorf("querying flashcards: %w", err))
	}
	defer rows.Close()

	var cards []domain.Flashcard //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Flashcard
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.DocumentID, &c.Question, &c.Answer, &c.CreatedAt); err != nil {
			return nil, storageErr(op, fmt.Errorf("scanning flashcard: %w", err))
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, fmt.Errorf("iterating flashcards: %w", err))
	}
	return cards, nil
}

// DeleteFlashcards removes every card of a document.
func (s *flashcardStore) DeleteFlashcards(ctx context.Context, ownerID, documentID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM flashcards WHERE owner_id = ? AND document_id = ?", ownerID, documentID)
	if err != nil {
		return storageErr("delete flashcards", err)
	}
	return nil
}
