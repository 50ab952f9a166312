package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// Ensure the stores implement the interfaces.
var (
	_ driven.FlashcardStore = (*FlashcardStore)(nil)
	_ driven.QueryLog       = (*QueryLog)(nil)
)

// FlashcardStore is an in-memory implementation of driven.FlashcardStore.
type FlashcardStore struct {
	mu    sync.RWMutex
	cards []domain.Flashcard
}

// NewFlashcardStore creates a new in-memory flashcard store.
func NewFlashcardStore() *FlashcardStore {
	return &FlashcardStore{}
}

// SaveFlashcards appends a batch of cards.
func (s *FlashcardStore) SaveFlashcards(_ context.Context, cards []domain.Flashcard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, cards...)
	return nil
}

// ListFlashcards returns the owner's cards for a document in insertion order.
func (s *FlashcardStore) ListFlashcards(_ context.Context, ownerID, documentID string) ([]domain.Flashcard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Flashcard
	for _, c := range s.cards {
		if c.OwnerID == ownerID && c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out, nil
}

// DeleteFlashcards removes every card of a document.
func (s *FlashcardStore) DeleteFlashcards(_ context.Context, ownerID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.cards[:0]
	for _, c := range s.cards {
		if c.OwnerID != ownerID || c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	s.cards = kept
	return nil
}

// QueryLog is an in-memory implementation of driven.QueryLog.
type QueryLog struct {
	mu      sync.RWMutex
	records []domain.QueryRecord
}

// NewQueryLog creates a new in-memory query log.
func NewQueryLog() *QueryLog {
	return &QueryLog{}
}

// RecordQuery appends a record.
func (l *QueryLog) RecordQuery(_ context.Context, rec *domain.QueryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, *rec)
	return nil
}

// ListQueries returns the owner's most recent records, newest first.
func (l *QueryLog) ListQueries(_ context.Context, ownerID string, limit int) ([]domain.QueryRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	var out []domain.QueryRecord
	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		if l.records[i].OwnerID == ownerID {
			out = append(out, l.records[i])
		}
	}
	return out, nil
}
