package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

func TestDocumentService_ListAndGet(t *testing.T) {
	f := newFixture()
	r := f.retrieval()
	bio := ingest(t, r, "alice", "biology.pdf", biologyText)
	ingest(t, r, "bob", "history.pdf", historyText)
	s := NewDocumentService(f.docs, f.index, f.flashcards)

	docs, err := s.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, bio, docs[0].ID)

	doc, err := s.Get(context.Background(), "alice", bio)
	require.NoError(t, err)
	assert.Equal(t, "biology.pdf", doc.Title)

	_, err = s.Get(context.Background(), "bob", bio)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestDocumentService_GetContent(t *testing.T) {
	f := newFixture()
	bio := ingest(t, f.retrieval(), "alice", "biology.pdf", biologyText)
	s := NewDocumentService(f.docs, f.index, f.flashcards)

	content, err := s.GetContent(context.Background(), "alice", bio)

	require.NoError(t, err)
	chunks, err := f.docs.GetChunks(context.Background(), "alice", bio)
	require.NoError(t, err)
	assert.Equal(t, chunks[0].Content+"\n"+chunks[1].Content, content)
}

func TestDocumentService_DeleteRemovesEverything(t *testing.T) {
	f := newFixture()
	r := f.retrieval()
	bio := ingest(t, r, "alice", "biology.pdf", biologyText)
	hist := ingest(t, r, "alice", "history.pdf", historyText)
	f.llm.response = cardsJSON(2)
	_, err := NewFlashcardService(f.deps).Generate(context.Background(), "alice", bio, 2)
	require.NoError(t, err)
	s := NewDocumentService(f.docs, f.index, f.flashcards)

	require.NoError(t, s.Delete(context.Background(), "alice", bio))

	_, err = s.Get(context.Background(), "alice", bio)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	cards, err := f.flashcards.ListFlashcards(context.Background(), "alice", bio)
	require.NoError(t, err)
	assert.Empty(t, cards)

	actx, err := r.AnswerableContext(context.Background(), "alice", "photosynthesis chloroplasts", 10)
	require.NoError(t, err)
	for _, m := range actx.Matches {
		assert.Equal(t, hist, m.DocumentID)
	}

	// The title can be reused.
	ingest(t, r, "alice", "biology.pdf", biologyText)
}

func TestDocumentService_DeleteDocumentGranularity(t *testing.T) {
	f := newFixture()
	f.deps.Retrieval = domain.DefaultRetrievalPolicy()
	f.deps.Retrieval.Granularity = domain.GranularityDocument
	id := ingest(t, f.retrieval(), "alice", "biology.pdf", biologyText)
	require.Equal(t, 1, f.index.Len())
	s := NewDocumentService(f.docs, f.index, nil)

	require.NoError(t, s.Delete(context.Background(), "alice", id))

	assert.Equal(t, 0, f.index.Len())
	assert.Equal(t, 0, f.docs.Count())
}

func TestDocumentService_DeleteOtherOwner(t *testing.T) {
	f := newFixture()
	id := ingest(t, f.retrieval(), "alice", "biology.pdf", biologyText)
	s := NewDocumentService(f.docs, f.index, f.flashcards)

	err := s.Delete(context.Background(), "bob", id)

	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Equal(t, 1, f.docs.Count())
	assert.Equal(t, 2, f.index.Len())
}

func TestDocumentService_RequiresOwner(t *testing.T) {
	f := newFixture()
	s := NewDocumentService(f.docs, f.index, f.flashcards)

	_, err := s.List(context.Background(), "")

	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}
