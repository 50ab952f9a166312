package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
)

func ingest(t *testing.T, s *RetrievalService, owner, title string, pages ...string) string {
	t.Helper()
	id, err := s.Ingest(context.Background(), driving.IngestRequest{OwnerID: owner, Title: title, Pages: pages})
	require.NoError(t, err)
	return id
}

func TestIngest_StoresDocumentChunksAndUnits(t *testing.T) {
	f := newFixture()
	s := f.retrieval()

	id := ingest(t, s, "alice", "biology.pdf", biologyText)

	doc, err := f.docs.GetDocument(context.Background(), "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "biology.pdf", doc.Title)
	assert.Equal(t, domain.GranularityChunk, doc.Granularity)
	assert.Equal(t, 2, doc.ChunkCount)
	assert.Contains(t, doc.Content, "Calvin cycle")

	chunks, err := f.docs.GetChunks(context.Background(), "alice", id)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for i, c := range chunks {
		assert.Equal(t, id, c.DocumentID)
		assert.Equal(t, "alice", c.OwnerID)
		assert.Equal(t, i, c.Position)
		assert.NotEmpty(t, c.ID)
	}
	assert.Equal(t, 2, f.index.Len())
}

func TestIngest_ShortAndLongParagraphs(t *testing.T) {
	f := newFixture()
	s := f.retrieval()
	short := longParagraph("nucleus", 4)
	long := longParagraph("ribosome", 22)
	require.Less(t, utf8.RuneCountInString(short), 500)
	require.Greater(t, utf8.RuneCountInString(long), 1000)

	id := ingest(t, s, "alice", "cells", short+"\n\n"+long)

	chunks, err := f.docs.GetChunks(context.Background(), "alice", id)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 4)
	assert.Equal(t, short, chunks[0].Content)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.Size(), 500)
	}
}

func TestIngest_DuplicateTitleConflicts(t *testing.T) {
	f := newFixture()
	s := f.retrieval()
	id := ingest(t, s, "alice", "notes.pdf", biologyText)
	units := f.index.Len()

	_, err := s.Ingest(context.Background(), driving.IngestRequest{
		OwnerID: "alice", Title: "notes.pdf", Pages: []string{historyText},
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	doc, err := f.docs.GetDocument(context.Background(), "alice", id)
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "Photosynthesis")
	assert.Equal(t, units, f.index.Len())
}

func TestIngest_SameTitleDifferentOwners(t *testing.T) {
	f := newFixture()
	s := f.retrieval()

	a := ingest(t, s, "alice", "notes.pdf", biologyText)
	b := ingest(t, s, "bob", "notes.pdf", historyText)

	assert.NotEqual(t, a, b)
}

func TestIngest_NoExtractableText(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
	}{
		{"no pages", nil},
		{"blank pages", []string{"", "  \n\n "}},
		{"tiny paragraphs", []string{"Hello\n\nWorld"}},
		{"digits only", []string{strings.Repeat("12345 67890 ", 20)}},
		{"below minimum viable length", []string{"Mitochondria are the powerhouse of the cell."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.retrieval().Ingest(context.Background(), driving.IngestRequest{
				OwnerID: "alice", Title: "scan.pdf", Pages: tt.pages,
			})

			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
			assert.ErrorIs(t, err, domain.ErrNoExtractableText)
			assert.Equal(t, 0, f.docs.Count())
			assert.Equal(t, 0, f.index.Len())
		})
	}
}

func TestDependencies_PartialPoliciesFillMissingFields(t *testing.T) {
	d := Dependencies{
		Segmentation: domain.SegmentationPolicy{MinChunkLength: 30},
		Retrieval:    domain.RetrievalPolicy{TopK: 5},
	}.withDefaults()

	assert.Equal(t, domain.DefaultMaxChunkSize, d.Segmentation.MaxChunkSize)
	assert.Equal(t, 30, d.Segmentation.MinChunkLength)
	assert.Equal(t, domain.DefaultMinAlphaRatio, d.Segmentation.MinAlphaRatio)
	assert.Equal(t, 5, d.Retrieval.TopK)
	assert.Equal(t, domain.DefaultMinViableLength, d.Retrieval.MinViableLength)
	assert.Equal(t, domain.GranularityChunk, d.Retrieval.Granularity)
}

func TestIngest_PartialPolicyStillRejectsShortDocuments(t *testing.T) {
	f := newFixture()
	f.deps.Retrieval = domain.RetrievalPolicy{Granularity: domain.GranularityChunk}

	_, err := f.retrieval().Ingest(context.Background(), driving.IngestRequest{
		OwnerID: "alice", Title: "short.pdf", Pages: []string{"Mitochondria are the powerhouse of the cell."},
	})

	assert.ErrorIs(t, err, domain.ErrNoExtractableText)
	assert.Equal(t, 0, f.docs.Count())
}

func TestIngest_RequiresOwnerAndTitle(t *testing.T) {
	s := newFixture().retrieval()

	_, err := s.Ingest(context.Background(), driving.IngestRequest{Title: "x", Pages: []string{biologyText}})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = s.Ingest(context.Background(), driving.IngestRequest{OwnerID: "alice", Title: "  ", Pages: []string{biologyText}})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestIngest_EmbedderFailureLeavesNothing(t *testing.T) {
	f := newFixture()
	f.deps.Embedder = failingEmbedder{}

	_, err := f.retrieval().Ingest(context.Background(), driving.IngestRequest{
		OwnerID: "alice", Title: "biology.pdf", Pages: []string{biologyText},
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindExternalDependency, domain.KindOf(err))
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, 0, f.docs.Count())
	assert.Equal(t, 0, f.index.Len())
}

func TestIngest_IndexFailureRollsBackDocument(t *testing.T) {
	f := newFixture()
	f.deps.Index = &hookIndex{
		VectorIndex: f.index,
		insertErr:   domain.StorageError("insert", "connection reset", errors.New("reset")),
	}

	_, err := f.retrieval().Ingest(context.Background(), driving.IngestRequest{
		OwnerID: "alice", Title: "biology.pdf", Pages: []string{biologyText},
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	assert.Equal(t, 0, f.docs.Count())
	_, err = f.docs.FindByTitle(context.Background(), "alice", "biology.pdf")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestIngest_CancelledAfterInsertRollsBack(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.deps.Index = &hookIndex{VectorIndex: f.index, afterInsert: cancel}
	s := f.retrieval()

	_, err := s.Ingest(ctx, driving.IngestRequest{OwnerID: "alice", Title: "biology.pdf", Pages: []string{biologyText}})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.docs.Count())
	assert.Equal(t, 0, f.index.Len())

	actx, err := s.AnswerableContext(context.Background(), "alice", "chloroplasts", 10)
	require.NoError(t, err)
	assert.False(t, actx.ContextAvailable)
}

func TestIngest_CancelledBeforeStartStoresNothing(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.retrieval().Ingest(ctx, driving.IngestRequest{OwnerID: "alice", Title: "biology.pdf", Pages: []string{biologyText}})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.docs.Count())
	assert.Equal(t, 0, f.index.Len())
}

func TestIngest_DocumentGranularity(t *testing.T) {
	f := newFixture()
	f.deps.Retrieval = domain.DefaultRetrievalPolicy()
	f.deps.Retrieval.Granularity = domain.GranularityDocument
	s := f.retrieval()

	id := ingest(t, s, "alice", "biology.pdf", biologyText)

	assert.Equal(t, 1, f.index.Len())
	chunks, err := f.docs.GetChunks(context.Background(), "alice", id)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	actx, err := s.AnswerableContext(context.Background(), "alice", "Calvin cycle sugars", 3)
	require.NoError(t, err)
	require.Len(t, actx.Matches, 1)
	assert.Equal(t, id, actx.Matches[0].UnitID)
	assert.Equal(t, id, actx.Matches[0].DocumentID)
}

func TestAnswerableContext_NoDocuments(t *testing.T) {
	s := newFixture().retrieval()

	actx, err := s.AnswerableContext(context.Background(), "nobody", "What is photosynthesis?", 3)

	require.NoError(t, err)
	assert.Empty(t, actx.Matches)
	assert.False(t, actx.ContextAvailable)
}

func TestAnswerableContext_RanksRelevantChunkFirst(t *testing.T) {
	f := newFixture()
	s := f.retrieval()
	bio := ingest(t, s, "alice", "biology.pdf", biologyText)
	ingest(t, s, "alice", "history.pdf", historyText)

	actx, err := s.AnswerableContext(context.Background(), "alice", "treaty of westphalia sovereignty", 0)

	require.NoError(t, err)
	require.True(t, actx.ContextAvailable)
	assert.Len(t, actx.Matches, 3)
	assert.Equal(t, "history.pdf", actx.Matches[0].Title)
	assert.NotEqual(t, bio, actx.Matches[0].DocumentID)
	for i := 1; i < len(actx.Matches); i++ {
		assert.LessOrEqual(t, actx.Matches[i-1].Distance, actx.Matches[i].Distance)
	}
}

func TestAnswerableContext_OwnerIsolation(t *testing.T) {
	f := newFixture()
	s := f.retrieval()
	ingest(t, s, "alice", "biology.pdf", biologyText)
	bobDoc := ingest(t, s, "bob", "history.pdf", historyText)

	actx, err := s.AnswerableContext(context.Background(), "bob", "photosynthesis chloroplasts light", 10)

	require.NoError(t, err)
	require.NotEmpty(t, actx.Matches)
	for _, m := range actx.Matches {
		assert.Equal(t, bobDoc, m.DocumentID)
	}
}

func TestAnswerableContext_TruncatesPreview(t *testing.T) {
	f := newFixture()
	f.deps.Retrieval = domain.DefaultRetrievalPolicy()
	f.deps.Retrieval.PreviewLength = 20
	s := f.retrieval()
	ingest(t, s, "alice", "biology.pdf", biologyText)

	actx, err := s.AnswerableContext(context.Background(), "alice", "photosynthesis", 1)

	require.NoError(t, err)
	require.Len(t, actx.Matches, 1)
	assert.Equal(t, 20, utf8.RuneCountInString(actx.Matches[0].Content))
}

func TestAnswerableContext_Validation(t *testing.T) {
	s := newFixture().retrieval()

	_, err := s.AnswerableContext(context.Background(), "", "question", 3)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = s.AnswerableContext(context.Background(), "alice", "   ", 3)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestIngestPDF(t *testing.T) {
	t.Run("uses the file name as title", func(t *testing.T) {
		f := newFixture()
		f.deps.Extractor = &mockExtractor{pages: []string{biologyText}}

		id, err := f.retrieval().IngestPDF(context.Background(), "alice", "/tmp/uploads/Biology.PDF", []byte("%PDF-1.7"))

		require.NoError(t, err)
		doc, err := f.docs.GetDocument(context.Background(), "alice", id)
		require.NoError(t, err)
		assert.Equal(t, "Biology.PDF", doc.Title)
	})

	t.Run("rejects other file types", func(t *testing.T) {
		f := newFixture()

		_, err := f.retrieval().IngestPDF(context.Background(), "alice", "notes.docx", []byte("PK"))

		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("rejects encrypted files", func(t *testing.T) {
		f := newFixture()
		f.deps.Extractor = &mockExtractor{encrypted: true, pages: []string{biologyText}}

		_, err := f.retrieval().IngestPDF(context.Background(), "alice", "secret.pdf", []byte("%PDF-1.7"))

		assert.ErrorIs(t, err, domain.ErrEncryptedDocument)
		assert.Equal(t, 0, f.docs.Count())
	})

	t.Run("propagates extraction failures", func(t *testing.T) {
		f := newFixture()
		f.deps.Extractor = &mockExtractor{err: domain.ExternalError("extract", "pdftotext crashed", nil)}

		_, err := f.retrieval().IngestPDF(context.Background(), "alice", "broken.pdf", []byte("%PDF-1.7"))

		assert.Equal(t, domain.KindExternalDependency, domain.KindOf(err))
	})

	t.Run("scanned pages have no text", func(t *testing.T) {
		f := newFixture()
		f.deps.Extractor = &mockExtractor{pages: []string{"", ""}}

		_, err := f.retrieval().IngestPDF(context.Background(), "alice", "scan.pdf", []byte("%PDF-1.7"))

		assert.ErrorIs(t, err, domain.ErrNoExtractableText)
	})
}

func TestReplacePDF(t *testing.T) {
	pdf := []byte("%PDF-1.7")

	t.Run("swaps the stored version", func(t *testing.T) {
		f := newFixture()
		extractor := &mockExtractor{pages: []string{biologyText}}
		f.deps.Extractor = extractor
		s := f.retrieval()
		first, err := s.IngestPDF(context.Background(), "alice", "notes.pdf", pdf)
		require.NoError(t, err)
		require.NoError(t, f.flashcards.SaveFlashcards(context.Background(), []domain.Flashcard{
			{ID: "card-1", OwnerID: "alice", DocumentID: first, Question: "Q", Answer: "A"},
		}))

		extractor.pages = []string{historyText}
		second, err := s.ReplacePDF(context.Background(), "alice", "/docs/notes.pdf", pdf)

		require.NoError(t, err)
		assert.NotEqual(t, first, second)
		doc, err := f.docs.FindByTitle(context.Background(), "alice", "notes.pdf")
		require.NoError(t, err)
		assert.Equal(t, second, doc.ID)
		assert.Contains(t, doc.Content, "Westphalia")
		assert.Equal(t, 1, f.docs.Count())
		assert.Equal(t, 2, f.index.Len())
		cards, err := f.flashcards.ListFlashcards(context.Background(), "alice", first)
		require.NoError(t, err)
		assert.Empty(t, cards)
	})

	t.Run("ingests when nothing is stored yet", func(t *testing.T) {
		f := newFixture()
		f.deps.Extractor = &mockExtractor{pages: []string{biologyText}}

		id, err := f.retrieval().ReplacePDF(context.Background(), "alice", "notes.pdf", pdf)

		require.NoError(t, err)
		doc, err := f.docs.FindByTitle(context.Background(), "alice", "notes.pdf")
		require.NoError(t, err)
		assert.Equal(t, id, doc.ID)
	})

	failures := []struct {
		name  string
		setup func(f *fixture, e *mockExtractor)
		err   error
	}{
		{"blank extraction", func(_ *fixture, e *mockExtractor) { e.pages = []string{""} }, domain.ErrNoExtractableText},
		{"encrypted upload", func(_ *fixture, e *mockExtractor) { e.encrypted = true }, domain.ErrEncryptedDocument},
		{"embedder down", func(f *fixture, _ *mockExtractor) { f.deps.Embedder = failingEmbedder{} }, domain.ErrEmbeddingUnavailable},
	}
	for _, tt := range failures {
		t.Run("keeps the stored version on "+tt.name, func(t *testing.T) {
			f := newFixture()
			extractor := &mockExtractor{pages: []string{biologyText}}
			f.deps.Extractor = extractor
			first, err := f.retrieval().IngestPDF(context.Background(), "alice", "notes.pdf", pdf)
			require.NoError(t, err)

			tt.setup(f, extractor)
			_, err = f.retrieval().ReplacePDF(context.Background(), "alice", "notes.pdf", pdf)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			doc, err := f.docs.FindByTitle(context.Background(), "alice", "notes.pdf")
			require.NoError(t, err)
			assert.Equal(t, first, doc.ID)
			assert.Equal(t, 2, f.index.Len())
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "héllo", truncateRunes("héllo", 5))
	assert.Equal(t, "héllo", truncateRunes("héllo", 0))
	assert.Equal(t, "", truncateRunes("", 3))
}
