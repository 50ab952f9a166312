package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
	"github.com/custodia-labs/studyrag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Dependencies are the collaborators shared by the retrieval, answer,
// document and flashcard services.
type Dependencies struct {
	Segmenter  driven.Segmenter
	Embedder   driven.Embedder
	Index      driven.VectorIndex
	Documents  driven.DocumentStore
	Flashcards driven.FlashcardStore
	Queries    driven.QueryLog
	Extractor  driven.PageExtractor
	LLM        driven.LLMService
	Prompts    driven.PromptStore

	// Segmentation and Retrieval default to the domain defaults when zero.
	Segmentation domain.SegmentationPolicy
	Retrieval    domain.RetrievalPolicy

	// Sentences splits document content for flashcard prompts.
	// Nil splits on line breaks.
	Sentences func(string) ([]string, error)

	// Now and NewID default to time.Now and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

func (d Dependencies) withDefaults() Dependencies {
	seg := domain.DefaultSegmentationPolicy()
	if d.Segmentation.MaxChunkSize <= 0 {
		d.Segmentation.MaxChunkSize = seg.MaxChunkSize
	}
	if d.Segmentation.MinParagraphLength <= 0 {
		d.Segmentation.MinParagraphLength = seg.MinParagraphLength
	}
	if d.Segmentation.MinChunkLength <= 0 {
		d.Segmentation.MinChunkLength = seg.MinChunkLength
	}
	if d.Segmentation.MinAlphaRatio <= 0 {
		d.Segmentation.MinAlphaRatio = seg.MinAlphaRatio
	}

	def := domain.DefaultRetrievalPolicy()
	if d.Retrieval.Granularity == "" {
		d.Retrieval.Granularity = def.Granularity
	}
	if d.Retrieval.TopK <= 0 {
		d.Retrieval.TopK = def.TopK
	}
	if d.Retrieval.MinViableLength <= 0 {
		d.Retrieval.MinViableLength = def.MinViableLength
	}
	if d.Retrieval.PreviewLength <= 0 {
		d.Retrieval.PreviewLength = def.PreviewLength
	}
	if d.Retrieval.ContextBudget <= 0 {
		d.Retrieval.ContextBudget = def.ContextBudget
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.NewString() }
	}
	return d
}

// RetrievalService ingests documents into the vector index and assembles
// grounding context for questions.
type RetrievalService struct {
	deps Dependencies
}

// NewRetrievalService creates a retrieval service.
// Segmenter, Embedder, Index and Documents are required.
func NewRetrievalService(deps Dependencies) *RetrievalService {
	return &RetrievalService{deps: deps.withDefaults()}
}

// Ingest segments, embeds and persists a document. Either the document and all
// of its vector units become visible, or nothing does.
func (s *RetrievalService) Ingest(ctx context.Context, req driving.IngestRequest) (string, error) {
	const op = "ingest"

	if err := requireOwner(op, req.OwnerID); err != nil {
		return "", err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return "", domain.ValidationError(op, "title is required", domain.ErrInvalidInput)
	}

	if _, err := s.deps.Documents.FindByTitle(ctx, req.OwnerID, title); err == nil {
		return "", domain.ConflictError(op, fmt.Sprintf("document %q already exists", title), domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	logger.Section("Ingest " + title)
	p, err := s.prepare(ctx, op, req.OwnerID, title, req.Pages)
	if err != nil {
		return "", err
	}
	if err := s.commit(ctx, p); err != nil {
		return "", err
	}

	logger.Info("ingested %q as %s (%d units)", title, p.doc.ID, len(p.records))
	return p.doc.ID, nil
}

// prepared is a segmented and embedded document that has not been stored yet.
type prepared struct {
	doc     *domain.Document
	chunks  []domain.Chunk
	records []domain.VectorRecord
}

// prepare segments and embeds pages without touching either store.
func (s *RetrievalService) prepare(ctx context.Context, op, ownerID, title string, pages []string) (*prepared, error) {
	done := logger.Timed("segment")
	chunks := s.deps.Segmenter.Chunks(pages, s.deps.Segmentation.MaxChunkSize)
	done()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	body := strings.Join(texts, "\n")
	logger.Debug("%d pages produced %d chunks, %d characters", len(pages), len(chunks), utf8.RuneCountInString(body))

	if len(chunks) == 0 || utf8.RuneCountInString(body) < s.deps.Retrieval.MinViableLength {
		return nil, domain.ValidationError(op, "the document has no extractable text", domain.ErrNoExtractableText)
	}

	doc := &domain.Document{
		ID:          s.deps.NewID(),
		OwnerID:     ownerID,
		Title:       title,
		Content:     body,
		ChunkCount:  len(chunks),
		Granularity: s.deps.Retrieval.Granularity,
		CreatedAt:   s.deps.Now(),
	}
	for i := range chunks {
		chunks[i].ID = s.deps.NewID()
		chunks[i].DocumentID = doc.ID
		chunks[i].OwnerID = ownerID
	}

	records, err := s.embed(ctx, doc, chunks, texts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if doc.Granularity == domain.GranularityDocument {
		chunks = nil
	}
	return &prepared{doc: doc, chunks: chunks, records: records}, nil
}

// commit stores a prepared document and its vector units, rolling the
// document back if the units cannot be inserted.
func (s *RetrievalService) commit(ctx context.Context, p *prepared) error {
	ownerID := p.doc.OwnerID
	if err := s.deps.Documents.CreateDocument(ctx, p.doc, p.chunks); err != nil {
		return err
	}

	unitIDs := make([]string, len(p.records))
	for i, r := range p.records {
		unitIDs[i] = r.UnitID
	}

	err := s.deps.Index.InsertMany(ctx, ownerID, p.records)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.compensate(ctx, ownerID, p.doc.ID, unitIDs)
		return err
	}
	return nil
}

// embed builds the vector records for a document at the configured granularity.
func (s *RetrievalService) embed(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, texts []string) ([]domain.VectorRecord, error) {
	defer logger.Timed("embed")()

	if doc.Granularity == domain.GranularityDocument {
		vec, err := s.deps.Embedder.Embed(ctx, doc.Content)
		if err != nil {
			return nil, err
		}
		return []domain.VectorRecord{{
			UnitID:  doc.ID,
			Vector:  vec,
			Payload: domain.VectorPayload{DocumentID: doc.ID, Title: doc.Title, Content: doc.Content},
		}}, nil
	}

	vecs, err := s.deps.Embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(chunks) {
		return nil, domain.ExternalError("embed",
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vecs), len(chunks)),
			domain.ErrEmbeddingUnavailable)
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.VectorRecord{
			UnitID: c.ID,
			Vector: vecs[i],
			Payload: domain.VectorPayload{
				DocumentID: doc.ID,
				Title:      doc.Title,
				Content:    c.Content,
				Position:   c.Position,
			},
		}
	}
	return records, nil
}

// compensate removes whatever an interrupted ingest left behind. It runs on a
// context that ignores the caller's cancellation.
func (s *RetrievalService) compensate(ctx context.Context, ownerID, docID string, unitIDs []string) {
	cctx := context.WithoutCancel(ctx)
	if err := s.deps.Index.DeleteMany(cctx, ownerID, unitIDs); err != nil {
		logger.Error("rollback: delete vector units of %s: %v", docID, err)
	}
	if err := s.deps.Documents.DeleteDocument(cctx, ownerID, docID); err != nil {
		logger.Error("rollback: delete document %s: %v", docID, err)
	}
	logger.Warn("ingest of %s rolled back", docID)
}

// IngestPDF extracts the pages of a PDF upload and ingests them under the
// file's base name.
func (s *RetrievalService) IngestPDF(ctx context.Context, ownerID, filename string, content []byte) (string, error) {
	title, pages, err := s.extract(ctx, "ingest pdf", ownerID, filename, content)
	if err != nil {
		return "", err
	}
	return s.Ingest(ctx, driving.IngestRequest{OwnerID: ownerID, Title: title, Pages: pages})
}

// ReplacePDF ingests a new version of a PDF under the file's base name and
// removes the previous document with that title. The previous version is only
// removed once the new one has been extracted, segmented and embedded, so a
// file that no longer yields text leaves the stored document untouched.
func (s *RetrievalService) ReplacePDF(ctx context.Context, ownerID, filename string, content []byte) (string, error) {
	const op = "replace pdf"

	title, pages, err := s.extract(ctx, op, ownerID, filename, content)
	if err != nil {
		return "", err
	}
	previous, err := s.deps.Documents.FindByTitle(ctx, ownerID, title)
	if errors.Is(err, domain.ErrNotFound) {
		previous = nil
	} else if err != nil {
		return "", err
	}

	logger.Section("Replace " + title)
	p, err := s.prepare(ctx, op, ownerID, title, pages)
	if err != nil {
		return "", err
	}
	if previous != nil {
		if err := s.remove(ctx, previous); err != nil {
			return "", err
		}
	}
	if err := s.commit(ctx, p); err != nil {
		return "", err
	}

	logger.Info("replaced %q with %s (%d units)", title, p.doc.ID, len(p.records))
	return p.doc.ID, nil
}

// remove deletes a stored document together with its vector units and
// flashcards.
func (s *RetrievalService) remove(ctx context.Context, doc *domain.Document) error {
	ids, err := documentUnitIDs(ctx, s.deps.Documents, doc)
	if err != nil {
		return err
	}
	if err := s.deps.Index.DeleteMany(ctx, doc.OwnerID, ids); err != nil {
		return err
	}
	if s.deps.Flashcards != nil {
		if err := s.deps.Flashcards.DeleteFlashcards(ctx, doc.OwnerID, doc.ID); err != nil {
			return err
		}
	}
	return s.deps.Documents.DeleteDocument(ctx, doc.OwnerID, doc.ID)
}

// extract validates a PDF upload and returns its title and page texts.
func (s *RetrievalService) extract(ctx context.Context, op, ownerID, filename string, content []byte) (string, []string, error) {
	if err := requireOwner(op, ownerID); err != nil {
		return "", nil, err
	}
	title := filepath.Base(filename)
	if !strings.EqualFold(filepath.Ext(title), ".pdf") {
		return "", nil, domain.ValidationError(op, "only PDF files can be uploaded", domain.ErrUnsupportedType)
	}
	if s.deps.Extractor == nil {
		return "", nil, domain.ValidationError(op, "PDF extraction is not available", domain.ErrUnsupportedType)
	}
	if s.deps.Extractor.IsEncrypted(content) {
		return "", nil, domain.ValidationError(op, "encrypted PDFs are not supported", domain.ErrEncryptedDocument)
	}

	done := logger.Timed("extract")
	pages, err := s.deps.Extractor.ExtractPages(ctx, content)
	done()
	if err != nil {
		return "", nil, err
	}
	return title, pages, nil
}

// AnswerableContext embeds the question and returns the owner's nearest units.
func (s *RetrievalService) AnswerableContext(ctx context.Context, ownerID, question string, topK int) (*domain.AnswerContext, error) {
	const op = "answerable context"

	if err := requireOwner(op, ownerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, domain.ValidationError(op, "question is required", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = s.deps.Retrieval.TopK
	}

	vec, err := s.deps.Embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	hits, err := s.deps.Index.Search(ctx, ownerID, vec, topK)
	if err != nil {
		return nil, err
	}
	logger.Debug("search returned %d of %d requested matches", len(hits), topK)

	matches := make([]domain.Match, len(hits))
	for i, h := range hits {
		matches[i] = domain.Match{
			UnitID:     h.UnitID,
			DocumentID: h.Payload.DocumentID,
			Title:      h.Payload.Title,
			Content:    truncateRunes(h.Payload.Content, s.deps.Retrieval.PreviewLength),
			Distance:   h.Distance,
		}
	}
	return &domain.AnswerContext{Matches: matches, ContextAvailable: len(matches) > 0}, nil
}

func requireOwner(op, ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return domain.ValidationError(op, "owner is required", domain.ErrInvalidInput)
	}
	return nil
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
