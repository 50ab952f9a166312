package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
	"github.com/custodia-labs/studyrag/internal/logger"
)

// Ensure FlashcardService implements the interface.
var _ driving.FlashcardService = (*FlashcardService)(nil)

// Flashcard request bounds.
const (
	MinFlashcards = 1
	MaxFlashcards = 20

	// flashcardMaterialLimit caps the characters of material sent to the LLM.
	flashcardMaterialLimit = 16000
)

const fallbackFlashcardPrompt = "You are an expert in creating educational flashcards. Given the following " +
	"document content, generate exactly " + driven.PlaceholderCount + " flashcard question-answer pairs. " +
	"Each flashcard should have a 'question' and 'answer' field. " +
	"Return ONLY a JSON array of objects with \"question\" and \"answer\" keys.\n\n" +
	"Material:\n" + driven.PlaceholderMaterial

// FlashcardService generates study flashcards from an owner's documents.
type FlashcardService struct {
	deps Dependencies
}

// NewFlashcardService creates a flashcard service.
// Documents and Flashcards are required.
func NewFlashcardService(deps Dependencies) *FlashcardService {
	return &FlashcardService{deps: deps.withDefaults()}
}

// FlashcardPair is one question and answer decoded from an LLM reply.
type FlashcardPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Generate asks the LLM for up to count cards about a document and stores them.
func (s *FlashcardService) Generate(ctx context.Context, ownerID, documentID string, count int) (*domain.FlashcardSet, error) {
	const op = "generate flashcards"

	if err := requireOwner(op, ownerID); err != nil {
		return nil, err
	}
	count = clampFlashcards(count)

	doc, err := s.deps.Documents.GetDocument(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, domain.ValidationError(op, "the document has no content", domain.ErrNoExtractableText)
	}

	material := truncateRunes(s.material(doc.Content), flashcardMaterialLimit)
	if strings.TrimSpace(material) == "" {
		return nil, domain.ValidationError(op, "no sentences available to generate flashcards", domain.ErrNoExtractableText)
	}

	if s.deps.LLM == nil {
		return nil, domain.ExternalError(op, "no language model is configured", domain.ErrLLMUnavailable)
	}

	prompt := renderPrompt(
		loadPrompt(s.deps.Prompts, driven.PromptFlashcards, fallbackFlashcardPrompt, driven.PlaceholderCount, driven.PlaceholderMaterial),
		driven.PlaceholderCount, strconv.Itoa(count),
		driven.PlaceholderMaterial, material,
	)
	done := logger.Timed("generate flashcards")
	raw, err := s.deps.LLM.Generate(ctx, prompt, driven.GenerateOptions{})
	done()
	if err != nil {
		return nil, err
	}

	pairs, err := ParseFlashcards(raw)
	if err != nil {
		return nil, domain.ExternalError(op, "failed to parse flashcard response", err)
	}
	if len(pairs) > count {
		pairs = pairs[:count]
	}

	now := s.deps.Now()
	cards := make([]domain.Flashcard, len(pairs))
	for i, p := range pairs {
		cards[i] = domain.Flashcard{
			ID:         s.deps.NewID(),
			OwnerID:    ownerID,
			DocumentID: doc.ID,
			Question:   p.Question,
			Answer:     p.Answer,
			CreatedAt:  now,
		}
	}
	if len(cards) > 0 {
		if err := s.deps.Flashcards.SaveFlashcards(ctx, cards); err != nil {
			return nil, err
		}
	}

	msg := fmt.Sprintf("Generated %d flashcards for %s", len(cards), doc.Title)
	if len(cards) < count {
		msg += fmt.Sprintf(". Requested %d, but only %d could be generated due to limited content.", count, len(cards))
	}
	logger.Info("%s", msg)

	return &domain.FlashcardSet{Cards: cards, Requested: count, Message: msg}, nil
}

// List returns the stored cards for one of the owner's documents, oldest first.
// A document without cards is a not found error.
func (s *FlashcardService) List(ctx context.Context, ownerID, documentID string) ([]domain.Flashcard, error) {
	const op = "list flashcards"

	if err := requireOwner(op, ownerID); err != nil {
		return nil, err
	}
	if _, err := s.deps.Documents.GetDocument(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	cards, err := s.deps.Flashcards.ListFlashcards(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, domain.NotFoundError(op, "no flashcards found for this document")
	}
	return cards, nil
}

// material splits the content into sentences, one per line.
func (s *FlashcardService) material(content string) string {
	if s.deps.Sentences == nil {
		return content
	}
	sentences, err := s.deps.Sentences(content)
	if err != nil {
		logger.Warn("sentence split failed, using raw content: %v", err)
		return content
	}
	out := make([]string, 0, len(sentences))
	for _, sen := range sentences {
		if sen = strings.TrimSpace(sen); sen != "" {
			out = append(out, sen)
		}
	}
	return strings.Join(out, "\n")
}

// ParseFlashcards decodes an LLM reply holding a JSON array of
// question/answer objects, optionally wrapped in a code fence.
// Pairs missing either side are dropped.
func ParseFlashcards(raw string) ([]FlashcardPair, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("expected a JSON list of flashcards: %w", err)
	}

	pairs := make([]FlashcardPair, 0, len(items))
	for _, item := range items {
		var p FlashcardPair
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		p.Question = strings.TrimSpace(p.Question)
		p.Answer = strings.TrimSpace(p.Answer)
		if p.Question == "" || p.Answer == "" {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func clampFlashcards(n int) int {
	return min(max(n, MinFlashcards), MaxFlashcards)
}
