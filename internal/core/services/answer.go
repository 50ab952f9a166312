package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
	"github.com/custodia-labs/studyrag/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// NoContextAnswer is returned when none of the owner's documents match.
const NoContextAnswer = "The provided documents do not contain enough information to answer this question."

const defaultHistoryLimit = 20

// Prompt fallbacks used when no prompt store is configured or a load fails.
const (
	fallbackAnswerSystem = "You are a helpful assistant that answers questions based solely on the provided " +
		"document content. If the answer cannot be found in the provided content, respond with: \"" +
		NoContextAnswer + "\""
	fallbackAnswerPrompt = "Context:\n" + driven.PlaceholderContext + "\n\nQuestion: " + driven.PlaceholderQuestion + "\n\nAnswer:"
)

// AnswerService answers questions using retrieved passages as the only source.
type AnswerService struct {
	retrieval driving.RetrievalService
	deps      Dependencies
}

// NewAnswerService creates an answer service on top of a retrieval service.
// LLM, Prompts and Queries are optional.
func NewAnswerService(retrieval driving.RetrievalService, deps Dependencies) *AnswerService {
	return &AnswerService{retrieval: retrieval, deps: deps.withDefaults()}
}

// Ask retrieves context for the question and asks the LLM to answer from it.
// Without matches the fixed no-context answer is returned and the LLM is not called.
func (s *AnswerService) Ask(ctx context.Context, ownerID, question string) (*domain.Answer, error) {
	const op = "ask"

	actx, err := s.retrieval.AnswerableContext(ctx, ownerID, question, 0)
	if err != nil {
		return nil, err
	}
	if !actx.ContextAvailable {
		logger.Debug("no matching passages, skipping generation")
		return &domain.Answer{Text: NoContextAnswer, Matches: actx.Matches}, nil
	}

	if s.deps.LLM == nil {
		return nil, domain.ExternalError(op, "no language model is configured", domain.ErrLLMUnavailable)
	}

	prompt := renderPrompt(
		loadPrompt(s.deps.Prompts, driven.PromptAnswer, fallbackAnswerPrompt, driven.PlaceholderContext, driven.PlaceholderQuestion),
		driven.PlaceholderContext, BuildContext(actx.Matches, s.deps.Retrieval.ContextBudget),
		driven.PlaceholderQuestion, question,
	)

	done := logger.Timed("generate")
	text, err := s.deps.LLM.Generate(ctx, prompt, driven.GenerateOptions{
		System: s.prompt(driven.PromptAnswerSystem, fallbackAnswerSystem),
	})
	done()
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)

	answer := &domain.Answer{
		Text:             text,
		Matches:          actx.Matches,
		ContextAvailable: true,
	}
	answer.QueryID = s.record(ctx, ownerID, actx.Matches[0].DocumentID, question, text)
	return answer, nil
}

// History returns the owner's most recent logged queries.
func (s *AnswerService) History(ctx context.Context, ownerID string, limit int) ([]domain.QueryRecord, error) {
	if err := requireOwner("history", ownerID); err != nil {
		return nil, err
	}
	if s.deps.Queries == nil {
		return []domain.QueryRecord{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.deps.Queries.ListQueries(ctx, ownerID, limit)
}

// record logs an answered question. A failure is logged and does not fail
// the answer.
func (s *AnswerService) record(ctx context.Context, ownerID, documentID, question, response string) string {
	if s.deps.Queries == nil {
		return ""
	}
	rec := &domain.QueryRecord{
		ID:         s.deps.NewID(),
		OwnerID:    ownerID,
		DocumentID: documentID,
		Question:   question,
		Response:   response,
		CreatedAt:  s.deps.Now(),
	}
	if err := s.deps.Queries.RecordQuery(ctx, rec); err != nil {
		logger.Warn("failed to log query: %v", err)
		return ""
	}
	return rec.ID
}

func (s *AnswerService) prompt(name, fallback string) string {
	return loadPrompt(s.deps.Prompts, name, fallback)
}

// BuildContext renders matches as "Document: <title>\nContent: <content>"
// blocks joined by newlines. Blocks that would push the total past budget
// characters are dropped; budget <= 0 disables the cap.
func BuildContext(matches []domain.Match, budget int) string {
	var (
		b    strings.Builder
		used int
	)
	for _, m := range matches {
		block := "Document: " + m.Title + "\nContent: " + m.Content
		n := len([]rune(block))
		if used > 0 {
			n++
		}
		if budget > 0 && used+n > budget {
			if used == 0 {
				b.WriteString(truncateRunes(block, budget))
			}
			break
		}
		if used > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(block)
		used += n
	}
	return b.String()
}

func loadPrompt(store driven.PromptStore, name, fallback string, placeholders ...string) string {
	if store == nil {
		return fallback
	}
	p, err := store.Load(name)
	if err != nil || strings.TrimSpace(p) == "" {
		if err != nil {
			logger.Warn("prompt %q unavailable, using built-in: %v", name, err)
		}
		return fallback
	}
	for _, ph := range placeholders {
		if !strings.Contains(p, ph) {
			logger.Warn("prompt %q has no %s placeholder, using built-in", name, ph)
			return fallback
		}
	}
	return p
}

// renderPrompt replaces placeholder and value pairs in a template.
func renderPrompt(template string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(template)
}
