package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

func cardsJSON(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"question": "Q%d?", "answer": "A%d"}`, i, i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func flashcardFixture(t *testing.T) (*fixture, string) {
	t.Helper()
	f := newFixture()
	id := ingest(t, f.retrieval(), "alice", "biology.pdf", biologyText)
	return f, id
}

func TestFlashcards_Generate(t *testing.T) {
	f, id := flashcardFixture(t)
	f.llm.response = "```json\n" + cardsJSON(3) + "\n```"
	s := NewFlashcardService(f.deps)

	set, err := s.Generate(context.Background(), "alice", id, 3)

	require.NoError(t, err)
	require.Len(t, set.Cards, 3)
	assert.Equal(t, 3, set.Requested)
	assert.Equal(t, "Generated 3 flashcards for biology.pdf", set.Message)
	assert.Equal(t, "Q0?", set.Cards[0].Question)
	assert.Equal(t, "A0", set.Cards[0].Answer)
	assert.Contains(t, f.llm.prompts[0], "generate exactly 3 flashcard")

	stored, err := s.List(context.Background(), "alice", id)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestFlashcards_Shortfall(t *testing.T) {
	f, id := flashcardFixture(t)
	f.llm.response = cardsJSON(2)
	s := NewFlashcardService(f.deps)

	set, err := s.Generate(context.Background(), "alice", id, 5)

	require.NoError(t, err)
	assert.Len(t, set.Cards, 2)
	assert.Equal(t, "Generated 2 flashcards for biology.pdf. Requested 5, but only 2 could be generated due to limited content.", set.Message)
}

func TestFlashcards_CountIsClamped(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{-3, 1},
		{0, 1},
		{7, 7},
		{20, 20},
		{50, 20},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.requested), func(t *testing.T) {
			f, id := flashcardFixture(t)
			f.llm.response = cardsJSON(25)
			s := NewFlashcardService(f.deps)

			set, err := s.Generate(context.Background(), "alice", id, tt.requested)

			require.NoError(t, err)
			assert.Equal(t, tt.want, set.Requested)
			assert.Len(t, set.Cards, tt.want)
		})
	}
}

func TestFlashcards_SplitsMaterialIntoSentences(t *testing.T) {
	f, id := flashcardFixture(t)
	f.llm.response = cardsJSON(1)
	f.deps.Sentences = func(text string) ([]string, error) {
		return strings.Split(text, ". "), nil
	}
	s := NewFlashcardService(f.deps)

	_, err := s.Generate(context.Background(), "alice", id, 1)

	require.NoError(t, err)
	assert.Contains(t, f.llm.prompts[0], "inside the chloroplasts of green plant cells\nThe light reactions")
}

func TestFlashcards_CustomPromptKeepsPercentSigns(t *testing.T) {
	f, id := flashcardFixture(t)
	f.llm.response = cardsJSON(2)
	f.deps.Prompts = &mockPrompts{prompts: map[string]string{
		driven.PromptFlashcards: "Write {{count}} cards, 100% from the text:\n{{material}}",
	}}
	s := NewFlashcardService(f.deps)

	_, err := s.Generate(context.Background(), "alice", id, 2)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(f.llm.prompts[0], "Write 2 cards, 100% from the text:\nPhotosynthesis"))
	assert.NotContains(t, f.llm.prompts[0], "%!")
}

func TestFlashcards_Errors(t *testing.T) {
	t.Run("unknown document", func(t *testing.T) {
		f, _ := flashcardFixture(t)
		s := NewFlashcardService(f.deps)

		_, err := s.Generate(context.Background(), "alice", "missing", 3)

		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("another owner's document", func(t *testing.T) {
		f, id := flashcardFixture(t)
		s := NewFlashcardService(f.deps)

		_, err := s.Generate(context.Background(), "bob", id, 3)

		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
		assert.Equal(t, 0, f.llm.calls())
	})

	t.Run("reply is not a list", func(t *testing.T) {
		f, id := flashcardFixture(t)
		f.llm.response = `{"question": "Q", "answer": "A"}`
		s := NewFlashcardService(f.deps)

		_, err := s.Generate(context.Background(), "alice", id, 3)

		assert.Equal(t, domain.KindExternalDependency, domain.KindOf(err))
		_, err = s.List(context.Background(), "alice", id)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("no language model", func(t *testing.T) {
		f, id := flashcardFixture(t)
		f.deps.LLM = nil
		s := NewFlashcardService(f.deps)

		_, err := s.Generate(context.Background(), "alice", id, 3)

		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}

func TestFlashcards_ListWithoutCards(t *testing.T) {
	f, id := flashcardFixture(t)
	s := NewFlashcardService(f.deps)

	_, err := s.List(context.Background(), "alice", id)

	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestParseFlashcards(t *testing.T) {
	t.Run("plain array", func(t *testing.T) {
		pairs, err := ParseFlashcards(cardsJSON(2))
		require.NoError(t, err)
		assert.Len(t, pairs, 2)
	})

	t.Run("fenced without language", func(t *testing.T) {
		pairs, err := ParseFlashcards("```\n" + cardsJSON(1) + "\n```")
		require.NoError(t, err)
		assert.Len(t, pairs, 1)
	})

	t.Run("skips incomplete items", func(t *testing.T) {
		pairs, err := ParseFlashcards(`[{"question": "Q"}, {"question": "Q2", "answer": "A2"}, 3]`)
		require.NoError(t, err)
		require.Len(t, pairs, 1)
		assert.Equal(t, "Q2", pairs[0].Question)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseFlashcards("Here are your cards!")
		assert.Error(t, err)
	})
}
