package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/studyrag/internal/adapters/driven/embedding/hashed"
	"github.com/custodia-labs/studyrag/internal/adapters/driven/storage/memory"
	vecmemory "github.com/custodia-labs/studyrag/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/postprocessors/segmenter"
)

const testDims = 64

// --- Mock implementations ---

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
	systems  []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.systems = append(m.systems, opts.System)
	return m.response, m.err
}

func (m *mockLLM) Chat(_ context.Context, _ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	return m.response, m.err
}

func (m *mockLLM) ModelName() string { return "mock" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error { return nil }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// mockPrompts implements driven.PromptStore for testing.
type mockPrompts struct {
	prompts map[string]string
}

func (m *mockPrompts) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return p, nil
}

func (m *mockPrompts) Reload() {}

// failingEmbedder implements driven.Embedder and always fails.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, domain.ExternalError("embed", "model offline", domain.ErrEmbeddingUnavailable)
}

func (failingEmbedder) EmbedMany(context.Context, []string) ([][]float32, error) {
	return nil, domain.ExternalError("embed", "model offline", domain.ErrEmbeddingUnavailable)
}

func (failingEmbedder) Dimensions() int { return testDims }
func (failingEmbedder) ModelName() string { return "failing" }
func (failingEmbedder) Ping(context.Context) error { return nil }
func (failingEmbedder) Close() error { return nil }

// hookIndex wraps a vector index and runs a hook after InsertMany.
type hookIndex struct {
	driven.VectorIndex
	insertErr   error
	afterInsert func()
}

func (h *hookIndex) InsertMany(ctx context.Context, ownerID string, records []domain.VectorRecord) error {
	if h.insertErr != nil {
		return h.insertErr
	}
	if err := h.VectorIndex.InsertMany(ctx, ownerID, records); err != nil {
		return err
	}
	if h.afterInsert != nil {
		h.afterInsert()
	}
	return nil
}

// failingQueryLog implements driven.QueryLog and rejects every write.
type failingQueryLog struct{}

func (failingQueryLog) RecordQuery(context.Context, *domain.QueryRecord) error {
	return domain.StorageError("record query", "disk full", errors.New("disk full"))
}

func (failingQueryLog) ListQueries(context.Context, string, int) ([]domain.QueryRecord, error) {
	return nil, nil
}

// mockExtractor implements driven.PageExtractor for testing.
type mockExtractor struct {
	pages     []string
	err       error
	encrypted bool
}

func (m *mockExtractor) SupportedMIMETypes() []string { return []string{"application/pdf"} }
func (m *mockExtractor) IsEncrypted(_ []byte) bool { return m.encrypted }
func (m *mockExtractor) ExtractPages(ctx context.Context, _ []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.pages, m.err
}

// --- Fixtures ---

type fixture struct {
	deps       Dependencies
	docs       *memory.DocumentStore
	flashcards *memory.FlashcardStore
	queries    *memory.QueryLog
	index      *vecmemory.Index
	llm        *mockLLM
	ids        int
}

func newFixture() *fixture {
	f := &fixture{
		docs:       memory.NewDocumentStore(),
		flashcards: memory.NewFlashcardStore(),
		queries:    memory.NewQueryLog(),
		index:      vecmemory.New(testDims),
		llm:        &mockLLM{response: "Chloroplasts capture light."},
	}
	f.deps = Dependencies{
		Segmenter:  segmenter.New(),
		Embedder:   hashed.New(testDims),
		Index:      f.index,
		Documents:  f.docs,
		Flashcards: f.flashcards,
		Queries:    f.queries,
		LLM:        f.llm,
		Extractor:  &mockExtractor{},
		NewID: func() string {
			f.ids++
			return fmt.Sprintf("id-%03d", f.ids)
		},
	}
	return f
}

func (f *fixture) retrieval() *RetrievalService {
	return NewRetrievalService(f.deps)
}

const (
	biologyText = "Photosynthesis converts light energy into chemical energy inside the chloroplasts of " +
		"green plant cells. The light reactions split water and release oxygen as a by-product.\n\n" +
		"The Calvin cycle then fixes carbon dioxide into sugars using the energy carriers made in the " +
		"light reactions. Plants store the sugars as starch for later growth."

	historyText = "The Treaty of Westphalia ended the Thirty Years War in seventeenth century Europe and " +
		"established the principle of state sovereignty.\n\nHistorians often treat the treaty as the " +
		"beginning of the modern international order of nation states."
)

// longParagraph builds a paragraph of many sentences about a subject.
func longParagraph(subject string, sentences int) string {
	parts := make([]string, sentences)
	for i := range parts {
		parts[i] = fmt.Sprintf("Sentence number %d describes the %s in plain words for revision.", i, subject)
	}
	return strings.Join(parts, " ")
}
