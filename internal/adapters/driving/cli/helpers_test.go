package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/studyrag/internal/adapters/driven/embedding/hashed"
	"github.com/custodia-labs/studyrag/internal/adapters/driven/storage/memory"
	vecmemory "github.com/custodia-labs/studyrag/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
	"github.com/custodia-labs/studyrag/internal/core/services"
	"github.com/custodia-labs/studyrag/internal/postprocessors/segmenter"
)

const testDims = 64

const biologyText = "Photosynthesis converts light energy into chemical energy inside the chloroplasts of " +
	"green plant cells. The light reactions split water and release oxygen as a by-product.\n\n" +
	"The Calvin cycle then fixes carbon dioxide into sugars using the energy carriers made in the " +
	"light reactions. Plants store the sugars as starch for later growth."

// stubLLM implements driven.LLMService with a fixed response.
type stubLLM struct {
	response string
	calls    int
}

func (s *stubLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	s.calls++
	return s.response, nil
}

func (s *stubLLM) Chat(context.Context, []driven.ChatMessage, driven.ChatOptions) (string, error) {
	return s.response, nil
}

func (s *stubLLM) ModelName() string          { return "stub" }
func (s *stubLLM) Ping(context.Context) error { return nil }
func (s *stubLLM) Close() error               { return nil }

// stubExtractor implements driven.PageExtractor and returns fixed pages.
type stubExtractor struct {
	pages []string
}

func (s *stubExtractor) SupportedMIMETypes() []string { return []string{"application/pdf"} }
func (s *stubExtractor) IsEncrypted([]byte) bool      { return false }
func (s *stubExtractor) ExtractPages(context.Context, []byte) ([]string, error) {
	return s.pages, nil
}

// testRuntime is a Runtime over memory stores.
type testRuntime struct {
	settings *services.SettingsService
	services *Services
	docs     *memory.DocumentStore
	llm      *stubLLM
	closed   bool
}

func newTestRuntime(env map[string]string) *testRuntime {
	docs := memory.NewDocumentStore()
	index := vecmemory.New(testDims)
	flashcards := memory.NewFlashcardStore()
	llm := &stubLLM{response: "Plants use chloroplasts."}

	ids := 0
	deps := services.Dependencies{
		Segmenter:  segmenter.New(),
		Embedder:   hashed.New(testDims),
		Index:      index,
		Documents:  docs,
		Flashcards: flashcards,
		Queries:    memory.NewQueryLog(),
		Extractor:  &stubExtractor{pages: []string{biologyText}},
		LLM:        llm,
		NewID: func() string {
			ids++
			return fmt.Sprintf("doc-%03d", ids)
		},
	}

	retrieval := services.NewRetrievalService(deps)
	documents := services.NewDocumentService(docs, index, flashcards)
	settings := services.NewSettingsService(memory.NewConfigStore(), nil).
		WithEnv(func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		})

	return &testRuntime{
		settings: settings,
		docs:     docs,
		llm:      llm,
		services: &Services{
			Retrieval:  retrieval,
			Answers:    services.NewAnswerService(retrieval, deps),
			Flashcards: services.NewFlashcardService(deps),
			Documents:  documents,
			Watch:      services.NewWatchService(retrieval, documents, docs),
		},
	}
}

func (r *testRuntime) Settings() driving.SettingsService { return r.settings }

func (r *testRuntime) Services(context.Context) (*Services, error) { return r.services, nil }

func (r *testRuntime) Close() error {
	r.closed = true
	return nil
}

// seed ingests a document for the owner and returns its ID.
func (r *testRuntime) seed(t *testing.T, owner, title string) string {
	t.Helper()
	id, err := r.services.Retrieval.Ingest(context.Background(), driving.IngestRequest{
		OwnerID: owner,
		Title:   title,
		Pages:   []string{biologyText},
	})
	require.NoError(t, err)
	return id
}

// execute runs the root command against the runtime and returns its output.
func execute(t *testing.T, r Runtime, args ...string) (string, error) {
	t.Helper()

	resetFlags()
	rt = nil
	newRuntime = func(string) (Runtime, error) {
		if r == nil {
			return nil, errors.New("no runtime")
		}
		return r, nil
	}
	t.Cleanup(func() {
		rt = nil
		newRuntime = nil
		resetFlags()
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores flag variables, which persist between executions.
func resetFlags() {
	ownerFlag = ""
	configDirFlag = ""
	verboseFlag = false
	jsonFlag = false
	contextTopK = 0
	historyLimit = 20
	flashcardCount = 5
	watchNoScan = false
}
