package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/studyrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/studyrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/studyrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/studyrag/internal/adapters/driven/storage/sqlite"
	vecmemory "github.com/custodia-labs/studyrag/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/studyrag/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/studyrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/studyrag/internal/connectors/filesystem"
	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
	"github.com/custodia-labs/studyrag/internal/core/services"
	"github.com/custodia-labs/studyrag/internal/logger"
	"github.com/custodia-labs/studyrag/internal/normalisers/pdf"
	"github.com/custodia-labs/studyrag/internal/postprocessors/segmenter"
)

// runtime wires adapters to services for one CLI invocation.
// Stores and providers are opened on the first call to Services.
type runtime struct {
	configDir string
	settings  *services.SettingsService

	once     sync.Once
	services *cli.Services
	err      error
	closers  []func() error
}

var _ cli.Runtime = (*runtime)(nil)

func newRuntime(configDir string) (cli.Runtime, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
		configDir = dir
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, domain.StorageError("config", "loading "+filepath.Join(configDir, "config.toml"), err)
	}

	return &runtime{
		configDir: configDir,
		settings:  services.NewSettingsService(store, ai.NewConfigValidator()),
	}, nil
}

func (r *runtime) Settings() driving.SettingsService {
	return r.settings
}

func (r *runtime) Services(ctx context.Context) (*cli.Services, error) {
	r.once.Do(func() {
		r.services, r.err = r.build(ctx)
	})
	return r.services, r.err
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *runtime) build(ctx context.Context) (*cli.Services, error) {
	settings, err := r.settings.Get()
	if err != nil {
		return nil, err
	}

	embedder, err := ai.CreateEmbedder(settings.Embedding)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, embedder.Close)

	llm, err := ai.CreateLLM(settings.LLM)
	if err != nil {
		return nil, err
	}
	if llm != nil {
		r.closers = append(r.closers, llm.Close)
	} else {
		logger.Debug("no LLM configured, ask and flashcards are unavailable")
	}

	stores, err := r.openStorage(ctx, settings, embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	prompts, err := file.NewPromptStore(filepath.Join(r.configDir, "prompts"))
	if err != nil {
		return nil, err
	}

	deps := services.Dependencies{
		Segmenter:    segmenter.New(segmenter.WithPolicy(settings.Segmenter)),
		Embedder:     embedder,
		Index:        stores.index,
		Documents:    stores.documents,
		Flashcards:   stores.flashcards,
		Queries:      stores.queries,
		Extractor:    pdf.New(),
		LLM:          llm,
		Prompts:      prompts,
		Segmentation: settings.Segmenter,
		Retrieval:    settings.Retrieval,
		Sentences:    segmenter.PunktSplitter,
	}

	retrieval := services.NewRetrievalService(deps)
	documents := services.NewDocumentService(stores.documents, stores.index, stores.flashcards)

	return &cli.Services{
		Retrieval:  retrieval,
		Answers:    services.NewAnswerService(retrieval, deps),
		Flashcards: services.NewFlashcardService(deps),
		Documents:  documents,
		Watch:      services.NewWatchService(retrieval, documents, stores.documents),
		NewWatcher: func(dir string) driven.FileWatcher { return filesystem.New(dir) },
		ListPDFs:   filesystem.ListPDFs,
	}, nil
}

type storage struct {
	documents  driven.DocumentStore
	flashcards driven.FlashcardStore
	queries    driven.QueryLog
	index      driven.VectorIndex
}

// openStorage opens the configured backend. Postgres holds only the vectors;
// documents, flashcards and the query log stay in SQLite.
func (r *runtime) openStorage(ctx context.Context, settings *domain.AppSettings, dims int) (*storage, error) {
	switch settings.Storage.Backend {
	case domain.StorageMemory:
		return &storage{
			documents:  memory.NewDocumentStore(),
			flashcards: memory.NewFlashcardStore(),
			queries:    memory.NewQueryLog(),
			index:      vecmemory.New(dims),
		}, nil

	case domain.StorageSQLite, domain.StoragePostgres:
		dataDir := settings.Storage.DataDir
		if dataDir == "" {
			dataDir = filepath.Join(r.configDir, "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, domain.StorageError("storage", "opening SQLite store", err)
		}
		r.closers = append(r.closers, store.Close)
		logger.Debug("storage: %s", store.Path())

		s := &storage{
			documents:  store.DocumentStore(),
			flashcards: store.FlashcardStore(),
			queries:    store.QueryLog(),
		}

		if settings.Storage.Backend == domain.StoragePostgres {
			idx, err := pgvector.Open(ctx, pgvector.Config{
				DSN:        settings.Storage.PostgresDSN,
				Dimensions: dims,
			})
			if err != nil {
				return nil, err
			}
			r.closers = append(r.closers, idx.Close)
			s.index = idx
			return s, nil
		}

		idx, err := store.VectorIndex(ctx, dims)
		if err != nil {
			return nil, err
		}
		s.index = idx
		return s, nil

	default:
		return nil, domain.ValidationError("storage",
			fmt.Sprintf("invalid storage backend: %s", settings.Storage.Backend), domain.ErrInvalidInput)
	}
}
