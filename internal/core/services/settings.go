package services

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyOwner              = "owner"
	keyStorageBackend     = "storage.backend"
	keyStorageDataDir     = "storage.data_dir"
	keyStoragePostgresDSN = "storage.postgres_dsn"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDims          = "embedding.dimensions"
	keyEmbedRPS           = "embedding.requests_per_second"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keySegMaxChunk        = "segmenter.max_chunk_size"
	keySegMinParagraph    = "segmenter.min_paragraph_length"
	keySegMinChunk        = "segmenter.min_chunk_length"
	keySegMinAlpha        = "segmenter.min_alpha_ratio"
	keyRetGranularity     = "retrieval.granularity"
	keyRetTopK            = "retrieval.top_k"
	keyRetMinViable       = "retrieval.min_viable_length"
	keyRetPreview         = "retrieval.preview_length"
	keyRetContextBudget   = "retrieval.context_budget"
)

// Environment variables that override file values.
const (
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvOwner       = "STUDYRAG_OWNER"
	EnvPostgresDSN = "STUDYRAG_POSTGRES_DSN"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
)

var settingKeys = []struct {
	key  string
	kind keyKind
}{
	{keyOwner, kindString},
	{keyStorageBackend, kindString},
	{keyStorageDataDir, kindString},
	{keyStoragePostgresDSN, kindString},
	{keyEmbedProvider, kindString},
	{keyEmbedModel, kindString},
	{keyEmbedBaseURL, kindString},
	{keyEmbedAPIKey, kindString},
	{keyEmbedDims, kindInt},
	{keyEmbedRPS, kindFloat},
	{keyLLMProvider, kindString},
	{keyLLMModel, kindString},
	{keyLLMBaseURL, kindString},
	{keyLLMAPIKey, kindString},
	{keySegMaxChunk, kindInt},
	{keySegMinParagraph, kindInt},
	{keySegMinChunk, kindInt},
	{keySegMinAlpha, kindFloat},
	{keyRetGranularity, kindString},
	{keyRetTopK, kindInt},
	{keyRetMinViable, kindInt},
	{keyRetPreview, kindInt},
	{keyRetContextBudget, kindInt},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// aiValidator may be nil, in which case Validate skips connectivity checks.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup. Used by tests.
func (s *SettingsService) WithEnv(lookup func(string) (string, bool)) *SettingsService {
	s.lookupEnv = lookup
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, d.Embedding.Provider)
	embedModel := s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[embedProvider])
	embedDims := s.configStore.GetInt(keyEmbedDims)
	if embedDims <= 0 {
		embedDims = domain.EmbeddingDimensions()[embedModel]
		if embedDims == 0 {
			embedDims = domain.DefaultEmbeddingDims
		}
	}

	llmProvider := s.getProvider(keyLLMProvider, d.LLM.Provider)

	settings := &domain.AppSettings{
		Owner: s.configStore.GetString(keyOwner),
		Storage: domain.StorageSettings{
			Backend:     s.getBackend(d.Storage.Backend),
			DataDir:     s.configStore.GetString(keyStorageDataDir),
			PostgresDSN: s.configStore.GetString(keyStoragePostgresDSN),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          embedProvider,
			Model:             embedModel,
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        embedDims,
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		LLM: domain.LLMSettings{
			Provider: llmProvider,
			Model:    s.getString(keyLLMModel, domain.DefaultLLMModels()[llmProvider]),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Segmenter: domain.SegmentationPolicy{
			MaxChunkSize:       s.getInt(keySegMaxChunk, d.Segmenter.MaxChunkSize),
			MinParagraphLength: s.getInt(keySegMinParagraph, d.Segmenter.MinParagraphLength),
			MinChunkLength:     s.getInt(keySegMinChunk, d.Segmenter.MinChunkLength),
			MinAlphaRatio:      s.getFloat(keySegMinAlpha, d.Segmenter.MinAlphaRatio),
		},
		Retrieval: domain.RetrievalPolicy{
			Granularity:     s.getGranularity(d.Retrieval.Granularity),
			TopK:            s.getInt(keyRetTopK, d.Retrieval.TopK),
			MinViableLength: s.getInt(keyRetMinViable, d.Retrieval.MinViableLength),
			PreviewLength:   s.getInt(keyRetPreview, d.Retrieval.PreviewLength),
			ContextBudget:   s.getInt(keyRetContextBudget, d.Retrieval.ContextBudget),
		},
	}

	s.applyEnv(settings)
	return settings, nil
}

func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if v, ok := s.lookupEnv(EnvOwner); ok && v != "" {
		settings.Owner = v
	}
	if v, ok := s.lookupEnv(EnvPostgresDSN); ok && v != "" {
		settings.Storage.PostgresDSN = v
	}
	if v, ok := s.lookupEnv(EnvOpenAIKey); ok && v != "" {
		if settings.Embedding.Provider == domain.AIProviderOpenAI {
			settings.Embedding.APIKey = v
		}
		if settings.LLM.Provider == domain.AIProviderOpenAI {
			settings.LLM.APIKey = v
		}
	}
}

// Save persists application settings. API keys are written only when set.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyOwner, settings.Owner},
		{keyStorageBackend, string(settings.Storage.Backend)},
		{keyStorageDataDir, settings.Storage.DataDir},
		{keyStoragePostgresDSN, settings.Storage.PostgresDSN},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keySegMaxChunk, settings.Segmenter.MaxChunkSize},
		{keySegMinParagraph, settings.Segmenter.MinParagraphLength},
		{keySegMinChunk, settings.Segmenter.MinChunkLength},
		{keySegMinAlpha, settings.Segmenter.MinAlphaRatio},
		{keyRetGranularity, settings.Retrieval.Granularity.String()},
		{keyRetTopK, settings.Retrieval.TopK},
		{keyRetMinViable, settings.Retrieval.MinViableLength},
		{keyRetPreview, settings.Retrieval.PreviewLength},
		{keyRetContextBudget, settings.Retrieval.ContextBudget},
	}
	if settings.Embedding.APIKey != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyLLMAPIKey, settings.LLM.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return domain.StorageError("settings.Save", "save "+v.key, err)
		}
	}
	return nil
}

// Set parses value according to the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	const op = "settings.Set"

	for _, k := range settingKeys {
		if k.key != key {
			continue
		}
		var parsed any = value
		switch k.kind {
		case kindInt:
			n, err := strconv.Atoi(value)
			if err != nil {
				return domain.ValidationError(op, fmt.Sprintf("%s expects an integer", key), domain.ErrInvalidInput)
			}
			parsed = n
		case kindFloat:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return domain.ValidationError(op, fmt.Sprintf("%s expects a number", key), domain.ErrInvalidInput)
			}
			parsed = f
		}
		if err := s.configStore.Set(key, parsed); err != nil {
			return domain.StorageError(op, "save "+key, err)
		}
		return nil
	}
	return domain.ValidationError(op, fmt.Sprintf("unknown setting %q", key), domain.ErrInvalidInput)
}

// Keys returns every settable key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

// Validate checks the settings for consistency, then pings the configured
// providers when a validator is available.
func (s *SettingsService) Validate(ctx context.Context) error {
	const op = "settings.Validate"

	settings, err := s.Get()
	if err != nil {
		return err
	}

	invalid := func(reason string) error {
		return domain.ValidationError(op, reason, domain.ErrInvalidInput)
	}

	if !settings.Storage.Backend.IsValid() {
		return invalid(fmt.Sprintf("invalid storage backend: %s", settings.Storage.Backend))
	}
	if settings.Storage.Backend == domain.StoragePostgres && settings.Storage.PostgresDSN == "" {
		return invalid("storage backend postgres requires storage.postgres_dsn or " + EnvPostgresDSN)
	}
	if !settings.Embedding.IsConfigured() {
		return invalid(fmt.Sprintf("embedding provider %q is not configured", settings.Embedding.Provider))
	}
	if settings.Embedding.Dimensions <= 0 {
		return invalid("embedding.dimensions must be positive")
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return invalid(fmt.Sprintf("LLM provider %q is not configured", settings.LLM.Provider))
	}
	if seg := settings.Segmenter; seg.MinAlphaRatio < 0 || seg.MinAlphaRatio >= 1 {
		return invalid("segmenter.min_alpha_ratio must be in [0, 1)")
	}
	if !settings.Retrieval.Granularity.IsValid() {
		return invalid(fmt.Sprintf("invalid retrieval granularity: %s", settings.Retrieval.Granularity))
	}
	if settings.Retrieval.TopK <= 0 {
		return invalid("retrieval.top_k must be positive")
	}

	if s.aiValidator == nil {
		return nil
	}
	if err := s.aiValidator.ValidateEmbedding(ctx, settings.Embedding); err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, settings.LLM)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return domain.AIProvider(val)
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := s.configStore.GetString(keyStorageBackend)
	if val == "" {
		return defaultVal
	}
	return domain.StorageBackend(val)
}

func (s *SettingsService) getGranularity(defaultVal domain.Granularity) domain.Granularity {
	val := s.configStore.GetString(keyRetGranularity)
	if val == "" {
		return defaultVal
	}
	return domain.Granularity(val)
}
