package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderHashed is the offline feature-hashing embedder.
	// It only serves embeddings.
	AIProviderHashed AIProvider = "hashed"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderHashed:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs without a network service.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderHashed
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local server)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderHashed:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects where documents and vectors are persisted.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite keeps everything in a single SQLite file under the data dir.
	StorageSQLite StorageBackend = "sqlite"

	// StoragePostgres keeps documents in SQLite and vectors in PostgreSQL with pgvector.
	StoragePostgres StorageBackend = "postgres"

	// StorageMemory keeps everything in process memory.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StoragePostgres, StorageMemory:
		return true
	default:
		return false
	}
}

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	// Backend selects the vector index implementation.
	Backend StorageBackend

	// DataDir is where the SQLite database lives. Empty means the config dir.
	DataDir string

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector width produced by the model.
	Dimensions int

	// RequestsPerSecond throttles remote embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if l.Provider != AIProviderOllama && l.Provider != AIProviderOpenAI {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// SegmentationPolicy holds the segmenter thresholds. Lengths are in characters.
type SegmentationPolicy struct {
	// MaxChunkSize is the soft upper bound on chunk length.
	MaxChunkSize int

	// MinParagraphLength drops shorter paragraphs before splitting.
	MinParagraphLength int

	// MinChunkLength drops shorter chunks after splitting.
	MinChunkLength int

	// MinAlphaRatio drops chunks whose letter fraction is at or below it.
	MinAlphaRatio float64
}

// RetrievalPolicy holds ingestion and context assembly thresholds.
type RetrievalPolicy struct {
	// Granularity selects chunk or document vector units.
	Granularity Granularity

	// TopK is the default number of matches returned.
	TopK int

	// MinViableLength rejects documents whose body is shorter.
	MinViableLength int

	// PreviewLength truncates match content.
	PreviewLength int

	// ContextBudget caps the assembled LLM context.
	ContextBudget int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Owner is the default owner identifier for CLI calls.
	Owner string

	// Storage holds persistence settings.
	Storage StorageSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Segmenter holds segmentation thresholds.
	Segmenter SegmentationPolicy

	// Retrieval holds retrieval thresholds.
	Retrieval RetrievalPolicy
}

// Default thresholds.
const (
	DefaultMaxChunkSize       = 500
	DefaultMinParagraphLength = 10
	DefaultMinChunkLength     = 20
	DefaultMinAlphaRatio      = 0.5
	DefaultTopK               = 3
	DefaultMinViableLength    = 100
	DefaultPreviewLength      = 2000
	DefaultContextBudget      = 16000
	DefaultEmbeddingDims      = 384
)

// DefaultSegmentationPolicy returns the default segmenter thresholds.
func DefaultSegmentationPolicy() SegmentationPolicy {
	return SegmentationPolicy{
		MaxChunkSize:       DefaultMaxChunkSize,
		MinParagraphLength: DefaultMinParagraphLength,
		MinChunkLength:     DefaultMinChunkLength,
		MinAlphaRatio:      DefaultMinAlphaRatio,
	}
}

// DefaultRetrievalPolicy returns the default retrieval thresholds.
func DefaultRetrievalPolicy() RetrievalPolicy {
	return RetrievalPolicy{
		Granularity:     GranularityChunk,
		TopK:            DefaultTopK,
		MinViableLength: DefaultMinViableLength,
		PreviewLength:   DefaultPreviewLength,
		ContextBudget:   DefaultContextBudget,
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings default to a local Ollama all-minilm model; the LLM is left
// unconfigured until the user sets one.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{
			Backend: StorageSQLite,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      DefaultEmbeddingModels()[AIProviderOllama],
			Dimensions: DefaultEmbeddingDims,
		},
		LLM:       LLMSettings{},
		Segmenter: DefaultSegmentationPolicy(),
		Retrieval: DefaultRetrievalPolicy(),
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHashed,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderHashed: "hashed-bow",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"all-minilm":        384,
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
