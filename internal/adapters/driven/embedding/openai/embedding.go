// Package openai provides an embedding adapter for the OpenAI API and
// compatible endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/studyrag/internal/adapters/driven/embedding"
	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

// Default configuration values.
const (
	DefaultModel     = string(openai.SmallEmbedding3)
	DefaultTimeout   = 60 * time.Second
	DefaultBatchSize = 256
)

// Config holds configuration for the OpenAI embedder.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL for compatible servers.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions requests shortened vectors from text-embedding-3-* models.
	// Zero uses the model's native width.
	Dimensions int

	// RequestsPerSecond throttles API calls. Zero disables throttling.
	RequestsPerSecond float64

	// BatchSize caps inputs per request (default: 256).
	BatchSize int
}

// Embedder generates embeddings using the OpenAI API.
type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
	sendDims   bool
	batchSize  int
	limiter    *rate.Limiter
}

// New creates a new OpenAI embedder.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, domain.ValidationError("openai.New", "API key is required", domain.ErrEmbeddingUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	// Only text-embedding-3-* accepts the dimensions field.
	native, known := domain.EmbeddingDimensions()[cfg.Model]
	sendDims := cfg.Dimensions > 0 &&
		(cfg.Model == string(openai.SmallEmbedding3) || cfg.Model == string(openai.LargeEmbedding3))
	dims := cfg.Dimensions
	if dims == 0 {
		if !known {
			native = 1536
		}
		dims = native
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: dims,
		sendDims:   sendDims,
		batchSize:  cfg.BatchSize,
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Embed generates a vector embedding for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany embeds texts in batches, one throttled request per batch.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	const op = "openai.EmbedMany"

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	}
	if e.sendDims {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, classify(op, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, embedding.Unavailable(op, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vecs := make([][]float32, len(data))
	for i, d := range data {
		if err := embedding.CheckWidth(op, e.dimensions, d.Embedding); err != nil {
			return nil, err
		}
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// classify maps API errors to domain errors. 429 also wraps ErrRateLimited.
func classify(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return embedding.Unavailable(op, fmt.Errorf("%w: %w", domain.ErrRateLimited, err))
	}
	return embedding.Unavailable(op, err)
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the name of the embedding model being used.
func (e *Embedder) ModelName() string {
	return e.model
}

// Ping lists models, which validates the API key without running inference.
func (e *Embedder) Ping(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return classify("openai.Ping", err)
	}
	return nil
}

// Close releases resources.
func (e *Embedder) Close() error {
	return nil
}
