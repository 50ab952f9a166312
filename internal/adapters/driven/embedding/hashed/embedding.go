// Package hashed provides an offline embedder based on feature hashing.
//
// Each lower-cased word is hashed into one of Dimensions buckets with a
// hash-derived sign, and the resulting bag-of-words vector is L2-normalised.
// Texts that share vocabulary land close together under cosine distance. No
// model or network is involved, so output is deterministic across runs.
package hashed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

// ModelName is reported by every hashed embedder.
const ModelName = "hashed-bow"

// Embedder is a deterministic feature-hashing embedder.
type Embedder struct {
	dimensions int
}

// New creates a hashed embedder. Non-positive dimensions use the default width.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDims
	}
	return &Embedder{dimensions: dimensions}
}

// Embed hashes text into a normalised vector. Text without words yields the
// zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum64()
		bucket := sum % uint64(e.dimensions)
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// EmbedMany embeds each text in order.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int { return e.dimensions }

// ModelName returns "hashed-bow".
func (e *Embedder) ModelName() string { return ModelName }

// Ping always succeeds.
func (e *Embedder) Ping(context.Context) error { return nil }

// Close is a no-op.
func (e *Embedder) Close() error { return nil }
