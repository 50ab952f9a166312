// Package embedding holds helpers shared by the embedding adapters.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// Unavailable classifies a provider failure. Context errors pass through so
// callers can tell cancellation apart from an outage.
func Unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.ExternalError(op, "embedding provider failed",
		fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err))
}

// CheckWidth rejects a vector whose width differs from the configured one.
func CheckWidth(op string, want int, vec []float32) error {
	if len(vec) != want {
		return domain.ValidationError(op,
			fmt.Sprintf("provider returned %d dimensions, expected %d", len(vec), want),
			domain.ErrDimensionMismatch)
	}
	return nil
}
