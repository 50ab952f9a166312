// Package llm holds helpers shared by the LLM adapters.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// Unavailable classifies an LLM failure. Context errors pass through.
func Unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.ExternalError(op, "LLM provider failed",
		fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err))
}
