package mcp

import (
	"strings"

	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Owner is the owner every tool call acts for.
	Owner string

	// Retrieval ingests PDFs and assembles context.
	Retrieval driving.RetrievalService

	// Answers generates grounded answers. Optional.
	Answers driving.AnswerService

	// Documents lists and reads documents. Optional.
	Documents driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if strings.TrimSpace(p.Owner) == "" {
		return ErrMissingOwner
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
