// Package mcp provides an MCP (Model Context Protocol) server adapter for studyrag.
// It lets AI assistants ingest PDFs and retrieve grounding passages for one owner.
package mcp

import "errors"

var (
	// ErrMissingOwner is returned when no owner is configured.
	ErrMissingOwner = errors.New("mcp: owner is required")

	// ErrMissingRetrievalService is returned when the retrieval service is not provided.
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

	// ErrAnswersUnavailable is returned by the ask tool when no answer service is configured.
	ErrAnswersUnavailable = errors.New("mcp: answer generation is not configured")
)
