package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid document URI", "studyrag://documents/doc-456", "doc-456"},
		{"invalid prefix", "file://documents/doc-456", ""},
		{"nested path", "studyrag://documents/doc-456/chunks", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns documents as JSON", func(t *testing.T) {
		docs := &mockDocumentService{documents: []domain.Document{{ID: "doc-1", Title: "biology.pdf"}}}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Documents: docs})

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("studyrag://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"id": "doc-1"`)
		assert.Contains(t, result.Contents[0].Text, `"title": "biology.pdf"`)
	})

	t.Run("empty list without document service", func(t *testing.T) {
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}})

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("studyrag://documents"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("list error", func(t *testing.T) {
		docs := &mockDocumentService{err: errors.New("database locked")}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Documents: docs})

		_, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("studyrag://documents"))

		assert.ErrorContains(t, err, "database locked")
	})
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns content", func(t *testing.T) {
		docs := &mockDocumentService{content: "Photosynthesis happens in chloroplasts."}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Documents: docs})

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("studyrag://documents/doc-1"))

		require.NoError(t, err)
		assert.Equal(t, "Photosynthesis happens in chloroplasts.", result.Contents[0].Text)
		assert.Equal(t, "alice", docs.owner)
	})

	t.Run("invalid URI", func(t *testing.T) {
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Documents: &mockDocumentService{}})

		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("studyrag://invalid/uri"))

		assert.Error(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		docs := &mockDocumentService{err: domain.NotFoundError("get document", "document not found")}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Documents: docs})

		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("studyrag://documents/doc-9"))

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
