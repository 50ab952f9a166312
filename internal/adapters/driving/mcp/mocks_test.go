package mcp

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	id       string
	context  *domain.AnswerContext
	err      error
	owner    string
	filename string
	content  []byte
	topK     int
}

func (m *mockRetrievalService) Ingest(_ context.Context, req driving.IngestRequest) (string, error) {
	m.owner = req.OwnerID
	return m.id, m.err
}

func (m *mockRetrievalService) IngestPDF(_ context.Context, ownerID, filename string, content []byte) (string, error) {
	m.owner, m.filename, m.content = ownerID, filename, content
	return m.id, m.err
}

func (m *mockRetrievalService) ReplacePDF(ctx context.Context, ownerID, filename string, content []byte) (string, error) {
	return m.IngestPDF(ctx, ownerID, filename, content)
}

func (m *mockRetrievalService) AnswerableContext(
	_ context.Context,
	ownerID, _ string,
	topK int,
) (*domain.AnswerContext, error) {
	m.owner, m.topK = ownerID, topK
	if m.err != nil {
		return nil, m.err
	}
	if m.context == nil {
		return &domain.AnswerContext{Matches: []domain.Match{}}, nil
	}
	return m.context, nil
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error
}

func (m *mockAnswerService) Ask(_ context.Context, _, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

func (m *mockAnswerService) History(_ context.Context, _ string, _ int) ([]domain.QueryRecord, error) {
	return nil, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	content   string
	err       error
	owner     string
}

func (m *mockDocumentService) List(_ context.Context, ownerID string) ([]domain.Document, error) {
	m.owner = ownerID
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _, _ string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.documents) == 0 {
		return nil, domain.NotFoundError("get document", "document not found")
	}
	return &m.documents[0], nil
}

func (m *mockDocumentService) GetContent(_ context.Context, ownerID, _ string) (string, error) {
	m.owner = ownerID
	return m.content, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _, _ string) error {
	return m.err
}
