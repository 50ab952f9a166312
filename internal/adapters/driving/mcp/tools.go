package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// maxPDFSize bounds the files the ingest tool will read.
const maxPDFSize = 64 << 20

// IngestPDFInput is the input schema for the ingest_pdf tool.
type IngestPDFInput struct {
	Path string `json:"path" jsonschema:"absolute path of the PDF file to ingest"`
}

// IngestPDFOutput is the output schema for the ingest_pdf tool.
type IngestPDFOutput struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
}

// ContextInput is the input schema for the answerable_context tool.
type ContextInput struct {
	Question string `json:"question" jsonschema:"the question to find grounding passages for"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"maximum number of passages to return (default 3)"`
}

// MatchOutput is a single ranked passage.
type MatchOutput struct {
	UnitID     string  `json:"unit_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Distance   float64 `json:"distance"`
}

// ContextOutput is the output schema for the answerable_context tool.
type ContextOutput struct {
	Matches          []MatchOutput `json:"matches"`
	ContextAvailable bool          `json:"context_available"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the ingested documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer           string        `json:"answer"`
	QueryID          string        `json:"query_id,omitempty"`
	ContextAvailable bool          `json:"context_available"`
	Sources          []MatchOutput `json:"sources"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// DocumentOutput describes one ingested document.
type DocumentOutput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ChunkCount  int    `json:"chunk_count"`
	Granularity string `json:"granularity"`
	CreatedAt   string `json:"created_at"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_pdf",
		Description: "Extract, segment and index a PDF file so its content can be searched",
	}, s.handleIngestPDF)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answerable_context",
		Description: "Return the passages from ingested documents that best match a question",
	}, s.handleAnswerableContext)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the ingested documents",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the ingested documents",
	}, s.handleListDocuments)
}

func (s *Server) handleIngestPDF(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestPDFInput,
) (*mcp.CallToolResult, IngestPDFOutput, error) {
	info, err := os.Stat(input.Path)
	if err != nil {
		return nil, IngestPDFOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
	}
	if info.Size() > maxPDFSize {
		return nil, IngestPDFOutput{}, fmt.Errorf("%s is larger than %d MiB", input.Path, maxPDFSize>>20)
	}
	content, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, IngestPDFOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
	}

	id, err := s.ports.Retrieval.IngestPDF(ctx, s.ports.Owner, input.Path, content)
	if err != nil {
		return nil, IngestPDFOutput{}, err
	}
	return nil, IngestPDFOutput{DocumentID: id, Title: info.Name()}, nil
}

func (s *Server) handleAnswerableContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContextInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	actx, err := s.ports.Retrieval.AnswerableContext(ctx, s.ports.Owner, input.Question, input.TopK)
	if err != nil {
		return nil, ContextOutput{}, err
	}
	return nil, ContextOutput{
		Matches:          toMatchOutputs(actx.Matches),
		ContextAvailable: actx.ContextAvailable,
	}, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answers == nil {
		return nil, AskOutput{}, ErrAnswersUnavailable
	}
	answer, err := s.ports.Answers.Ask(ctx, s.ports.Owner, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{
		Answer:           answer.Text,
		QueryID:          answer.QueryID,
		ContextAvailable: answer.ContextAvailable,
		Sources:          toMatchOutputs(answer.Matches),
	}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Documents == nil {
		return nil, ListDocumentsOutput{Documents: []DocumentOutput{}}, nil
	}
	docs, err := s.ports.Documents.List(ctx, s.ports.Owner)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	out := ListDocumentsOutput{Documents: make([]DocumentOutput, len(docs)), Count: len(docs)}
	for i := range docs {
		out.Documents[i] = toDocumentOutput(&docs[i])
	}
	return nil, out, nil
}

func toMatchOutputs(matches []domain.Match) []MatchOutput {
	out := make([]MatchOutput, len(matches))
	for i, m := range matches {
		out[i] = MatchOutput{
			UnitID:     m.UnitID,
			DocumentID: m.DocumentID,
			Title:      m.Title,
			Content:    m.Content,
			Distance:   m.Distance,
		}
	}
	return out
}

func toDocumentOutput(d *domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:          d.ID,
		Title:       d.Title,
		ChunkCount:  d.ChunkCount,
		Granularity: d.Granularity.String(),
		CreatedAt:   d.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
