package mcp

import (
	"context"
	"net"
	"sort"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// connect opens an in-memory client session against the server.
func connect(t *testing.T, server *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func toolNames(t *testing.T, cs *mcp.ClientSession) []string {
	t.Helper()
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	return names
}

func TestNewServer(t *testing.T) {
	t.Run("missing owner returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingOwner)
	})

	t.Run("nil retrieval service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Owner: "alice"})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRetrievalService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Owner: "alice", Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("blank owner", func(t *testing.T) {
		ports := &Ports{Owner: "  ", Retrieval: &mockRetrievalService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingOwner)
	})

	t.Run("retrieval only is valid", func(t *testing.T) {
		ports := &Ports{Owner: "alice", Retrieval: &mockRetrievalService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Owner:     "alice",
			Retrieval: &mockRetrievalService{},
			Answers:   &mockAnswerService{},
			Documents: &mockDocumentService{},
		}
		assert.NoError(t, ports.Validate())
	})
}

func TestServer_Initialize(t *testing.T) {
	server := newTestServer(t, &Ports{
		Owner:     "alice",
		Retrieval: &mockRetrievalService{},
		Answers:   &mockAnswerService{},
		Documents: &mockDocumentService{},
	})

	cs := connect(t, server)

	info := cs.InitializeResult()
	require.NotNil(t, info)
	assert.Equal(t, "studyrag", info.ServerInfo.Name)
	assert.Equal(t, "StudyRAG", info.ServerInfo.Title)
	assert.Equal(t, Version, info.ServerInfo.Version)
	assert.Contains(t, info.Instructions, `owner "alice"`)
	assert.Contains(t, info.Instructions, "Use ask")
	assert.Equal(t, []string{"answerable_context", "ask", "ingest_pdf", "list_documents"}, toolNames(t, cs))
}

func TestServer_CallToolActsForOwner(t *testing.T) {
	retrieval := &mockRetrievalService{context: &domain.AnswerContext{
		Matches:          []domain.Match{{UnitID: "u1", DocumentID: "doc-1", Title: "biology.pdf", Content: "Chloroplasts"}},
		ContextAvailable: true,
	}}
	cs := connect(t, newTestServer(t, &Ports{Owner: "bob", Retrieval: retrieval}))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "answerable_context",
		Arguments: map[string]any{"question": "what do chloroplasts do?", "top_k": 2},
	})

	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "bob", retrieval.owner)
	assert.Equal(t, 2, retrieval.topK)
}

func TestInstructions(t *testing.T) {
	t.Run("retrieval only", func(t *testing.T) {
		got := instructions(&Ports{Owner: " alice ", Retrieval: &mockRetrievalService{}})

		assert.Contains(t, got, `owner "alice"`)
		assert.Contains(t, got, "answerable_context")
		assert.NotContains(t, got, "Use ask")
		assert.NotContains(t, got, "list_documents")
	})

	t.Run("documents advertise the resource", func(t *testing.T) {
		got := instructions(&Ports{Owner: "alice", Retrieval: &mockRetrievalService{}, Documents: &mockDocumentService{}})

		assert.Contains(t, got, "studyrag://documents")
	})
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	server := newTestServer(t, &Ports{Owner: "alice", Retrieval: &mockRetrievalService{}})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{
		Endpoint:   "http://" + ln.Addr().String(),
		MaxRetries: -1,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "studyrag", cs.InitializeResult().ServerInfo.Name)
	require.NoError(t, cs.Close())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunHTTPBadAddress(t *testing.T) {
	server := newTestServer(t, &Ports{Owner: "alice", Retrieval: &mockRetrievalService{}})

	err := server.RunHTTP(context.Background(), "127.0.0.1:-1")

	assert.Error(t, err)
}
