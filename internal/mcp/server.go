package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mhollis/knowbase/internal/chunker"
	"github.com/mhollis/knowbase/internal/embedder"
	"github.com/mhollis/knowbase/internal/indexer"
	"github.com/mhollis/knowbase/internal/llm"
	"github.com/mhollis/knowbase/internal/query"
	"github.com/mhollis/knowbase/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "knowbase"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.knowbase/index"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	store    *store.Store
	indexer  *indexer.Indexer
	engine   *query.Engine
	dbFile   string
	indexing indexer.IndexLock
	retry    RetryConfig
}

// NewServer creates a new MCP server instance
func NewServer(dbPath string) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".knowbase", "index")
	}

	st, err := store.Open(dbPath, store.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	// nil backend means retrieval-only answers
	var backend llm.Backend
	if b, err := llm.NewFromEnv(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize generation backend: %w", err)
	} else if b != nil {
		backend = b
	}

	ch := chunker.Default()

	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		store:   st,
		indexer: indexer.New(ch, emb, st, nil),
		engine:  query.New(emb, st, backend),
		dbFile:  filepath.Join(dbPath, store.DBFileName),
		retry:   DefaultRetryConfig(),
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexDocumentTool(), s.handleIndexDocument)
	s.mcp.AddTool(queryTool(), s.handleQuery)
	s.mcp.AddTool(deleteDocumentTool(), s.handleDeleteDocument)
	s.mcp.AddTool(getStatsTool(), s.handleGetStats)
}
