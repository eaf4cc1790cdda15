package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mhollis/knowbase/internal/query"
	"github.com/mhollis/knowbase/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32001 // Another indexing operation is already running
	ErrorCodeDocumentNotRead    = -32002 // Document file could not be read
)

// handleIndexDocument handles the index_document tool invocation
func (s *Server) handleIndexDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	documentID, ok := args["document_id"].(string)
	if !ok || documentID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "document_id parameter is required", map[string]interface{}{
			"param":  "document_id",
			"reason": "missing or empty",
		})
	}

	text, _ := args["text"].(string)
	path, _ := args["path"].(string)
	if text == "" && path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "either text or path is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing",
		})
	}

	sourceType := getStringDefault(args, "source_type", "text")
	if text == "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, newMCPError(ErrorCodeDocumentNotRead, "failed to read document file", map[string]interface{}{
				"param": "path",
				"error": err.Error(),
			})
		}
		text = string(data)
		sourceType = getStringDefault(args, "source_type", "file")
	}

	if !s.indexing.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "another indexing operation is in progress", nil)
	}
	defer s.indexing.Release()

	meta := types.DocumentMeta{SourceType: sourceType}

	// Transient embedding failures are retried here; the pipeline itself
	// never retries.
	count, err := retryWithBackoff(ctx, s.retry, func() (int, error) {
		return s.indexer.IndexDocument(ctx, documentID, text, meta)
	}, func(err error) bool {
		return errors.Is(err, types.ErrEmbeddingProvider)
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":        true,
		"document_id":    documentID,
		"chunks_created": count,
		"source_type":    sourceType,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleQuery handles the query tool invocation
func (s *Server) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	queryText, ok := args["query"].(string)
	if !ok || queryText == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", query.DefaultTopK)
	if topK < 1 || topK > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 100", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}
	generate := getBoolDefault(args, "generate", false)

	answer, err := s.engine.Answer(ctx, queryText, topK, generate)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "query failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	sources := make([]map[string]interface{}, len(answer.Sources))
	for i, src := range answer.Sources {
		sources[i] = map[string]interface{}{
			"document_id": src.DocumentID,
			"chunk_index": src.ChunkIndex,
			"score":       src.Score,
			"text":        src.Text,
		}
	}

	response := map[string]interface{}{
		"answer":    answer.Text,
		"generated": answer.Generated,
		"sources":   sources,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteDocument handles the delete_document tool invocation
func (s *Server) handleDeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	documentID, ok := args["document_id"].(string)
	if !ok || documentID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "document_id parameter is required", map[string]interface{}{
			"param":  "document_id",
			"reason": "missing or empty",
		})
	}

	if err := s.indexer.DeleteDocument(ctx, documentID); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "delete failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"deleted":     true,
		"document_id": documentID,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStats handles the get_stats tool invocation
func (s *Server) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.indexer.Stats()

	var dbSizeMB float64
	if info, err := os.Stat(s.dbFile); err == nil {
		dbSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	response := map[string]interface{}{
		"records":    stats.Records,
		"documents":  stats.Documents,
		"dimension":  stats.Dimension,
		"provider":   stats.Provider,
		"model":      stats.Model,
		"db_size_mb": fmt.Sprintf("%.2f", dbSizeMB),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
