package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexDocumentTool returns the tool definition for index_document
func indexDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_document",
		Description: "Index a document into the knowledge base, replacing any prior version under the same id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Stable document identifier (path, URL, or label)",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Raw document text; omit to read from path instead",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File to read the document text from when text is omitted",
				},
				"source_type": map[string]interface{}{
					"type":        "string",
					"description": "Origin of the document (text, file, url, ...)",
				},
			},
			Required: []string{"document_id"},
		},
	}
}

// queryTool returns the tool definition for query
func queryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query",
		Description: "Answer a question from the knowledge base with source attribution",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of chunks to retrieve (1-100)",
					"default":     5,
					"minimum":     1,
					"maximum":     100,
				},
				"generate": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, synthesize the answer with the generation backend; falls back to retrieval on failure",
					"default":     false,
				},
			},
			Required: []string{"query"},
		},
	}
}

// deleteDocumentTool returns the tool definition for delete_document
func deleteDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and all of its chunks from the knowledge base",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier of the document to remove",
				},
			},
			Required: []string{"document_id"},
		},
	}
}

// getStatsTool returns the tool definition for get_stats
func getStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_stats",
		Description: "Report knowledge base statistics: record and document counts, dimension, provider, database size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
