package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/engramdev/engram/pkg/engram"
	"github.com/engramdev/engram/pkg/errors"
	"github.com/engramdev/engram/pkg/retrieval"
)

// MCPServer exposes the facade as MCP tools over stdio.
type MCPServer struct {
	engram    *engram.Engram
	mcpServer *server.MCPServer
}

// NewMCPServer creates an MCP server with the memory tools registered.
func NewMCPServer(e *engram.Engram, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		"engram",
		version,
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		engram:    e,
		mcpServer: mcpServer,
	}

	mcpServer.AddTool(newStoreMemoryTool(), s.handleStoreMemory)
	mcpServer.AddTool(newSearchMemoryTool(), s.handleSearchMemory)
	mcpServer.AddTool(newRelatedMemoriesTool(), s.handleRelatedMemories)

	return s
}

// ServeStdio runs the server over stdin/stdout until the stream closes.
func (s *MCPServer) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func newStoreMemoryTool() mcp.Tool {
	return mcp.NewTool("store_memory",
		mcp.WithDescription("Store a statement in memory. The statement is analyzed first; trivia below the importance threshold is not kept."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The statement to remember"),
		),
	)
}

func (s *MCPServer) handleStoreMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.engram.Ingest(ctx, content)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store memory: %v", err)), nil
	}

	if !result.Stored {
		return mcp.NewToolResultText("Not worth storing: the statement scored below the importance threshold."), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Memory stored with ID: %s", result.Record.ID)), nil
}

func newSearchMemoryTool() mcp.Tool {
	return mcp.NewTool("search_memory",
		mcp.WithDescription("Search stored memories by keyword or semantic similarity, ranked by relevance."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
		mcp.WithString("category",
			mcp.Description("Keep only memories carrying this category"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results"),
		),
		mcp.WithNumber("min_importance",
			mcp.Description("Importance floor in [0,1]"),
		),
		mcp.WithBoolean("semantic",
			mcp.Description("Rank by vector similarity instead of keyword overlap"),
		),
	)
}

func (s *MCPServer) handleSearchMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := retrieval.Options{
		Category:          request.GetString("category", ""),
		Limit:             int(request.GetFloat("limit", 0)),
		MinImportance:     request.GetFloat("min_importance", 0),
		UseSemanticSearch: request.GetBool("semantic", false),
	}

	results, err := s.engram.Search(ctx, query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No memories found."), nil
	}

	return mcp.NewToolResultText(formatResults(results)), nil
}

func newRelatedMemoriesTool() mcp.Tool {
	return mcp.NewTool("related_memories",
		mcp.WithDescription("Find memories related to a stored memory through shared categories, entities, and overlapping wording."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The id of the base memory"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results"),
		),
	)
}

func (s *MCPServer) handleRelatedMemories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := retrieval.Options{
		Limit: int(request.GetFloat("limit", 0)),
	}

	results, err := s.engram.Related(ctx, id, opts)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("memory not found: %s", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("related lookup failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No related memories found."), nil
	}

	return mcp.NewToolResultText(formatResults(results)), nil
}

// formatResults renders ranked results as readable text for the caller.
func formatResults(results []retrieval.Result) string {
	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Sprintf("Found %d memories (failed to render: %v)", len(results), err)
	}
	return fmt.Sprintf("Found %d memories:\n%s", len(results), out)
}
