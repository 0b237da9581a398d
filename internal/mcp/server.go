// Package mcp exposes the companion's long-term memory over the Model
// Context Protocol, so external MCP clients can list, add, and forget
// facts. The server speaks stdio, the transport every MCP host supports.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/confidant-ai/confidant/internal/session"
)

// Server wraps the session cache behind MCP memory tools.
type Server struct {
	cache  *session.Cache
	logger *slog.Logger
	mcp    *server.MCPServer
}

// NewServer builds the MCP server and registers the memory tools.
func NewServer(cache *session.Cache, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cache:  cache,
		logger: logger.With("component", "mcp"),
	}

	m := server.NewMCPServer("confidant-memory", version,
		server.WithToolCapabilities(false),
	)

	m.AddTool(mcp.NewTool("memory_list",
		mcp.WithDescription("List everything the companion remembers about the user."),
	), s.handleList)

	m.AddTool(mcp.NewTool("memory_add",
		mcp.WithDescription("Remember a new fact about the user."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The fact to remember, one short sentence."),
		),
	), s.handleAdd)

	m.AddTool(mcp.NewTool("memory_forget",
		mcp.WithDescription("Forget a fact by its id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The fact id, as returned by memory_list."),
		),
	), s.handleForget)

	s.mcp = m
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout until the client
// disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving memory tools over stdio")
	if err := server.ServeStdio(s.mcp); err != nil {
		return fmt.Errorf("mcp: serve: %w", err)
	}
	return nil
}

func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	facts := s.cache.Facts()
	if len(facts) == 0 {
		return mcp.NewToolResultText("No facts remembered yet."), nil
	}

	var b strings.Builder
	for _, f := range facts {
		fmt.Fprintf(&b, "%s\t%s\n", f.ID, f.Content)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleAdd(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return mcp.NewToolResultError("content must not be empty"), nil
	}

	fact, added := s.cache.AddFact(content)
	if !added {
		return mcp.NewToolResultText("Already remembered: " + fact.Content), nil
	}
	s.logger.Info("fact added via mcp", "fact_id", fact.ID)
	return mcp.NewToolResultText("Remembered with id " + fact.ID), nil
}

func (s *Server) handleForget(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.cache.DeleteFact(id); err != nil {
		return mcp.NewToolResultError("no fact with id " + id), nil
	}
	s.logger.Info("fact forgotten via mcp", "fact_id", id)
	return mcp.NewToolResultText("Forgotten."), nil
}
