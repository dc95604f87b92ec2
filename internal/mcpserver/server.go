// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Munin capture and query tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/munin/internal/noteservice"
	"github.com/starford/munin/internal/query"
)

// Server wraps the MCP server with Munin tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	engine *query.Engine
}

// New creates a new MCP server with all Munin tools registered.
func New(svc *noteservice.Service, engine *query.Engine) *Server {
	s := &Server{svc: svc, engine: engine}

	s.mcp = server.NewMCPServer(
		"Munin",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("capture_note",
		mcp.WithDescription("Capture a thought, link, or file reference into the knowledge base. "+
			"The content is automatically classified, tagged, summarized, and priority-scored."),
		mcp.WithString("content", mcp.Description("Free text to capture (or a description for a link/file)")),
		mcp.WithString("source_url", mcp.Description("URL being saved, for link captures")),
		mcp.WithString("file_name", mcp.Description("File name, for file-reference captures")),
		mcp.WithString("file_type", mcp.Description("Declared media type of the file")),
		mcp.WithBoolean("is_public", mcp.Description("Whether the note is publicly visible")),
	), s.captureNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through captured notes."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List captured notes, optionally filtered by type (NOTE, LINK, INSIGHT, FILE)."),
		mcp.WithString("type", mcp.Description("Optional note type filter")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("ask_brain",
		mcp.WithDescription("Ask a natural-language question answered from the knowledge base, "+
			"with cited sources and a confidence tier."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
	), s.askBrain)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) captureNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := noteservice.CaptureInput{
		Content:   req.GetString("content", ""),
		SourceURL: req.GetString("source_url", ""),
		FileName:  req.GetString("file_name", ""),
		FileType:  req.GetString("file_type", ""),
		IsPublic:  req.GetBool("is_public", false),
	}
	if in.Content == "" && in.SourceURL == "" && in.FileName == "" {
		return mcp.NewToolResultError("content, source_url, or file_name is required"), nil
	}

	note, err := s.svc.Capture(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.svc.List(ctx, q, "", "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(notes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeFilter := req.GetString("type", "")
	notes, err := s.svc.List(ctx, "", typeFilter, "priority")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	out, _ := json.MarshalIndent(notes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) askBrain(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := s.engine.Query(ctx, question, false)

	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
