// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes tagtracker tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tagtracker/internal/apperr"
	"github.com/starford/tagtracker/internal/tracker"
)

const specFormatURI = "tagtracker://spec-format"

// Server wraps the MCP server with tagtracker tools.
type Server struct {
	mcp *server.MCPServer
	svc *tracker.Service
}

// New creates a new MCP server with all tagtracker tools registered.
func New(svc *tracker.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"tagtracker",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every non-date tag with the number of documents carrying it, most used first."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("tag_documents",
		mcp.WithDescription("List the documents carrying a tag, as markdown links, in discovery order."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag with or without the leading # (e.g. urgent, 2024-05-01)")),
	), s.tagDocuments)

	s.mcp.AddTool(mcp.NewTool("list_views",
		mcp.WithDescription("List the registered report views."),
	), s.listViews)

	s.mcp.AddTool(mcp.NewTool("render_view",
		mcp.WithDescription("Render one view against the current index and return its markdown. "+
			"Read the tagtracker://spec-format resource for view names and filter syntax."),
		mcp.WithString("view", mcp.Required(), mcp.Description("View name (e.g. kanBan, tag-summary)")),
		mcp.WithString("filter", mcp.Description("Optional tag list or /regex/ restricting the index")),
	), s.renderView)

	s.mcp.AddTool(mcp.NewTool("run_report",
		mcp.WithDescription("Re-index the tree and write every configured report document."),
	), s.runReport)

	s.mcp.AddResource(
		mcp.NewResource(specFormatURI, "Tag & Report Format",
			mcp.WithResourceDescription("Tag syntax and report specification format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSpecFormatResource,
	)

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

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.Tags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tags, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) tagDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs, err := s.svc.Documents(ctx, tag)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no documents tagged: %s", tag)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = "- " + d.String()
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listViews(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.svc.Registry().Names(), "\n")), nil
}

func (s *Server) renderView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("view")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filter := ""
	if f, err := req.RequireString("filter"); err == nil {
		filter = f
	}

	out, err := s.svc.RenderView(ctx, name, filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if out == "" {
		return mcp.NewToolResultText("(view rendered nothing)"), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) runReport(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.svc.Run(ctx)
	if snap == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "indexed %d tags\n", snap.Index.Len())
	for _, r := range snap.Results {
		fmt.Fprintf(&b, "wrote %s (%s)\n", r.Path, strings.Join(r.Rendered, ", "))
		if len(r.Skipped) > 0 {
			fmt.Fprintf(&b, "  skipped: %s\n", strings.Join(r.Skipped, ", "))
		}
	}
	if err != nil {
		fmt.Fprintf(&b, "errors: %v\n", err)
		return mcp.NewToolResultError(b.String()), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readSpecFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      specFormatURI,
			MIMEType: "text/markdown",
			Text:     SpecFormat,
		},
	}, nil
}
