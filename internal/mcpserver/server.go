// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes tonearm tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tonearm/internal/search"
	"github.com/starford/tonearm/internal/storage"
	"github.com/starford/tonearm/internal/trackservice"
)

const querySyntaxURI = "tonearm://query-syntax"

// Server wraps the MCP server with tonearm tools.
type Server struct {
	mcp       *server.MCPServer
	svc       *trackservice.Service
	store     storage.Provider
	supported func(string) bool
}

// New creates a new MCP server with all tonearm tools registered.
func New(svc *trackservice.Service, store storage.Provider, supported func(string) bool, version string) *Server {
	s := &Server{svc: svc, store: store, supported: supported}

	s.mcp = server.NewMCPServer(
		"tonearm",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_tracks",
		mcp.WithDescription("Search the music library. Supports field-scoped queries, "+
			"facet filters and date ordering. Read get_query_syntax first for the query language."),
		mcp.WithString("query", mcp.Description("Query string; empty matches all tracks")),
		mcp.WithArray("facets", mcp.WithStringItems(),
			mcp.Description("Facet paths to filter on and roots to count, e.g. [\"/genre\", \"/year/1997\"]")),
		mcp.WithString("order", mcp.Description("Date field to order by: created_at, modified_at or indexed_at")),
		mcp.WithString("direction", mcp.Enum("asc", "desc"), mcp.Description("Order direction (default desc)")),
		mcp.WithNumber("page", mcp.DefaultNumber(0), mcp.Description("Zero-based page number")),
		mcp.WithNumber("page_size", mcp.DefaultNumber(search.DefaultPageSize), mcp.Description("Results per page")),
		mcp.WithBoolean("facets_only", mcp.Description("Return facet counts without tracks")),
	), s.searchTracks)

	s.mcp.AddTool(mcp.NewTool("get_track",
		mcp.WithDescription("Read one track's metadata from disk."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Library-relative path (e.g. artist/album/01.mp3)")),
	), s.getTrack)

	s.mcp.AddTool(mcp.NewTool("list_tracks",
		mcp.WithDescription("List audio files in the library or in one folder of it."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listTracks)

	s.mcp.AddTool(mcp.NewTool("index_status",
		mcp.WithDescription("Report document count, stored version, last full crawl and crawl progress."),
	), s.indexStatus)

	s.mcp.AddTool(mcp.NewTool("request_reindex",
		mcp.WithDescription("Ask for the index to be dropped and rebuilt on the next start."),
	), s.requestReindex)

	s.mcp.AddTool(mcp.NewTool("get_query_syntax",
		mcp.WithDescription("Returns the query language and facet path reference for search_tracks."),
	), s.getQuerySyntax)

	s.mcp.AddResource(
		mcp.NewResource(querySyntaxURI, "Query Syntax",
			mcp.WithResourceDescription("Query language and facet path reference."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readQuerySyntaxResource,
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

func (s *Server) searchTracks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sr := search.Request{
		Text:       req.GetString("query", ""),
		Facets:     req.GetStringSlice("facets", nil),
		Page:       req.GetInt("page", 0),
		PageSize:   req.GetInt("page_size", search.DefaultPageSize),
		FacetsOnly: req.GetBool("facets_only", false),
	}
	if field := req.GetString("order", ""); field != "" {
		sr.Order = &search.Order{
			Field:     field,
			Direction: search.Direction(req.GetString("direction", string(search.Desc))),
		}
	}

	resp, err := s.svc.Search(ctx, sr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp), nil
}

func (s *Server) getTrack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := s.svc.GetTrack(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !t.Exists {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return jsonResult(t), nil
}

func (s *Server) listTracks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.store.List(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, f := range files {
		if s.supported(f.AbsPath) {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no tracks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) indexStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st), nil
}

func (s *Server) requestReindex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.RequestReindex(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("reindex requested: the index will be rebuilt on next start"), nil
}

func (s *Server) getQuerySyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(QuerySyntaxGuide), nil
}

func (s *Server) readQuerySyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      querySyntaxURI,
			MIMEType: "text/markdown",
			Text:     QuerySyntaxGuide,
		},
	}, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}
