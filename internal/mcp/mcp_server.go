// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/joeshirey/JSRepoAnalysis/core"
	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Deps are the pipeline components the tools call into. Processor is
// required; Store may be nil when the store backend is none.
type Deps struct {
	Git       core.GitResolver
	Tags      core.TagExtractor
	Processor *core.CodeProcessor
	Store     contract.SampleStore
}

// NewMCPServer initializes and configures the analysis MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Code Sample Analysis Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{deps: deps}

	// --- 1. Tool: extract_region_tags ---
	s.AddTool(mcp.NewTool("extract_region_tags",
		mcp.WithDescription("List the unique region tags declared in a source file."),
		mcp.WithString("path", mcp.Description("Path to the source file."), mcp.Required()),
	), h.handleExtractRegionTags)

	// --- 2. Tool: get_git_info ---
	s.AddTool(mcp.NewTool("get_git_info",
		mcp.WithDescription("Resolve the GitHub link, branch, last update and commit history of a file."),
		mcp.WithString("path", mcp.Description("Path to a file inside a Git working tree."), mcp.Required()),
	), h.handleGetGitInfo)

	// --- 3. Tool: categorize_sample ---
	s.AddTool(mcp.NewTool("categorize_sample",
		mcp.WithDescription("Assign a product category and product name to a sample, either a local file or a sample URL."),
		mcp.WithString("path", mcp.Description("Path to a local sample file.")),
		mcp.WithString("indexed_source_url", mcp.Description("GitHub URL of the sample, used when no path is given.")),
		mcp.WithString("region_tag", mcp.Description("Region tag of the sample.")),
		mcp.WithString("repository_name", mcp.Description("Repository the sample lives in.")),
	), h.handleCategorizeSample)

	// --- 4. Tool: evaluate_file ---
	s.AddTool(mcp.NewTool("evaluate_file",
		mcp.WithDescription("Evaluate a single sample file against the quality rubric without storing the result."),
		mcp.WithString("path", mcp.Description("Path to the sample file."), mcp.Required()),
	), h.handleEvaluateFile)

	// --- 5. Tool: get_sample_record ---
	s.AddTool(mcp.NewTool("get_sample_record",
		mcp.WithDescription("Fetch the most recent stored analysis for a GitHub link."),
		mcp.WithString("github_link", mcp.Description("The GitHub blob URL of the sample."), mcp.Required()),
	), h.handleGetSampleRecord)

	return s
}

// StartMCPServer serves the tools over stdio until the client disconnects.
func StartMCPServer(_ context.Context, deps Deps, version string) error {
	s := NewMCPServer(deps, version)
	return server.ServeStdio(s)
}
