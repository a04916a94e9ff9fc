package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/joeshirey/JSRepoAnalysis/core"
	"github.com/joeshirey/JSRepoAnalysis/internal/outwriter"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	deps Deps
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(jsonData))
}

func (h *toolHandler) handleExtractRegionTags(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	tags, err := h.deps.Tags.Execute(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("region tag extraction failed: %v", err)), nil
	}
	if tags == nil {
		tags = []string{}
	}
	return jsonResult(tags), nil
}

func (h *toolHandler) handleGetGitInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	info, err := h.deps.Git.Execute(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("git lookup failed: %v", err)), nil
	}
	return jsonResult(info), nil
}

func (h *toolHandler) handleCategorizeSample(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if path := request.GetString("path", ""); path != "" {
		row, err := h.deps.Processor.CategorizeOnly(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("categorization failed: %v", err)), nil
		}
		return jsonResult(row), nil
	}

	url := request.GetString("indexed_source_url", "")
	if url == "" {
		return mcp.NewToolResultError("either path or indexed_source_url is required"), nil
	}
	row := h.deps.Processor.CategorizeSource(ctx, core.SampleSource{
		URL:            url,
		RegionTag:      request.GetString("region_tag", ""),
		RepositoryName: request.GetString("repository_name", ""),
	})
	return jsonResult(row), nil
}

func (h *toolHandler) handleEvaluateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	record, err := h.deps.Processor.AnalyzeOnly(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}
	var buf bytes.Buffer
	if err := outwriter.WriteEvaluationJSON(&buf, record); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (h *toolHandler) handleGetSampleRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link := request.GetString("github_link", "")
	if link == "" {
		return mcp.NewToolResultError("github_link is required"), nil
	}
	if h.deps.Store == nil {
		return mcp.NewToolResultError("sample store is not configured"), nil
	}
	row, err := h.deps.Store.Read(ctx, link)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("store lookup failed: %v", err)), nil
	}
	if row == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no record found for %s", link)), nil
	}
	var buf bytes.Buffer
	if err := outwriter.WriteRecordJSON(&buf, *row); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}
