package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeshirey/JSRepoAnalysis/core"
	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	mcp_internal "github.com/joeshirey/JSRepoAnalysis/internal/mcp"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const storageLink = "https://github.com/GoogleCloudPlatform/python-docs-samples/blob/main/storage/cloud-client/quickstart.py"

type fixedGit struct {
	info schema.GitInfo
	err  error
}

func (g fixedGit) Execute(_ context.Context, _ string) (schema.GitInfo, error) {
	return g.info, g.err
}

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quickstart.py")
	require.NoError(t, os.WriteFile(path, []byte("# [START storage_quickstart]\nprint('hi')\n# [END storage_quickstart]\n"), 0o644))
	return path
}

func newServer(evaluator contract.Evaluator, store contract.SampleStore) *server.MCPServer {
	updated := "2024-05-01"
	git := fixedGit{info: schema.GitInfo{
		GithubOwner: "GoogleCloudPlatform",
		GithubRepo:  "python-docs-samples",
		GithubLink:  storageLink,
		BranchName:  "main",
		LastUpdated: &updated,
	}}
	tags := core.NewRegionTagExtractor()
	categorizer := core.NewProductCategorizer(core.NewTaxonomy(), nil, nil)
	processor := core.NewCodeProcessor(git, tags, evaluator, categorizer, store, nil)
	return mcp_internal.NewMCPServer(mcp_internal.Deps{Git: git, Tags: tags, Processor: processor, Store: store}, "test")
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "tool %s should exist", name)
	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "the MCP handler should not return a raw error for tool logic failures")
	require.NotEmpty(t, res.Content)
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServer_ExtractRegionTags(t *testing.T) {
	s := newServer(nil, nil)

	res := call(t, s, "extract_region_tags", map[string]any{"path": writeSample(t)})
	assert.False(t, res.IsError)
	assert.JSONEq(t, `["storage_quickstart"]`, text(res))

	res = call(t, s, "extract_region_tags", map[string]any{})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "path is required")
}

func TestMCPServer_GetGitInfo(t *testing.T) {
	s := newServer(nil, nil)

	res := call(t, s, "get_git_info", map[string]any{"path": writeSample(t)})
	require.False(t, res.IsError)
	var info schema.GitInfo
	require.NoError(t, json.Unmarshal([]byte(text(res)), &info))
	assert.Equal(t, storageLink, info.GithubLink)
	assert.Equal(t, "main", info.BranchName)
}

func TestMCPServer_CategorizeSample(t *testing.T) {
	s := newServer(nil, nil)

	t.Run("local file", func(t *testing.T) {
		res := call(t, s, "categorize_sample", map[string]any{"path": writeSample(t)})
		require.False(t, res.IsError)
		assert.Contains(t, text(res), `"product_name": "Cloud Storage"`)
		assert.Contains(t, text(res), `"region_tag": "storage_quickstart"`)
	})

	t.Run("sample url", func(t *testing.T) {
		res := call(t, s, "categorize_sample", map[string]any{
			"indexed_source_url": "https://github.com/googleapis/java-spanner/blob/main/samples/snippets/Quickstart.java",
		})
		require.False(t, res.IsError)
		assert.Contains(t, text(res), `"product_name": "Spanner"`)
	})

	t.Run("missing input", func(t *testing.T) {
		res := call(t, s, "categorize_sample", map[string]any{})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "either path or indexed_source_url is required")
	})
}

func TestMCPServer_EvaluateFile(t *testing.T) {
	evaluator := &contract.MockEvaluator{}
	evaluator.On("Evaluate", mock.Anything, mock.MatchedBy(func(req schema.EvaluationRequest) bool {
		return req.RegionTag == "storage_quickstart" && req.Language == schema.Python
	})).Return(schema.EvaluationResult{
		Assessment: map[string]any{"overall_compliance_score": 91.0},
	}, nil).Once()
	s := newServer(evaluator, nil)

	res := call(t, s, "evaluate_file", map[string]any{"path": writeSample(t)})
	require.False(t, res.IsError, text(res))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(res)), &decoded))
	assert.Equal(t, 91.0, decoded["overall_compliance_score"])
	assert.Equal(t, "Cloud Storage", decoded["product_name"])
	evaluator.AssertExpectations(t)

	res = call(t, s, "evaluate_file", map[string]any{"path": "notes.txt"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "evaluation failed")
}

func TestMCPServer_GetSampleRecord(t *testing.T) {
	score := 80.0
	store := &contract.MockSampleStore{}
	store.On("Read", mock.Anything, storageLink).Return(&schema.Row{
		GithubLink:             storageLink,
		ProductName:            "Cloud Storage",
		OverallComplianceScore: &score,
		EvaluationData:         `{"overall_compliance_score":80}`,
	}, nil)
	store.On("Read", mock.Anything, "https://github.com/acme/missing").Return(nil, nil)
	store.On("Read", mock.Anything, "https://github.com/acme/broken").Return(nil, errors.New("connection reset"))
	s := newServer(nil, store)

	res := call(t, s, "get_sample_record", map[string]any{"github_link": storageLink})
	require.False(t, res.IsError)
	assert.Contains(t, text(res), `"product_name": "Cloud Storage"`)

	res = call(t, s, "get_sample_record", map[string]any{"github_link": "https://github.com/acme/missing"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "no record found")

	res = call(t, s, "get_sample_record", map[string]any{"github_link": "https://github.com/acme/broken"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "connection reset")

	res = call(t, newServer(nil, nil), "get_sample_record", map[string]any{"github_link": storageLink})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "not configured")
}
