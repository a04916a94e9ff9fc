//go:build basic

// Package integration contains integration tests for repoanalysis.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
// Or with databases: go test -tags database ./integration
package integration

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPipelineWithSQLite runs a batch, then reads the stored record back.
func TestPipelineWithSQLite(t *testing.T) {
	repo := newSampleRepo(t)
	server := newEvaluationServer(t)
	work := t.TempDir()
	env := []string{
		"REPOANALYSIS_BACKEND=sqlite",
		"REPOANALYSIS_DB_CONNECT=" + filepath.Join(work, "samples.db"),
		"REPOANALYSIS_API_URL=" + server.URL,
		"REPOANALYSIS_PROGRESS=no",
		"REPOANALYSIS_COLOR=no",
		"REPOANALYSIS_LOG_LEVEL=error",
	}

	out, err := runCommand(t, work, env, repo, "--error-log-dir", work)
	require.NoError(t, err)
	assert.Contains(t, out, "no_region_tags=1")

	// the same version is skipped on the second run
	out, err = runCommand(t, work, env, repo, "--error-log-dir", work)
	require.NoError(t, err)
	assert.Contains(t, out, "already_processed=1")

	out, err = runCommand(t, work, env, "samples", "show", sampleLink, "--output", "json")
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, "Cloud Storage", record["product_name"])
	assert.Equal(t, 86.0, record["overall_compliance_score"])

	reportFile := filepath.Join(work, "criteria.csv")
	_, err = runCommand(t, work, env, "samples", "report", "--output", "csv", "--output-file", reportFile)
	require.NoError(t, err)
	f, err := os.Open(reportFile)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, sampleLink, rows[1][0])
	assert.Equal(t, "90.0", rows[1][5])

	out, err = runCommand(t, work, env, "samples", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Samples: 1")

	_, err = runCommand(t, work, env, "samples", "export", "--output-file", filepath.Join(work, "export"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(work, "export.samples.parquet"))
	assert.NoError(t, err)
}

// TestSingleFileModes covers --eval-only and --categorize-only.
func TestSingleFileModes(t *testing.T) {
	repo := newSampleRepo(t)
	server := newEvaluationServer(t)
	work := t.TempDir()
	env := []string{"REPOANALYSIS_BACKEND=none", "REPOANALYSIS_API_URL=" + server.URL}
	sample := filepath.Join(repo, "storage", "quickstart.py")

	out, err := runCommand(t, work, env, sample, "--eval-only", "--log-level", "error")
	require.NoError(t, err)
	var evaluation map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &evaluation))
	assert.Equal(t, sampleLink, evaluation["github_link"])

	out, err = runCommand(t, work, env, sample, "--categorize-only", "--log-level", "error")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "indexed_source_url,region_tag,repository_name,product_category,product_name,llm_determined", lines[0])
	assert.Contains(t, lines[1], "Cloud Storage")
}

// TestInputValidation checks that a run without input fails.
func TestInputValidation(t *testing.T) {
	_, err := runCommand(t, t.TempDir(), []string{"REPOANALYSIS_BACKEND=none"})
	assert.Error(t, err)

	_, err = runCommand(t, t.TempDir(), []string{"REPOANALYSIS_BACKEND=none"}, "--eval-only", ".")
	assert.Error(t, err)
}
