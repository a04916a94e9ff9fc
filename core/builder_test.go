package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowBuilder_Build(t *testing.T) {
	info := linkedInfo(storageLink)
	info.CommitHistory = []schema.Commit{{Hash: "h1", AuthorName: "Alice", Date: "2024-05-01T10:00:00Z", Message: "Add"}}
	info.Metadata = schema.FileMetadata{Size: 42, Created: 1.5, Modified: 2.5}
	result := goodResult()
	result.ValidationHistory = json.RawMessage(`[{"attempt":1}]`)
	at := time.Date(2024, 6, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	row, err := NewRowBuilder("/src/quickstart.py", info).
		WithTags([]string{"b_tag", "a_tag", "b_tag"}).
		WithEvaluation(result).
		WithCategorization(schema.Categorization{Category: "Storage", Product: "Cloud Storage"}).
		WithLanguage(schema.Python).
		WithCode("print('hi')").
		WithGenerated(true).
		EvaluatedAt(at).
		Build()

	require.NoError(t, err)
	assert.Equal(t, storageLink, row.GithubLink)
	assert.Equal(t, "/src/quickstart.py", row.FilePath)
	assert.Equal(t, []string{"a_tag", "b_tag", "storage_service_tag"}, row.RegionTags)
	assert.Equal(t, "Cloud Storage", row.ProductName)
	assert.Equal(t, "Python", row.Language)
	assert.True(t, row.Generated)
	assert.Equal(t, time.UTC, row.EvaluationDate.Location())
	assert.Equal(t, 12, row.EvaluationDate.Hour())
	require.NotNil(t, row.OverallComplianceScore)
	assert.Equal(t, 88.0, *row.OverallComplianceScore)
	assert.JSONEq(t, `[{"attempt":1}]`, row.ValidationDetails)
	assert.JSONEq(t, `{"size":42,"created":1.5,"modified":2.5}`, row.Metadata)

	var history []schema.Commit
	require.NoError(t, json.Unmarshal([]byte(row.CommitHistory), &history))
	assert.Equal(t, "Alice", history[0].AuthorName)

	var assessment map[string]any
	require.NoError(t, json.Unmarshal([]byte(row.EvaluationData), &assessment))
	assert.Equal(t, 88.0, assessment["overall_compliance_score"])
}

func TestRowBuilder_Defaults(t *testing.T) {
	row, err := NewRowBuilder("a.py", schema.GitInfo{}).Build()

	require.NoError(t, err)
	assert.Equal(t, "[]", row.CommitHistory)
	assert.NotNil(t, row.RegionTags)
	assert.Empty(t, row.RegionTags)
	assert.Nil(t, row.OverallComplianceScore)
}

func TestRowBuilder_NoValidationHistory(t *testing.T) {
	row, err := NewRowBuilder("a.py", schema.GitInfo{}).WithEvaluation(goodResult()).Build()

	require.NoError(t, err)
	assert.Equal(t, "null", row.ValidationDetails)
}

func TestRowBuilder_SerializationError(t *testing.T) {
	result := schema.EvaluationResult{Assessment: map[string]any{"bad": make(chan int)}}

	_, err := NewRowBuilder("a.py", schema.GitInfo{}).WithEvaluation(result).Build()

	assert.ErrorContains(t, err, "evaluation_data")
}
