package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path     string
		expected Language
	}{
		{"samples/quickstart.py", Python},
		{"src/Main.kt", Java},
		{"app/index.TSX", JavaScript},
		{"main.tf", Terraform},
		{"native/client.hpp", CPP},
		{"Program.cs", CSharp},
		{"deploy.sh", Unknown},
		{"config.yaml", Unknown},
		{"README.md", Unknown},
		{"Makefile", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, LanguageForPath(tt.path))
		})
	}
}

func TestLanguageSupported(t *testing.T) {
	assert.True(t, Go.Supported())
	assert.False(t, Unknown.Supported())
	assert.False(t, Language("").Supported())
}

func TestExtensionKey(t *testing.T) {
	assert.Equal(t, ".py", ExtensionKey("a/b/C.PY"))
	assert.Equal(t, "(none)", ExtensionKey("Dockerfile"))
}

func TestEvaluationResultValidate(t *testing.T) {
	assert.ErrorIs(t, EvaluationResult{}.Validate(), ErrMissingAssessment)
	assert.NoError(t, EvaluationResult{Declined: "not a sample"}.Validate())
	assert.NoError(t, EvaluationResult{Assessment: map[string]any{"overall_compliance_score": 80.0}}.Validate())
}

func TestEvaluationResultScores(t *testing.T) {
	r := EvaluationResult{Assessment: map[string]any{
		"overall_compliance_score": 72.0,
		"criteria_breakdown": []any{
			map[string]any{"criterion_name": "Formatting & Consistency", "score": 90.0},
			map[string]any{"score": 10.0},
			"garbage",
		},
	}}

	score := r.OverallScore()
	require.NotNil(t, score)
	assert.InDelta(t, 72.0, *score, 0.001)

	criteria := r.Criteria()
	require.Len(t, criteria, 1)
	assert.Equal(t, "Formatting & Consistency", criteria[0].Name)
	assert.InDelta(t, 90.0, criteria[0].Score, 0.001)

	assert.Nil(t, EvaluationResult{Assessment: map[string]any{"overall_compliance_score": "high"}}.OverallScore())
}

func TestRunSummaryCounting(t *testing.T) {
	s := NewRunSummary("run-1", 4)
	s.RecordOutcome(".py", Processed("a.py", &Row{}))
	s.RecordOutcome(".py", Skipped("b.py", SkipNoRegionTags))
	s.RecordOutcome(".md", Skipped("README.md", SkipUnsupported))
	s.RecordFailure(".go", "main.go")

	assert.Equal(t, ExtensionCounts{Processed: 1, Skipped: 1}, *s.ByExtension[".py"])
	assert.Equal(t, 1, s.ByExtension[".go"].Errored)
	assert.Equal(t, 1, s.SkipReasons[SkipNoRegionTags])
	assert.Equal(t, []string{"main.go"}, s.FailedPaths)
	assert.Equal(t, ExtensionCounts{Processed: 1, Skipped: 2, Errored: 1}, s.Totals())
}

func TestNewCriteriaReportRow(t *testing.T) {
	updated := "2024-05-01"
	row := Row{
		GithubLink:  "https://github.com/acme/samples/blob/main/a.py",
		GithubRepo:  "samples",
		RegionTags:  []string{"a_tag"},
		LastUpdated: &updated,
		EvaluationData: `{
			"overall_compliance_score": 71,
			"criteria_breakdown": [
				{"criterion_name": "Runnability & Configuration", "score": 90},
				{"criterion_name": "API Effectiveness (googleapis/googleapis)", "score": 60},
				{"criterion_name": "Comments & Code Clarity", "score": 75},
				{"criterion_name": "Formatting & Consistency", "score": 80},
				{"criterion_name": "Language Best Practices", "score": 50}
			],
			"identified_generic_problem_categories": ["Error Handling", ""]
		}`,
	}

	got := NewCriteriaReportRow(row)
	assert.Equal(t, "2024-05-01", got.LastUpdated)
	require.NotNil(t, got.Runnability)
	assert.InDelta(t, 90, *got.Runnability, 0.001)
	require.NotNil(t, got.APIEffectiveness)
	assert.InDelta(t, 60, *got.APIEffectiveness, 0.001)
	require.NotNil(t, got.CommentsClarity)
	assert.InDelta(t, 75, *got.CommentsClarity, 0.001)
	require.NotNil(t, got.Formatting)
	assert.InDelta(t, 80, *got.Formatting, 0.001)
	require.NotNil(t, got.LanguagePractices)
	assert.InDelta(t, 50, *got.LanguagePractices, 0.001)
	require.NotNil(t, got.OverallComplianceScore)
	assert.InDelta(t, 71, *got.OverallComplianceScore, 0.001)
	assert.Equal(t, []string{"Error Handling"}, got.ProblemCategories)

	bad := NewCriteriaReportRow(Row{GithubLink: "x", EvaluationData: "not json"})
	assert.Equal(t, "x", bad.GithubLink)
	assert.Nil(t, bad.Runnability)
	assert.Empty(t, bad.LastUpdated)
}
