package schema

import (
	"encoding/json"
	"strings"
)

// Criterion names as they appear in a criteria breakdown.
const (
	CriterionRunnability       = "Runnability & Configuration"
	CriterionAPIEffectiveness  = "API Effectiveness (googleapis/googleapis)"
	CriterionCommentsClarity   = "Comments & Code Clarity"
	CriterionFormatting        = "Formatting & Consistency"
	CriterionLanguagePractices = "Language Best Practices"
)

// criterionKeys maps a lowercase fragment of a criterion name to its report column.
var criterionKeys = []struct {
	fragment string
	field    func(*CriteriaReportRow) **float64
}{
	{"runnability", func(r *CriteriaReportRow) **float64 { return &r.Runnability }},
	{"api effectiveness", func(r *CriteriaReportRow) **float64 { return &r.APIEffectiveness }},
	{"comments", func(r *CriteriaReportRow) **float64 { return &r.CommentsClarity }},
	{"formatting", func(r *CriteriaReportRow) **float64 { return &r.Formatting }},
	{"best practices", func(r *CriteriaReportRow) **float64 { return &r.LanguagePractices }},
}

// NewCriteriaReportRow flattens the stored assessment of row.
// Unparseable evaluation data yields a row with only the identifying columns.
func NewCriteriaReportRow(row Row) CriteriaReportRow {
	out := CriteriaReportRow{
		GithubLink:             row.GithubLink,
		GithubRepo:             row.GithubRepo,
		RegionTags:             row.RegionTags,
		EvaluationDate:         row.EvaluationDate,
		OverallComplianceScore: row.OverallComplianceScore,
	}
	if row.LastUpdated != nil {
		out.LastUpdated = *row.LastUpdated
	}

	var assessment map[string]any
	if err := json.Unmarshal([]byte(row.EvaluationData), &assessment); err != nil {
		return out
	}
	for _, c := range CriteriaFrom(assessment) {
		name := strings.ToLower(c.Name)
		for _, key := range criterionKeys {
			if strings.Contains(name, key.fragment) {
				score := c.Score
				*key.field(&out) = &score
				break
			}
		}
	}
	if out.OverallComplianceScore == nil {
		out.OverallComplianceScore = numberField(assessment, "overall_compliance_score")
	}
	if raw, ok := assessment["identified_generic_problem_categories"].([]any); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok && s != "" {
				out.ProblemCategories = append(out.ProblemCategories, s)
			}
		}
	}
	return out
}
