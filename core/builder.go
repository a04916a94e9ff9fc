package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/schema"
)

// RowBuilder flattens an analysis into a persisted row.
// Steps are chained; the first serialization error is reported by Build.
type RowBuilder struct {
	row  schema.Row
	tags []string
	err  error
}

// NewRowBuilder starts a row from a file's provenance.
func NewRowBuilder(path string, info schema.GitInfo) *RowBuilder {
	b := &RowBuilder{row: schema.Row{
		GithubLink:  info.GithubLink,
		FilePath:    path,
		GithubOwner: info.GithubOwner,
		GithubRepo:  info.GithubRepo,
		BranchName:  info.BranchName,
		LastUpdated: info.LastUpdated,
	}}
	history := info.CommitHistory
	if history == nil {
		history = []schema.Commit{}
	}
	b.row.CommitHistory = b.marshal("commit_history", history)
	b.row.Metadata = b.marshal("metadata", info.Metadata)
	return b
}

// WithTags records the extracted region tags.
func (b *RowBuilder) WithTags(tags []string) *RowBuilder {
	b.tags = append(b.tags, tags...)
	return b
}

// WithEvaluation copies the assessment, score and validation history.
// Region tags reported by the evaluator are merged with the extracted ones.
func (b *RowBuilder) WithEvaluation(result schema.EvaluationResult) *RowBuilder {
	b.row.OverallComplianceScore = result.OverallScore()
	b.row.EvaluationData = b.marshal("evaluation_data", result.Assessment)
	if len(result.ValidationHistory) > 0 {
		b.row.ValidationDetails = string(result.ValidationHistory)
	} else {
		b.row.ValidationDetails = "null"
	}
	b.tags = append(b.tags, result.RegionTags...)
	return b
}

// WithCategorization sets product category and name.
func (b *RowBuilder) WithCategorization(cat schema.Categorization) *RowBuilder {
	b.row.ProductCategory = cat.Category
	b.row.ProductName = cat.Product
	return b
}

// WithLanguage sets the language.
func (b *RowBuilder) WithLanguage(lang schema.Language) *RowBuilder {
	b.row.Language = string(lang)
	return b
}

// WithCode stores the raw source.
func (b *RowBuilder) WithCode(code string) *RowBuilder {
	b.row.RawCode = code
	return b
}

// WithGenerated marks machine-generated samples.
func (b *RowBuilder) WithGenerated(generated bool) *RowBuilder {
	b.row.Generated = generated
	return b
}

// EvaluatedAt sets the evaluation timestamp.
func (b *RowBuilder) EvaluatedAt(t time.Time) *RowBuilder {
	b.row.EvaluationDate = t.UTC()
	return b
}

// Build returns the row with sorted, unique region tags.
func (b *RowBuilder) Build() (schema.Row, error) {
	if b.err != nil {
		return schema.Row{}, b.err
	}
	tags := slices.Clone(b.tags)
	slices.Sort(tags)
	b.row.RegionTags = slices.Compact(tags)
	if b.row.RegionTags == nil {
		b.row.RegionTags = []string{}
	}
	return b.row, nil
}

func (b *RowBuilder) marshal(field string, v any) string {
	if b.err != nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("serializing %s: %w", field, err)
		return ""
	}
	return string(data)
}
