package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/schema"
)

// CategorizationHeader is the column order of categorize-only CSV output.
var CategorizationHeader = []string{
	"indexed_source_url",
	"region_tag",
	"repository_name",
	"product_category",
	"product_name",
	"llm_determined",
}

// WriteCategorizationsCSV writes categorize-only rows as CSV.
func WriteCategorizationsCSV(w io.Writer, rows []schema.CategorizationRow) error {
	return writeCSVWithHeader(w, CategorizationHeader, func(cw *csv.Writer) error {
		for _, r := range rows {
			rec := []string{
				r.IndexedSourceURL,
				r.RegionTag,
				r.RepositoryName,
				r.Category,
				r.Product,
				strconv.FormatBool(r.LLMDetermined),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

type evaluationOutput struct {
	FilePath               string         `json:"file_path"`
	GithubLink             string         `json:"github_link,omitempty"`
	Language               string         `json:"language"`
	RegionTags             []string       `json:"region_tags"`
	LastUpdated            *string        `json:"last_updated"`
	ProductCategory        string         `json:"product_category"`
	ProductName            string         `json:"product_name"`
	LLMDetermined          bool           `json:"llm_determined"`
	OverallComplianceScore *float64       `json:"overall_compliance_score"`
	Assessment             map[string]any `json:"assessment"`
	References             []string       `json:"references,omitempty"`
	EvaluationDate         time.Time      `json:"evaluation_date"`
}

// WriteEvaluationJSON writes the result of a single eval-only analysis.
func WriteEvaluationJSON(w io.Writer, record schema.AnalysisRecord) error {
	return writeJSON(w, evaluationOutput{
		FilePath:               record.FilePath,
		GithubLink:             record.GitInfo.GithubLink,
		Language:               string(record.Language),
		RegionTags:             record.RegionTags,
		LastUpdated:            record.GitInfo.LastUpdated,
		ProductCategory:        record.Categorization.Category,
		ProductName:            record.Categorization.Product,
		LLMDetermined:          record.Categorization.LLMDetermined,
		OverallComplianceScore: record.Evaluation.OverallScore(),
		Assessment:             record.Evaluation.Assessment,
		References:             record.Evaluation.References,
		EvaluationDate:         record.EvaluationDate,
	})
}

type recordOutput struct {
	schema.Row
	EvaluationData    json.RawMessage `json:"evaluation_data"`
	CommitHistory     json.RawMessage `json:"commit_history"`
	Metadata          json.RawMessage `json:"metadata"`
	ValidationDetails json.RawMessage `json:"validation_details"`
}

// rawOrString embeds stored JSON text as-is, or quotes it when it is not valid JSON.
func rawOrString(s string) json.RawMessage {
	if s != "" && json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

// WriteRecordJSON writes a stored row with its JSON columns inlined.
func WriteRecordJSON(w io.Writer, row schema.Row) error {
	return writeJSON(w, recordOutput{
		Row:               row,
		EvaluationData:    rawOrString(row.EvaluationData),
		CommitHistory:     rawOrString(row.CommitHistory),
		Metadata:          rawOrString(row.Metadata),
		ValidationDetails: rawOrString(row.ValidationDetails),
	})
}

// WriteRecordText writes a stored row for reading in a terminal.
func WriteRecordText(w io.Writer, row schema.Row) error {
	lastUpdated := "untracked"
	if row.LastUpdated != nil {
		lastUpdated = *row.LastUpdated
	}
	fields := [][2]string{
		{"GitHub Link", row.GithubLink},
		{"File Path", row.FilePath},
		{"Repository", row.GithubOwner + "/" + row.GithubRepo},
		{"Branch", row.BranchName},
		{"Language", row.Language},
		{"Region Tags", joinTags(row.RegionTags)},
		{"Product", row.ProductCategory + " / " + row.ProductName},
		{"Overall Score", formatScore(row.OverallComplianceScore)},
		{"Last Updated", lastUpdated},
		{"Evaluated", row.EvaluationDate.Format(time.RFC3339)},
		{"Generated", strconv.FormatBool(row.Generated)},
	}
	for _, f := range fields {
		if _, err := fmt.Fprintf(w, "%-14s %s\n", f[0]+":", f[1]); err != nil {
			return err
		}
	}

	var assessment map[string]any
	if err := json.Unmarshal([]byte(row.EvaluationData), &assessment); err == nil {
		if criteria := schema.CriteriaFrom(assessment); len(criteria) > 0 {
			_, _ = fmt.Fprintln(w, "Criteria:")
			for _, c := range criteria {
				_, _ = fmt.Fprintf(w, "  %-45s %5.1f\n", c.Name, c.Score)
			}
		}
	}
	_, err := fmt.Fprintf(w, "Evaluation Data:\n%s\n", row.EvaluationData)
	return err
}
