package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// CriteriaReportHeader is the column order of CSV criteria reports.
var CriteriaReportHeader = []string{
	"github_link",
	"github_repo",
	"region_tags",
	"last_updated",
	"evaluation_date",
	"runnability",
	"api_effectiveness",
	"comments_clarity",
	"formatting",
	"language_practices",
	"overall_compliance_score",
	"problem_categories",
}

// WriteCriteriaReportCSV writes report rows as CSV.
func WriteCriteriaReportCSV(w io.Writer, rows []schema.CriteriaReportRow) error {
	return writeCSVWithHeader(w, CriteriaReportHeader, func(cw *csv.Writer) error {
		for _, r := range rows {
			rec := []string{
				r.GithubLink,
				r.GithubRepo,
				joinTags(r.RegionTags),
				r.LastUpdated,
				r.EvaluationDate.UTC().Format(time.RFC3339),
				formatScore(r.Runnability),
				formatScore(r.APIEffectiveness),
				formatScore(r.CommentsClarity),
				formatScore(r.Formatting),
				formatScore(r.LanguagePractices),
				formatScore(r.OverallComplianceScore),
				strings.Join(r.ProblemCategories, ";"),
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

// WriteCriteriaReportTable writes report rows as a table with truncated links.
func WriteCriteriaReportTable(w io.Writer, rows []schema.CriteriaReportRow, maxLinkWidth int, useColors bool) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Link", "Run", "API", "Comments", "Format", "Practices", "Overall", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	label := contract.GetPlainLabel
	if useColors {
		label = contract.GetColorLabel
	}

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			contract.TruncatePath(r.GithubLink, maxLinkWidth),
			formatScore(r.Runnability),
			formatScore(r.APIEffectiveness),
			formatScore(r.CommentsClarity),
			formatScore(r.Formatting),
			formatScore(r.LanguagePractices),
			formatScore(r.OverallComplianceScore),
			label(r.OverallComplianceScore),
		})
	}

	if err := table.Bulk(data); err != nil {
		return fmt.Errorf("failed to add report rows: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render report table: %w", err)
	}
	_, _ = fmt.Fprintf(w, "%d samples\n", len(rows))
	return nil
}
