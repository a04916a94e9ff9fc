// Package outwriter has output and writer logic.
package outwriter

import (
	"io"
	"os"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the command layer.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteRunSummary prints the end-of-run summary of a batch.
func (ow *OutWriter) WriteRunSummary(summary schema.RunSummary, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summary)
		}, "Wrote run summary")
	}
	return PrintRunSummary(os.Stdout, summary, cfg.UseColors)
}

// WriteCategorizations prints categorize-only rows. CSV is the default format.
func (ow *OutWriter) WriteCategorizations(rows []schema.CategorizationRow, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		if cfg.Output == schema.JSONOut {
			return writeJSON(w, rows)
		}
		return WriteCategorizationsCSV(w, rows)
	}, "Wrote categorizations")
}

// WriteEvaluation prints the JSON result of an eval-only run.
func (ow *OutWriter) WriteEvaluation(record schema.AnalysisRecord, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteEvaluationJSON(w, record)
	}, "Wrote evaluation")
}

// WriteRecord prints one stored sample.
func (ow *OutWriter) WriteRecord(row schema.Row, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		if cfg.Output == schema.JSONOut {
			return WriteRecordJSON(w, row)
		}
		return WriteRecordText(w, row)
	}, "Wrote record")
}

// WriteCriteriaReport prints the flattened criteria scores of stored samples.
func (ow *OutWriter) WriteCriteriaReport(rows []schema.CriteriaReportRow, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		switch cfg.Output {
		case schema.JSONOut:
			return writeJSON(w, rows)
		case schema.CSVOut:
			return WriteCriteriaReportCSV(w, rows)
		default:
			return WriteCriteriaReportTable(w, rows, GetMaxTablePathWidth(0), cfg.UseColors)
		}
	}, "Wrote criteria report")
}
