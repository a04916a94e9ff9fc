// Package parquet exports stored samples and batch runs to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/parquet-go/parquet-go"
)

// Sample maps to one row of the sample table.
type Sample struct {
	GithubLink             string    `parquet:"github_link,snappy"`
	FilePath               string    `parquet:"file_path,snappy"`
	GithubOwner            string    `parquet:"github_owner,snappy"`
	GithubRepo             string    `parquet:"github_repo,snappy"`
	ProductCategory        string    `parquet:"product_category,snappy,dict"`
	ProductName            string    `parquet:"product_name,snappy,dict"`
	Language               string    `parquet:"language,snappy,dict"`
	OverallComplianceScore *float64  `parquet:"overall_compliance_score,optional,snappy"`
	EvaluationData         string    `parquet:"evaluation_data,snappy"`
	RegionTags             []string  `parquet:"region_tags,list"`
	RawCode                string    `parquet:"raw_code,snappy"`
	EvaluationDate         time.Time `parquet:"evaluation_date,snappy"`
	LastUpdated            *string   `parquet:"last_updated,optional,snappy"`
	BranchName             string    `parquet:"branch_name,snappy"`
	CommitHistory          string    `parquet:"commit_history,snappy"`
	Metadata               string    `parquet:"metadata,snappy"`
	ValidationDetails      string    `parquet:"validation_details,snappy"`
	Generated              bool      `parquet:"generated"`
}

// Run maps to one row of the run tracking table.
type Run struct {
	RunID          int64      `parquet:"run_id,snappy"`
	RunUUID        string     `parquet:"run_uuid,snappy"`
	StartTime      time.Time  `parquet:"start_time,snappy"`
	EndTime        *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs  *int32     `parquet:"run_duration_ms,optional,snappy"`
	FilesProcessed int32      `parquet:"files_processed,snappy"`
	FilesSkipped   int32      `parquet:"files_skipped,snappy"`
	FilesErrored   int32      `parquet:"files_errored,snappy"`
	ConfigParams   *string    `parquet:"config_params,optional,snappy"`
}

// ConvertRows converts stored rows for export.
func ConvertRows(rows []schema.Row) []Sample {
	result := make([]Sample, len(rows))
	for i, row := range rows {
		result[i] = Sample{
			GithubLink:             row.GithubLink,
			FilePath:               row.FilePath,
			GithubOwner:            row.GithubOwner,
			GithubRepo:             row.GithubRepo,
			ProductCategory:        row.ProductCategory,
			ProductName:            row.ProductName,
			Language:               row.Language,
			OverallComplianceScore: row.OverallComplianceScore,
			EvaluationData:         row.EvaluationData,
			RegionTags:             row.RegionTags,
			RawCode:                row.RawCode,
			EvaluationDate:         row.EvaluationDate,
			LastUpdated:            row.LastUpdated,
			BranchName:             row.BranchName,
			CommitHistory:          row.CommitHistory,
			Metadata:               row.Metadata,
			ValidationDetails:      row.ValidationDetails,
			Generated:              row.Generated,
		}
	}
	return result
}

// ConvertRunRecords converts run records for export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:          record.RunID,
			RunUUID:        record.RunUUID,
			StartTime:      record.StartTime,
			EndTime:        record.EndTime,
			RunDurationMs:  record.RunDurationMs,
			FilesProcessed: record.FilesProcessed,
			FilesSkipped:   record.FilesSkipped,
			FilesErrored:   record.FilesErrored,
			ConfigParams:   record.ConfigParams,
		}
	}
	return result
}

// WriteSamplesParquet writes samples to outputPath.
func WriteSamplesParquet(data []Sample, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteRunsParquet writes runs to outputPath.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeFile(data, outputPath)
}

// writeFile infers the schema from T's struct tags.
func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	// Close flushes the footer; a failure here leaves an unreadable file
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}
