package iocache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/internal/parquet"
)

// ExportSamples writes every stored sample and run to Parquet files named
// after outputFile, and reports progress to out.
func ExportSamples(ctx context.Context, store contract.SampleStore, outputFile string, out io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("sample store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalSamples == 0 && status.TotalRuns == 0 {
		return errors.New("no sample data found to export")
	}
	_, _ = fmt.Fprintf(out, "Exporting data from %s backend...\n", status.Backend)

	rows, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve samples: %w", err)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}

	samplesFile := outputFile + ".samples.parquet"
	if err := parquet.WriteSamplesParquet(parquet.ConvertRows(rows), samplesFile); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Exported %d samples to: %s\n", len(rows), samplesFile)

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Exported %d runs to: %s\n", len(runs), runsFile)
	return nil
}
