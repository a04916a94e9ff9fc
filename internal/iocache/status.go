package iocache

import (
	"fmt"
	"io"
	"slices"

	"github.com/joeshirey/JSRepoAnalysis/schema"
)

// PrintStoreStatus prints store status information.
func PrintStoreStatus(w io.Writer, status schema.StoreStatus) {
	_, _ = fmt.Fprintf(w, "Store Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Table: %s\n", status.Table)
	_, _ = fmt.Fprintf(w, "Total Samples: %d (%d distinct links)\n", status.TotalSamples, status.DistinctLinks)
	if status.TotalSamples > 0 {
		_, _ = fmt.Fprintf(w, "Last Evaluation: %s\n", status.LastEvaluation.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(w, "Oldest Evaluation: %s\n", status.OldestEvaluation.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Last Run ID: %d\n", status.LastRunID)
		_, _ = fmt.Fprintf(w, "Last Run: %s\n", status.LastRunTime.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
