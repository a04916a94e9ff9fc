package outwriter

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// BinaryName is the command used in printed hints.
const BinaryName = "repoanalysis"

// ReprocessCommand returns the command that reruns the failures of an error log.
func ReprocessCommand(errorLog string) string {
	path := errorLog
	if strings.ContainsAny(path, " \t'\"") {
		path = strconv.Quote(path)
	}
	return fmt.Sprintf("%s --reprocess-log %s --regen", BinaryName, path)
}

// PrintRunSummary writes the per-extension table, the skip reasons and the
// reprocess hint of a finished batch.
func PrintRunSummary(w io.Writer, summary schema.RunSummary, useColors bool) error {
	totals := summary.Totals()
	_, _ = fmt.Fprintf(w, "Run %s finished in %s: %d of %d files submitted\n",
		summary.RunID, summary.Duration.Round(time.Millisecond), summary.Submitted, summary.Total)

	if err := writeSummaryTable(w, summary, totals); err != nil {
		return err
	}

	if len(summary.SkipReasons) > 0 {
		reasons := make([]string, 0, len(summary.SkipReasons))
		for reason, n := range summary.SkipReasons {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
		slices.Sort(reasons)
		_, _ = fmt.Fprintf(w, "Skipped: %s\n", strings.Join(reasons, ", "))
	}

	warn := func(format string, args ...any) {
		if useColors {
			_, _ = contract.PoorColor.Fprintf(w, format, args...)
			return
		}
		_, _ = fmt.Fprintf(w, format, args...)
	}
	if summary.Halted {
		warn("Run halted: consecutive error limit reached\n")
	}
	if totals.Errored > 0 && summary.ErrorLog != "" {
		warn("%d files failed, logged to %s\n", totals.Errored, summary.ErrorLog)
		_, _ = fmt.Fprintf(w, "To reprocess: %s\n", ReprocessCommand(summary.ErrorLog))
	}
	return nil
}

func writeSummaryTable(w io.Writer, summary schema.RunSummary, totals schema.ExtensionCounts) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Extension", "Processed", "Skipped", "Errored"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	exts := make([]string, 0, len(summary.ByExtension))
	for ext := range summary.ByExtension {
		exts = append(exts, ext)
	}
	slices.Sort(exts)

	data := make([][]string, 0, len(exts)+1)
	for _, ext := range exts {
		c := summary.ByExtension[ext]
		data = append(data, countsRow(ext, *c))
	}
	data = append(data, countsRow("total", totals))

	if err := table.Bulk(data); err != nil {
		return fmt.Errorf("failed to add summary rows: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render summary table: %w", err)
	}
	return nil
}

func countsRow(label string, c schema.ExtensionCounts) []string {
	return []string{label, strconv.Itoa(c.Processed), strconv.Itoa(c.Skipped), strconv.Itoa(c.Errored)}
}
