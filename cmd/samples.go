package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/internal/iocache"
	"github.com/joeshirey/JSRepoAnalysis/internal/outwriter"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// samplesSetup loads the configuration and opens the sample store.
// It skips the input checks of a pipeline run.
func samplesSetup() error {
	if err := loadAndValidate(nil); err != nil {
		return err
	}
	if err := iocache.InitStores(cfg.Backend, cfg.DBConnect, cfg.Table); err != nil {
		return fmt.Errorf("failed to initialize sample store: %w", err)
	}
	return nil
}

// samplesSetupWrapper wraps samplesSetup to provide PreRunE for samples commands.
func samplesSetupWrapper(_ *cobra.Command, _ []string) error {
	return samplesSetup()
}

// samplesMigrateSetupWrapper validates config without opening the store,
// so migrations can run on a fresh database.
func samplesMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return loadAndValidate(nil)
}

// samplesCmd focused on stored sample management.
//
// Note: samples subcommands skip the pipeline's input validation, so they run
// without a path, CSV or error log.
var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Inspect, export and maintain the analyzed sample store",
	Long: `Manage the analytical store that holds one row per evaluated sample version
and one row per batch run.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show store statistics and connection info
  export  - Export samples and runs to Parquet
  clear   - Remove all stored samples and runs
  migrate - Run database schema migrations
  show    - Print the newest stored record of a link
  report  - Flatten criteria scores for reporting

Examples:
  # Check store status
  repoanalysis samples status

  # Export for analysis in pandas/DuckDB
  repoanalysis samples export --output-file samples`,
}

// samplesStatusCmd shows store status.
var samplesStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display store statistics and connection details",
	PreRunE: samplesSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		defer iocache.CloseStores()
		status, err := iocache.Manager.GetSampleStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		iocache.PrintStoreStatus(os.Stdout, status)
	},
}

// samplesExportCmd exports samples and runs to Parquet files.
var samplesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored samples and runs to Parquet",
	Long: `Export all stored samples and runs to Parquet for use with analytics tools.

Writes <output-file>.samples.parquet and <output-file>.runs.parquet.

Requires: --output-file parameter

Examples:
  repoanalysis samples export --output-file samples
  duckdb -c "SELECT product_name, avg(overall_compliance_score) FROM 'samples.samples.parquet' GROUP BY 1"`,
	PreRunE: samplesSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		defer iocache.CloseStores()
		if err := iocache.ExportSamples(rootCtx, iocache.Manager.GetSampleStore(), cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export samples", err)
		}
	},
}

// samplesClearCmd removes all stored data.
var samplesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored samples and runs",
	Long: `Delete all stored samples and batch runs.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the sample, run and migration tables

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: samplesMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearSamples(cfg.Backend, cfg.DBConnect, cfg.Table); err != nil {
			contract.LogFatal("Failed to clear samples", err)
		}
		fmt.Println("Sample store cleared successfully.")
	},
}

// samplesMigrateCmd runs database migrations for the sample store.
var samplesMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the sample store.

By default, migrates to the latest version. Use --target-version for specific versions.
Migrations manage the default table names only.

Examples:
  # Migrate to latest version (default)
  repoanalysis samples migrate

  # Rollback to initial state
  repoanalysis samples migrate --target-version 0`,
	PreRunE: samplesMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateSamples(cfg.Backend, cfg.DBConnect, targetVersion, os.Stdout); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}

// samplesShowCmd prints one stored record.
var samplesShowCmd = &cobra.Command{
	Use:     "show <github-link>",
	Short:   "Print the newest stored record of a GitHub link",
	Args:    cobra.ExactArgs(1),
	PreRunE: samplesSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		defer iocache.CloseStores()
		row, err := iocache.Manager.GetSampleStore().Read(rootCtx, args[0])
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("no record found for %s", args[0])
		}
		return outwriter.NewOutWriter().WriteRecord(*row, cfg)
	},
}

// samplesReportCmd flattens criteria scores of stored samples.
var samplesReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report per-criterion scores of stored samples",
	Long: `Flatten the criteria breakdown of the newest record of every stored link
into one row with a column per criterion.

Examples:
  repoanalysis samples report --repo python-docs-samples
  repoanalysis samples report --output csv --output-file criteria.csv`,
	PreRunE: samplesSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		defer iocache.CloseStores()
		rows, err := iocache.Manager.GetSampleStore().List(rootCtx)
		if err != nil {
			return err
		}
		report := buildCriteriaReport(rows, viper.GetString("repo"))
		return outwriter.NewOutWriter().WriteCriteriaReport(report, cfg)
	},
}

// buildCriteriaReport keeps the newest row per link, optionally filtered by
// repository, ordered by link.
func buildCriteriaReport(rows []schema.Row, repo string) []schema.CriteriaReportRow {
	newest := make(map[string]schema.Row)
	for _, row := range rows {
		if repo != "" && !strings.EqualFold(row.GithubRepo, repo) && !strings.EqualFold(row.GithubOwner+"/"+row.GithubRepo, repo) {
			continue
		}
		if cur, ok := newest[row.GithubLink]; !ok || row.EvaluationDate.After(cur.EvaluationDate) {
			newest[row.GithubLink] = row
		}
	}
	links := make([]string, 0, len(newest))
	for link := range newest {
		links = append(links, link)
	}
	slices.Sort(links)

	report := make([]schema.CriteriaReportRow, 0, len(links))
	for _, link := range links {
		report = append(report, schema.NewCriteriaReportRow(newest[link]))
	}
	return report
}
