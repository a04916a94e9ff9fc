package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joeshirey/JSRepoAnalysis/core"
	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/internal/evaluator"
	"github.com/joeshirey/JSRepoAnalysis/internal/iocache"
	"github.com/joeshirey/JSRepoAnalysis/internal/outwriter"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// pipeline holds the components of one invocation. They are built once and
// shared by every worker.
type pipeline struct {
	git       contract.GitClient
	tags      *core.RegionTagExtractor
	resolver  *core.GitInfoProvider
	processor *core.CodeProcessor
	store     contract.SampleStore
}

// newPipeline wires the processor from cfg. The evaluator is skipped for
// categorize-only runs, which never call it.
func newPipeline(withEvaluator bool) (*pipeline, error) {
	p := &pipeline{
		git:  contract.NewLocalGitClient(),
		tags: core.NewRegionTagExtractor(),
	}
	p.resolver = core.NewGitInfoProvider(p.git)

	var eval contract.Evaluator
	if withEvaluator {
		e, err := evaluator.New(cfg, logger)
		if err != nil {
			return nil, err
		}
		eval = e
	}
	categorizer := core.NewProductCategorizer(core.NewTaxonomy(), evaluator.NewClassifier(cfg, logger), logger)
	p.store = iocache.Manager.GetSampleStore()
	p.processor = core.NewCodeProcessor(p.resolver, p.tags, eval, categorizer, p.store, logger)
	return p, nil
}

// runPipeline dispatches to the single-file modes or the batch runner.
func runPipeline(ctx context.Context, cmd *cobra.Command) error {
	p, err := newPipeline(!cfg.CategorizeOnly)
	if err != nil {
		return err
	}
	ow := outwriter.NewOutWriter()

	switch {
	case cfg.EvalOnly:
		record, err := p.processor.AnalyzeOnly(ctx, cfg.InputPath)
		if err != nil {
			return fmt.Errorf("evaluation of %s failed: %w", cfg.InputPath, err)
		}
		return ow.WriteEvaluation(record, cfg)
	case cfg.CategorizeOnly:
		rows, err := categorizeInputs(ctx, p)
		if err != nil {
			return err
		}
		return ow.WriteCategorizations(rows, cfg)
	}

	files, err := collectFiles(ctx, p)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "⚠️  No files to process.")
		return nil
	}

	summary, runErr := runBatch(ctx, p, files, cfg.Regen)
	if err := ow.WriteRunSummary(summary, cfg); err != nil {
		return err
	}
	if summary.ErrorLog != "" && !summary.Halted && confirmRequeue(cmd.InOrStdin(), cmd.ErrOrStderr(), len(summary.FailedPaths)) {
		retry, err := core.ReadReprocessLog(summary.ErrorLog)
		if err != nil {
			return err
		}
		summary, runErr = runBatch(ctx, p, retry, true)
		if err := ow.WriteRunSummary(summary, cfg); err != nil {
			return err
		}
	}
	return runErr
}

// collectFiles expands whichever input was given into file paths.
func collectFiles(ctx context.Context, p *pipeline) ([]string, error) {
	switch {
	case cfg.ReprocessLog != "":
		return core.ReadReprocessLog(cfg.ReprocessLog)
	case cfg.FromCSV != "":
		sources, err := syncSources(ctx, p)
		if err != nil {
			return nil, err
		}
		files := make([]string, 0, len(sources))
		for _, src := range sources {
			files = append(files, src.LocalPath)
		}
		return files, nil
	default:
		return core.ExpandPath(cfg.InputPath, cfg.Excludes)
	}
}

func syncSources(ctx context.Context, p *pipeline) ([]core.SampleSource, error) {
	syncer := core.NewRepoSyncer(p.git, cfg.CloneDir, cfg.Workers, cfg.MaxRetries, logger)
	sources, err := syncer.ExpandCSV(ctx, cfg.FromCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", cfg.FromCSV, err)
	}
	return sources, nil
}

// categorizeInputs categorizes every input. A failing file aborts a
// single-file run and is logged and skipped otherwise.
func categorizeInputs(ctx context.Context, p *pipeline) ([]schema.CategorizationRow, error) {
	if cfg.FromCSV != "" {
		sources, err := syncSources(ctx, p)
		if err != nil {
			return nil, err
		}
		rows := make([]schema.CategorizationRow, 0, len(sources))
		for _, src := range sources {
			rows = append(rows, p.processor.CategorizeSource(ctx, src))
		}
		return rows, nil
	}

	files, err := collectFiles(ctx, p)
	if err != nil {
		return nil, err
	}
	single := len(files) == 1
	rows := make([]schema.CategorizationRow, 0, len(files))
	for _, f := range files {
		if !schema.LanguageForPath(f).Supported() && !single {
			continue
		}
		row, err := p.processor.CategorizeOnly(ctx, f)
		if err != nil {
			if single {
				return nil, fmt.Errorf("categorization of %s failed: %w", f, err)
			}
			logger.WithFields(logrus.Fields{"file": f, "error": err}).Warn("categorize.failed")
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// runBatch runs the driver over files and writes the metrics textfile.
func runBatch(ctx context.Context, p *pipeline, files []string, regen bool) (schema.RunSummary, error) {
	metrics := core.NewRunMetrics()
	opts := core.RunOptions{
		Workers:              cfg.Workers,
		MaxConsecutiveErrors: cfg.MaxConsecutiveErrors,
		ErrorLogDir:          cfg.ErrorLogDir,
		Process:              core.ProcessOptions{Regen: regen, Generated: cfg.Generated},
		ConfigParams:         runParams(regen),
		Metrics:              metrics,
	}
	if bar := outwriter.NewProgressBar(len(files), cfg.Progress); bar != nil {
		opts.Progress = bar
	}

	summary, err := core.NewDriver(p.processor, p.store, logger).Run(ctx, files, opts)
	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
			contract.LogWarn("Failed to write metrics file", werr)
		}
	}
	if errors.Is(err, contract.ErrCircuitOpen) {
		return summary, fmt.Errorf("run halted after %d consecutive errors: %w", cfg.MaxConsecutiveErrors, err)
	}
	return summary, err
}

// runParams are recorded with the run for later auditing. Secrets are left out.
func runParams(regen bool) map[string]any {
	return map[string]any{
		"input":          firstNonEmpty(cfg.InputPath, cfg.FromCSV, cfg.ReprocessLog),
		"project":        cfg.Project,
		"dataset":        cfg.Dataset,
		"table":          cfg.Table,
		"backend":        cfg.Backend,
		"evaluator":      cfg.Evaluator,
		"model":          cfg.Model,
		"workers":        cfg.Workers,
		"regen":          regen,
		"generated":      cfg.Generated,
		"max_retries":    cfg.MaxRetries,
		"http_timeout_s": cfg.HTTPTimeout.Seconds(),
		"version":        version,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// confirmRequeue asks whether to rerun the failed files now. It only prompts
// when stdin is a terminal.
func confirmRequeue(in io.Reader, out io.Writer, failed int) bool {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	return promptYesNo(in, out, fmt.Sprintf("Requeue %d failed files now with --regen? [y/N]: ", failed))
}

// promptYesNo reads one answer line; anything but y or yes is a no.
func promptYesNo(in io.Reader, out io.Writer, question string) bool {
	_, _ = fmt.Fprint(out, question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
