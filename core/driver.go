package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/sirupsen/logrus"
)

// FileProcessor is the per-file stage the driver fans out to.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string, opts ProcessOptions) (schema.Outcome, error)
}

// Progress receives one tick per finished file.
type Progress interface {
	Add(n int) error
	Finish() error
}

// RunOptions configure a batch run.
type RunOptions struct {
	Workers              int
	MaxConsecutiveErrors int
	ErrorLogDir          string
	Process              ProcessOptions
	ConfigParams         map[string]any
	Progress             Progress
	Metrics              *RunMetrics
}

// Driver runs the processor over a list of files with a fixed worker pool.
type Driver struct {
	processor FileProcessor
	store     contract.SampleStore
	log       *logrus.Entry
	now       func() time.Time
}

// NewDriver creates a driver. store is only used for run tracking and may be nil.
func NewDriver(processor FileProcessor, store contract.SampleStore, log *logrus.Entry) *Driver {
	if log == nil {
		log = contract.DiscardLogger()
	}
	return &Driver{processor: processor, store: store, log: log, now: time.Now}
}

type fileResult struct {
	path    string
	outcome schema.Outcome
	err     error
	took    time.Duration
}

// Run processes files and returns the run summary.
// When the consecutive error breaker trips, no further files are submitted,
// in-flight work is cancelled and ErrCircuitOpen is returned with Halted set.
func (d *Driver) Run(ctx context.Context, files []string, opts RunOptions) (schema.RunSummary, error) {
	workers := max(opts.Workers, 1)
	start := d.now()
	runID := uuid.NewString()
	ctx = WithRunID(ctx, runID)
	log := d.log.WithField("run_id", runID)

	trackedID := d.beginRun(ctx, log, runID, start, opts.ConfigParams)

	summary := schema.NewRunSummary(runID, len(files))
	errLog := NewErrorLog(opts.ErrorLogDir, start, runID)
	defer func() { _ = errLog.Close() }()
	breaker := NewErrorBreaker(opts.MaxConsecutiveErrors)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.WithFields(logrus.Fields{"files": len(files), "workers": workers}).Info("run.start")

	// --- Worker pool ---
	// A job received after cancellation is dropped unstarted and not counted as submitted.
	jobs := make(chan string)
	results := make(chan fileResult, workers)
	var dropped atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for path := range jobs {
				if runCtx.Err() != nil {
					dropped.Add(1)
					continue
				}
				t0 := time.Now()
				outcome, err := d.processor.ProcessFile(runCtx, path, opts.Process)
				results <- fileResult{path: path, outcome: outcome, err: err, took: time.Since(t0)}
			}
		})
	}

	// --- Collector ---
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range results {
			d.collect(log, r, summary, errLog, breaker, opts)
			if breaker.Open() {
				cancel()
			}
			if opts.Progress != nil {
				_ = opts.Progress.Add(1)
			}
		}
	}()

	// --- Submitter ---
	submitted := 0
submit:
	for _, f := range files {
		if breaker.Open() || runCtx.Err() != nil {
			break
		}
		select {
		case jobs <- f:
			submitted++
		case <-runCtx.Done():
			break submit
		}
	}
	close(jobs)
	wg.Wait()
	close(results)
	<-collected

	if opts.Progress != nil {
		_ = opts.Progress.Finish()
	}

	summary.Submitted = submitted - int(dropped.Load())
	summary.Halted = breaker.Open()
	summary.Duration = d.now().Sub(start)
	if errLog.Count() > 0 {
		summary.ErrorLog = errLog.Path()
	}
	d.endRun(ctx, log, trackedID, *summary)

	totals := summary.Totals()
	log.WithFields(logrus.Fields{
		"processed": totals.Processed,
		"skipped":   totals.Skipped,
		"errored":   totals.Errored,
		"halted":    summary.Halted,
		"duration":  summary.Duration,
	}).Info("run.done")

	if summary.Halted {
		if opts.Metrics != nil {
			opts.Metrics.ObserveHalt()
		}
		return *summary, contract.ErrCircuitOpen
	}
	if err := ctx.Err(); err != nil {
		return *summary, err
	}
	return *summary, nil
}

// collect runs on a single goroutine, so the summary needs no locking.
func (d *Driver) collect(log *logrus.Entry, r fileResult, summary *schema.RunSummary, errLog *ErrorLog, breaker *ErrorBreaker, opts RunOptions) {
	ext := schema.ExtensionKey(r.path)

	if r.err == nil {
		summary.RecordOutcome(ext, r.outcome)
		if opts.Metrics != nil {
			opts.Metrics.ObserveOutcome(ext, r.outcome, r.took)
		}
		if r.outcome.Status == schema.StatusProcessed {
			breaker.RecordSuccess()
		}
		return
	}

	timeout := contract.IsTimeoutError(r.err)
	summary.RecordFailure(ext, r.path)
	if opts.Metrics != nil {
		opts.Metrics.ObserveFailure(ext, r.took, timeout)
	}
	entry := log.WithFields(logrus.Fields{"file": r.path, "error": r.err, "timeout": timeout})
	if errors.Is(r.err, context.Canceled) {
		entry.Warn("process.cancelled")
	} else {
		entry.Error("process.failed")
	}
	if err := errLog.Append(r.path); err != nil {
		log.WithFields(logrus.Fields{"error_log": errLog.Path(), "error": err}).Error("errorlog.append.failed")
	}
	if !breaker.Open() && breaker.RecordFailure() {
		log.WithField("threshold", breaker.Count()).Error("run.halted")
	}
}

func (d *Driver) beginRun(ctx context.Context, log *logrus.Entry, runID string, start time.Time, params map[string]any) int64 {
	if d.store == nil {
		return 0
	}
	id, err := d.store.BeginRun(ctx, runID, start, params)
	if err != nil {
		log.WithError(err).Warn("run.track.begin_failed")
		return 0
	}
	return id
}

func (d *Driver) endRun(ctx context.Context, log *logrus.Entry, id int64, summary schema.RunSummary) {
	if d.store == nil || id == 0 {
		return
	}
	// The run context may already be cancelled; the bookkeeping still has to land.
	if err := d.store.EndRun(context.WithoutCancel(ctx), id, d.now(), summary); err != nil {
		log.WithError(err).Warn("run.track.end_failed")
	}
}
