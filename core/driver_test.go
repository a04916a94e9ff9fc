package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
	"github.com/joeshirey/JSRepoAnalysis/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// funcProcessor adapts a function to FileProcessor.
type funcProcessor func(ctx context.Context, path string) (schema.Outcome, error)

func (f funcProcessor) ProcessFile(ctx context.Context, path string, _ ProcessOptions) (schema.Outcome, error) {
	return f(ctx, path)
}

// countingProgress records ticks.
type countingProgress struct {
	mu       sync.Mutex
	ticks    int
	finished bool
}

func (p *countingProgress) Add(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks += n
	return nil
}

func (p *countingProgress) Finish() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = true
	return nil
}

func fileList(n int, ext string) []string {
	files := make([]string, n)
	for i := range n {
		files[i] = fmt.Sprintf("samples/file%03d%s", i, ext)
	}
	return files
}

func fileIndex(path string) int {
	i, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(path, "samples/file"), ".py"))
	return i
}

func TestDriverRun_CountsByExtension(t *testing.T) {
	proc := funcProcessor(func(_ context.Context, path string) (schema.Outcome, error) {
		switch {
		case strings.HasSuffix(path, ".py"):
			return schema.Processed(path, &schema.Row{}), nil
		case strings.HasSuffix(path, ".txt"):
			return schema.Skipped(path, schema.SkipUnsupported), nil
		default:
			return schema.Outcome{}, errors.New("boom")
		}
	})
	files := append(append(fileList(5, ".py"), fileList(3, ".txt")...), fileList(2, ".go")...)
	progress := &countingProgress{}
	metrics := NewRunMetrics()
	dir := t.TempDir()

	summary, err := NewDriver(proc, nil, nil).Run(context.Background(), files, RunOptions{
		Workers:              4,
		MaxConsecutiveErrors: 20,
		ErrorLogDir:          dir,
		Progress:             progress,
		Metrics:              metrics,
	})

	require.NoError(t, err)
	assert.False(t, summary.Halted)
	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, 10, summary.Submitted)
	assert.Equal(t, 5, summary.ByExtension[".py"].Processed)
	assert.Equal(t, 3, summary.ByExtension[".txt"].Skipped)
	assert.Equal(t, 2, summary.ByExtension[".go"].Errored)
	assert.Equal(t, 3, summary.SkipReasons[schema.SkipUnsupported])
	assert.ElementsMatch(t, fileList(2, ".go"), summary.FailedPaths)
	assert.NotEmpty(t, summary.RunID)

	assert.Equal(t, 10, progress.ticks)
	assert.True(t, progress.finished)
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.files.WithLabelValues(".py", "processed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.files.WithLabelValues(".go", "errored")))

	// the error log holds exactly the failed paths, one per line
	require.NotEmpty(t, summary.ErrorLog)
	logged, err := ReadReprocessLog(summary.ErrorLog)
	require.NoError(t, err)
	assert.ElementsMatch(t, fileList(2, ".go"), logged)
}

func TestDriverRun_NoFailuresLeavesNoErrorLog(t *testing.T) {
	proc := funcProcessor(func(_ context.Context, path string) (schema.Outcome, error) {
		return schema.Processed(path, &schema.Row{}), nil
	})
	dir := t.TempDir()

	summary, err := NewDriver(proc, nil, nil).Run(context.Background(), fileList(4, ".py"), RunOptions{
		Workers: 2, MaxConsecutiveErrors: 3, ErrorLogDir: dir,
	})

	require.NoError(t, err)
	assert.Empty(t, summary.ErrorLog)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDriverRun_HaltsAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	proc := funcProcessor(func(ctx context.Context, path string) (schema.Outcome, error) {
		calls.Add(1)
		return schema.Outcome{}, &contract.APIError{URL: "http://eval", StatusCode: 503}
	})
	files := fileList(200, ".py")

	summary, err := NewDriver(proc, nil, nil).Run(context.Background(), files, RunOptions{
		Workers: 4, MaxConsecutiveErrors: 20, ErrorLogDir: t.TempDir(),
	})

	require.ErrorIs(t, err, contract.ErrCircuitOpen)
	assert.True(t, summary.Halted)
	// in-flight work may finish after the trip, bounded by the pool size
	assert.GreaterOrEqual(t, summary.Submitted, 20)
	assert.LessOrEqual(t, summary.Submitted, 20+2*4+1)
	assert.Less(t, summary.Submitted, len(files))
	assert.Equal(t, int(calls.Load()), summary.Totals().Errored)
}

func TestDriverRun_SuccessResetsBreaker(t *testing.T) {
	// fail, fail, succeed, repeated: never three in a row
	proc := funcProcessor(func(_ context.Context, path string) (schema.Outcome, error) {
		i := fileIndex(path)
		if i%3 == 2 {
			return schema.Processed(path, &schema.Row{}), nil
		}
		return schema.Outcome{}, errors.New("transient")
	})

	summary, err := NewDriver(proc, nil, nil).Run(context.Background(), fileList(30, ".py"), RunOptions{
		Workers: 1, MaxConsecutiveErrors: 3, ErrorLogDir: t.TempDir(),
	})

	require.NoError(t, err)
	assert.False(t, summary.Halted)
	assert.Equal(t, 30, summary.Submitted)
	assert.Equal(t, 10, summary.Totals().Processed)
	assert.Equal(t, 20, summary.Totals().Errored)
}

func TestDriverRun_SkipsDoNotResetBreaker(t *testing.T) {
	// fail, skip, fail, skip, ...: skips are neutral, so the breaker still trips
	proc := funcProcessor(func(_ context.Context, path string) (schema.Outcome, error) {
		i := fileIndex(path)
		if i%2 == 1 {
			return schema.Skipped(path, schema.SkipNoRegionTags), nil
		}
		return schema.Outcome{}, errors.New("transient")
	})

	summary, err := NewDriver(proc, nil, nil).Run(context.Background(), fileList(40, ".py"), RunOptions{
		Workers: 1, MaxConsecutiveErrors: 3, ErrorLogDir: t.TempDir(),
	})

	require.ErrorIs(t, err, contract.ErrCircuitOpen)
	assert.True(t, summary.Halted)
	assert.Less(t, summary.Submitted, 40)
}

func TestDriverRun_TracksRun(t *testing.T) {
	store := &contract.MockSampleStore{}
	store.On("BeginRun", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time"), map[string]any{"workers": 1}).
		Return(int64(7), nil)
	store.On("EndRun", mock.Anything, int64(7), mock.AnythingOfType("time.Time"), mock.MatchedBy(func(s schema.RunSummary) bool {
		return s.Totals().Processed == 2
	})).Return(nil)
	proc := funcProcessor(func(_ context.Context, path string) (schema.Outcome, error) {
		return schema.Processed(path, &schema.Row{}), nil
	})

	_, err := NewDriver(proc, store, nil).Run(context.Background(), fileList(2, ".py"), RunOptions{
		Workers: 1, MaxConsecutiveErrors: 5, ErrorLogDir: t.TempDir(), ConfigParams: map[string]any{"workers": 1},
	})

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestDriverRun_RunTrackingFailureIsNotFatal(t *testing.T) {
	store := &contract.MockSampleStore{}
	store.On("BeginRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("runs table missing"))
	proc := funcProcessor(func(_ context.Context, path string) (schema.Outcome, error) {
		return schema.Processed(path, &schema.Row{}), nil
	})

	summary, err := NewDriver(proc, store, nil).Run(context.Background(), fileList(3, ".py"), RunOptions{
		Workers: 2, MaxConsecutiveErrors: 5, ErrorLogDir: t.TempDir(),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Totals().Processed)
	store.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDriverRun_RunIDInContext(t *testing.T) {
	var seen atomic.Value
	proc := funcProcessor(func(ctx context.Context, path string) (schema.Outcome, error) {
		seen.Store(RunIDFrom(ctx))
		return schema.Processed(path, &schema.Row{}), nil
	})

	summary, err := NewDriver(proc, nil, nil).Run(context.Background(), fileList(1, ".py"), RunOptions{
		Workers: 1, MaxConsecutiveErrors: 5, ErrorLogDir: t.TempDir(),
	})

	require.NoError(t, err)
	assert.Equal(t, summary.RunID, seen.Load())
}

func TestRunMetrics_WriteTextfile(t *testing.T) {
	m := NewRunMetrics()
	m.ObserveOutcome(".py", schema.Skipped("a.py", schema.SkipAlreadyProcessed), 0)
	m.ObserveHalt()
	path := t.TempDir() + "/run.prom"

	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `repoanalysis_skips_total{reason="already_processed"} 1`)
	assert.Contains(t, string(data), "repoanalysis_breaker_trips_total 1")
}

// tickGate counts collected results so a processor can wait for the collector.
type tickGate struct{ ticks atomic.Int32 }

func (g *tickGate) Add(n int) error { g.ticks.Add(int32(n)); return nil }
func (g *tickGate) Finish() error { return nil }

func (g *tickGate) waitFor(n int) {
	deadline := time.Now().Add(2 * time.Second)
	for int(g.ticks.Load()) < n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

func TestDriverRun_NoFileStartsAfterTrip(t *testing.T) {
	gate := &tickGate{}
	var calls atomic.Int32
	// file i starts only once the previous i results were collected
	proc := funcProcessor(func(_ context.Context, path string) (schema.Outcome, error) {
		gate.waitFor(fileIndex(path))
		calls.Add(1)
		return schema.Outcome{}, errors.New("down")
	})

	summary, err := NewDriver(proc, nil, nil).Run(context.Background(), fileList(10, ".py"), RunOptions{
		Workers: 1, MaxConsecutiveErrors: 3, ErrorLogDir: t.TempDir(), Progress: gate,
	})

	require.ErrorIs(t, err, contract.ErrCircuitOpen)
	// the third failure trips the breaker; at most the file already in hand runs after it
	assert.GreaterOrEqual(t, int(calls.Load()), 3)
	assert.LessOrEqual(t, int(calls.Load()), 4)
	assert.Equal(t, int(calls.Load()), summary.Submitted)
	assert.Equal(t, summary.Submitted, summary.Totals().Errored)
}

func TestDriverRun_FlagsTimeouts(t *testing.T) {
	proc := funcProcessor(func(_ context.Context, path string) (schema.Outcome, error) {
		if fileIndex(path) == 0 {
			return schema.Outcome{}, &contract.APIError{URL: "http://eval", Timeout: true}
		}
		return schema.Outcome{}, &contract.APIError{URL: "http://eval", StatusCode: 400}
	})
	logger, hook := logtest.NewNullLogger()
	metrics := NewRunMetrics()

	_, err := NewDriver(proc, nil, logrus.NewEntry(logger)).Run(context.Background(), fileList(2, ".py"), RunOptions{
		Workers: 1, MaxConsecutiveErrors: 5, ErrorLogDir: t.TempDir(), Metrics: metrics,
	})

	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.timeouts))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.files.WithLabelValues(".py", "errored")))

	timeouts := map[string]bool{}
	for _, e := range hook.AllEntries() {
		if e.Message == "process.failed" {
			timeouts[e.Data["file"].(string)] = e.Data["timeout"].(bool)
		}
	}
	assert.Equal(t, map[string]bool{"samples/file000.py": true, "samples/file001.py": false}, timeouts)
}
