// Package main provides a performance benchmarking tool for the repoanalysis CLI.
// It measures batch times across sample repositories, running each pipeline several
// times against a local stub evaluator. With the sqlite store the first run evaluates
// every sample (cold) and later runs skip already-processed versions (warm).
//
// Prerequisites:
// - repoanalysis binary installed and available in PATH
// - Sample repositories cloned to the specified base directory
// - Git repositories: python-docs-samples, golang-samples, nodejs-docs-samples, java-docs-samples
//
// Usage: go run benchmark/main.go [repo-base-dir]
//
//	repo-base-dir: Directory containing sample repositories
package main

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-store average, cold run and average of warm runs).
type BenchmarkResult struct {
	Repository  string
	Mode        string
	NoStoreTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoBase     string
	Timeout      time.Duration
	Workers      int
	NoStoreRuns  int
	StoreRuns    int
	EvalLatency  time.Duration
	TestRepos    []string
	EvaluatorURL string
}

const stubAssessment = `{"analysis":{"assessment":{"overall_compliance_score":80,"criteria_breakdown":[]}},"validation_history":[]}`

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [repo-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		RepoBase:    os.Args[1],
		Timeout:     10 * time.Minute,
		Workers:     8,
		NoStoreRuns: 2,
		StoreRuns:   4,
		EvalLatency: 20 * time.Millisecond,
		TestRepos:   []string{"python-docs-samples", "golang-samples", "nodejs-docs-samples", "java-docs-samples"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	stub := newStubEvaluator(config.EvalLatency)
	defer stub.Close()
	config.EvaluatorURL = stub.URL

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// newStubEvaluator answers every evaluation after a fixed delay.
func newStubEvaluator(latency time.Duration) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(latency)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(stubAssessment))
	}))
}

// checkPrerequisites verifies that the repoanalysis binary and sample repositories exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("repoanalysis"); err != nil {
		return fmt.Errorf("repoanalysis binary not found in PATH")
	}

	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		if _, err := os.Stat(repoPath); os.IsNotExist(err) {
			return fmt.Errorf("repository %s not found at %s", repo, repoPath)
		}
	}

	return nil
}

// runBenchmarks executes the batch and categorize benchmarks across configured repositories
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d repos, %v timeout, %d workers, no-store: %d runs, store: %d runs\n",
		len(config.TestRepos), config.Timeout, config.Workers, config.NoStoreRuns, config.StoreRuns)

	for _, repo := range config.TestRepos {
		fmt.Printf("Benchmarking %s\n", repo)
		repoPath := filepath.Join(config.RepoBase, repo)

		results = append(results, runBenchmarkSuite(config, repo, repoPath, "batch", nil))
		results = append(results, runBenchmarkSuite(config, repo, repoPath, "categorize", []string{"--categorize-only", "--output-file", os.DevNull}))
	}

	return results
}

// runBenchmarkSuite runs both no-store and store phases for a mode
func runBenchmarkSuite(config BenchmarkConfig, repo, repoPath, mode string, extraArgs []string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", mode, repo)

	runPhase := func(backend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		dbPath := filepath.Join(os.TempDir(), fmt.Sprintf("repoanalysis_bench_%s_%s.db", repo, mode))
		_ = os.Remove(dbPath)
		defer func() { _ = os.Remove(dbPath) }()

		cold, times := runBenchmark(config, repoPath, mode, backend, dbPath, extraArgs, numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	_, noStoreAvg := runPhase("none", config.NoStoreRuns, "No-store")
	coldTime, warmAvg := runPhase("sqlite", config.StoreRuns, "Store")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-store average: %s, Cold time: %s, Warm average: %s\n", noStoreAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Repository:  repo,
		Mode:        mode,
		NoStoreTime: noStoreAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes repoanalysis multiple times against one backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, repoPath, mode, backend, dbPath string, extraArgs []string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		repoPath,
		"--backend", backend,
		"--db-connect", dbPath,
		"--api-url", config.EvaluatorURL,
		"--workers", fmt.Sprint(config.Workers),
		"--progress", "no",
		"--error-log-dir", os.TempDir(),
		"--log-level", "error",
	}
	args = append(args, extraArgs...)

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("repoanalysis", args...)
		cmd.Dir = repoPath

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output, mode) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte, mode string) bool {
	if mode != "batch" {
		return true
	}
	outputStr := string(output)
	return strings.Contains(outputStr, "finished in") && strings.Contains(outputStr, "files submitted")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("repoanalysis_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"repo", "mode", "no_store_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Repository, result.Mode, result.NoStoreTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	printModeSummary(results, "batch", "Batch Pipeline:")
	printModeSummary(results, "categorize", "Categorize Only:")
}

func printModeSummary(results []BenchmarkResult, mode, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Mode == mode {
			fmt.Printf("  %-20s: No-store: %s, Cold: %s, Warm: %s\n", result.Repository, result.NoStoreTime, result.ColdTime, result.WarmTime)
		}
	}
}
