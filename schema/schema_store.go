package schema

import "time"

// RunRecord represents a row from the analysis_runs table.
type RunRecord struct {
	RunID          int64
	RunUUID        string
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	FilesProcessed int32
	FilesSkipped   int32
	FilesErrored   int32
	ConfigParams   *string
}

// ExtensionCounts are the per-extension counters of a batch run.
type ExtensionCounts struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
}

// RunSummary aggregates the outcome of a batch run.
type RunSummary struct {
	RunID       string                      `json:"run_id"`
	Total       int                         `json:"total"`
	Submitted   int                         `json:"submitted"`
	ByExtension map[string]*ExtensionCounts `json:"by_extension"`
	SkipReasons map[SkipReason]int          `json:"skip_reasons"`
	FailedPaths []string                    `json:"failed_paths"`
	ErrorLog    string                      `json:"error_log,omitempty"`
	Halted      bool                        `json:"halted"`
	Duration    time.Duration               `json:"duration"`
}

// NewRunSummary returns an empty summary ready for counting.
func NewRunSummary(runID string, total int) *RunSummary {
	return &RunSummary{
		RunID:       runID,
		Total:       total,
		ByExtension: make(map[string]*ExtensionCounts),
		SkipReasons: make(map[SkipReason]int),
	}
}

func (s *RunSummary) counts(ext string) *ExtensionCounts {
	c, ok := s.ByExtension[ext]
	if !ok {
		c = &ExtensionCounts{}
		s.ByExtension[ext] = c
	}
	return c
}

// RecordOutcome counts a processed or skipped file.
func (s *RunSummary) RecordOutcome(ext string, o Outcome) {
	c := s.counts(ext)
	switch o.Status {
	case StatusProcessed:
		c.Processed++
	case StatusSkipped:
		c.Skipped++
		s.SkipReasons[o.Reason]++
	}
}

// RecordFailure counts a file that failed.
func (s *RunSummary) RecordFailure(ext, path string) {
	s.counts(ext).Errored++
	s.FailedPaths = append(s.FailedPaths, path)
}

// Totals sums the per-extension counters.
func (s *RunSummary) Totals() ExtensionCounts {
	var t ExtensionCounts
	for _, c := range s.ByExtension {
		t.Processed += c.Processed
		t.Skipped += c.Skipped
		t.Errored += c.Errored
	}
	return t
}
