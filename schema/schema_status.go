package schema

import "time"

// StoreStatus represents the status of the sample store.
type StoreStatus struct {
	Backend          string           `json:"backend"`
	Connected        bool             `json:"connected"`
	Table            string           `json:"table"`
	TotalSamples     int              `json:"total_samples"`
	DistinctLinks    int              `json:"distinct_links"`
	LastEvaluation   time.Time        `json:"last_evaluation"`
	OldestEvaluation time.Time        `json:"oldest_evaluation"`
	TotalRuns        int              `json:"total_runs"`
	LastRunID        int64            `json:"last_run_id"`
	LastRunTime      time.Time        `json:"last_run_time"`
	TableSizes       map[string]int64 `json:"table_sizes"`
}
