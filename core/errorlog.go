package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrorLog records failed paths, one bare path per line, so the file can be
// fed back with --reprocess-log. The file is created on the first failure.
type ErrorLog struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	count int
}

// NewErrorLog returns a log inside dir named after the run's start time and
// the leading characters of its run ID, so runs starting in the same second
// never share a file.
func NewErrorLog(dir string, start time.Time, runID string) *ErrorLog {
	name := "error_log_" + start.Format("20060102_150405")
	if runID != "" {
		name += "_" + runID[:min(len(runID), 8)]
	}
	return &ErrorLog{path: filepath.Join(dir, name+".txt")}
}

// Append writes one failed path.
func (l *ErrorLog) Append(failedPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		l.file = f
	}
	if _, err := fmt.Fprintln(l.file, failedPath); err != nil {
		return err
	}
	l.count++
	return nil
}

// Path returns the log location, whether or not it was written.
func (l *ErrorLog) Path() string {
	return l.path
}

// Count returns the number of recorded failures.
func (l *ErrorLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Close flushes the file if it was opened.
func (l *ErrorLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
