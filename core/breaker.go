package core

import "sync"

// ErrorBreaker halts a batch after a run of consecutive failures.
// The count never exceeds the threshold: the failure that reaches it trips the
// breaker, and later reports are ignored.
type ErrorBreaker struct {
	mu        sync.Mutex
	threshold int
	count     int
	tripped   bool
}

// NewErrorBreaker creates a breaker that trips after threshold consecutive failures.
func NewErrorBreaker(threshold int) *ErrorBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &ErrorBreaker{threshold: threshold}
}

// RecordFailure counts a failure and reports whether the breaker is now open.
func (b *ErrorBreaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tripped {
		return true
	}
	b.count++
	if b.count >= b.threshold {
		b.tripped = true
	}
	return b.tripped
}

// RecordSuccess resets the consecutive count unless the breaker already tripped.
func (b *ErrorBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.tripped {
		b.count = 0
	}
}

// Open reports whether the breaker has tripped.
func (b *ErrorBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// Count returns the current consecutive failure count.
func (b *ErrorBreaker) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
