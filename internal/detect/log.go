package detect

import (
	"sync"
)

const (
	// DefaultLogCapacity bounds the in-memory confirmation history.
	DefaultLogCapacity = 1000

	// DefaultRecentLimit is how many confirmations Recent returns when
	// the caller does not supply a limit.
	DefaultRecentLimit = 100
)

// Log is a bounded in-memory history of confirmed detections, newest
// last. It backs the read-only HTTP listing endpoints; nothing in the
// confirmation path depends on it.
type Log struct {
	mu       sync.RWMutex
	capacity int
	entries  []Confirmation
	total    int
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{capacity: capacity}
}

// Add records a confirmation, dropping the oldest entries once the
// capacity is exceeded.
func (l *Log) Add(c Confirmation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, c)
	l.total++
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
}

// Recent returns up to limit confirmations, newest first. A limit of
// zero or below falls back to DefaultRecentLimit.
func (l *Log) Recent(limit int) []Confirmation {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.entries)
	if limit > n {
		limit = n
	}

	result := make([]Confirmation, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, l.entries[i])
	}
	return result
}

// Total is the number of confirmations recorded since startup,
// including entries the capacity bound has since dropped.
func (l *Log) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
