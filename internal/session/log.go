package session

import (
	"sync"
	"time"
)

// ResultLog holds accepted results newest first. Clearing the log also resets
// its decode filter so the next decode of any payload is accepted.
type ResultLog struct {
	mu      sync.Mutex
	entries []ScanResult
	limit   int
	filter  *DecodeFilter
}

// NewResultLog builds a log bounded to limit entries (0 keeps everything).
func NewResultLog(filter *DecodeFilter, limit int) *ResultLog {
	if filter == nil {
		filter = NewDecodeFilter(DefaultDebounceWindow)
	}
	if limit < 0 {
		limit = 0
	}
	return &ResultLog{filter: filter, limit: limit}
}

// Append inserts result at the front. No deduplication happens here.
func (l *ResultLog) Append(result ScanResult) {
	l.mu.Lock()
	l.appendLocked(result)
	l.mu.Unlock()
}

// Record runs the decode through the filter and appends it when accepted.
// Filtering and appending happen under the log lock so a concurrent Clear
// never interleaves between them.
func (l *ResultLog) Record(payload, format string, now time.Time, build func() ScanResult) (ScanResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.filter.Accept(payload, format, now) {
		return ScanResult{}, false
	}
	result := build()
	l.appendLocked(result)
	return result, true
}

func (l *ResultLog) appendLocked(result ScanResult) {
	l.entries = append(l.entries, ScanResult{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = result
	if l.limit > 0 && len(l.entries) > l.limit {
		clear(l.entries[l.limit:])
		l.entries = l.entries[:l.limit]
	}
}

// Clear empties the log and resets the filter.
func (l *ResultLog) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.filter.Reset()
	l.mu.Unlock()
}

// List returns a copy of the entries, newest first.
func (l *ResultLog) List() []ScanResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ScanResult, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of entries.
func (l *ResultLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
