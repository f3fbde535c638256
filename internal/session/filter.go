package session

import (
	"sync"
	"time"
)

// DefaultDebounceWindow suppresses repeats of the same payload for two seconds.
const DefaultDebounceWindow = 2000 * time.Millisecond

// DecodeFilter drops a decode when it repeats the previously accepted payload
// within the window. Only the last accepted payload is remembered; the
// symbology is not part of the comparison.
type DecodeFilter struct {
	mu          sync.Mutex
	window      time.Duration
	lastPayload string
	lastAt      time.Time
	seen        bool
}

// NewDecodeFilter returns a filter with the given window; non-positive values
// use DefaultDebounceWindow.
func NewDecodeFilter(window time.Duration) *DecodeFilter {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &DecodeFilter{window: window}
}

// Window reports the configured debounce window.
func (f *DecodeFilter) Window() time.Duration {
	return f.window
}

// Accept reports whether the decode should be recorded and, if so, remembers it.
func (f *DecodeFilter) Accept(payload, format string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen && payload == f.lastPayload && now.Sub(f.lastAt) < f.window {
		return false
	}
	f.lastPayload = payload
	f.lastAt = now
	f.seen = true
	return true
}

// Reset forgets the last accepted payload.
func (f *DecodeFilter) Reset() {
	f.mu.Lock()
	f.lastPayload = ""
	f.lastAt = time.Time{}
	f.seen = false
	f.mu.Unlock()
}
