package decoder

import (
	"context"
	"strings"
	"time"
)

// UnknownFormat is reported when the decoder did not name a symbology.
const UnknownFormat = "UNKNOWN"

// RawEvent is one decode reported by the decoder before debouncing.
type RawEvent struct {
	Payload    string
	Format     string
	ObservedAt time.Time
}

// Region is a detection area in frame pixels; the zero value means full frame.
type Region struct {
	X, Y, Width, Height int
}

// StreamConfig carries capture settings through to the provider unmodified.
type StreamConfig struct {
	FrameRate   int
	Width       int
	Height      int
	Region      Region
	Symbologies []string
	ExtraArgs   []string
}

// Stream is an open decode session on one device.
type Stream interface {
	// Events delivers decodes until the stream ends; the channel is closed then.
	Events() <-chan RawEvent
	// Done is closed once the stream has ended; Err reports why.
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Provider opens decode streams.
type Provider interface {
	Open(ctx context.Context, devicePath string, cfg StreamConfig) (Stream, error)
}

// NormalizeFormat maps a decoder symbology name onto the canonical form used
// in scan results.
func NormalizeFormat(format string) string {
	format = strings.ToUpper(strings.TrimSpace(format))
	if format == "" {
		return UnknownFormat
	}
	return format
}
