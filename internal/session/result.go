package session

import (
	"context"
	"time"
)

// ScanResult is one accepted decode. Results are immutable once recorded.
type ScanResult struct {
	ID         string    `json:"id"`
	Payload    string    `json:"payload"`
	Format     string    `json:"format"`
	ObservedAt time.Time `json:"observed_at"`
	DeviceID   string    `json:"device_id,omitempty"`
}

// Notifier receives one call per accepted result. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, result ScanResult) error
}
