package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"scantest/internal/logging"
)

var (
	// ErrDeviceEnumeration reports that no capture devices could be listed,
	// either because none are attached or because the platform denied access.
	ErrDeviceEnumeration = errors.New("device enumeration failed")
	// ErrUnknownDevice reports a device id that is not present in the latest enumeration.
	ErrUnknownDevice = errors.New("unknown capture device")
)

// CaptureDevice describes one enumerated camera. Values are immutable once
// returned by an enumeration.
type CaptureDevice struct {
	ID      string
	Label   string
	Path    string
	Driver  string
	BusInfo string
}

// Enumerator lists the capture devices currently attached to the host.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]CaptureDevice, error)
}

// Registry caches the most recent enumeration so device ids can be resolved
// without walking sysfs on every session start.
type Registry struct {
	enumerator Enumerator
	logger     *slog.Logger

	mu      sync.RWMutex
	devices []CaptureDevice
}

// NewRegistry wraps an enumerator.
func NewRegistry(enumerator Enumerator, logger *slog.Logger) *Registry {
	return &Registry{
		enumerator: enumerator,
		logger:     logging.NewComponentLogger(logger, "device-registry"),
	}
}

// ListDevices enumerates attached cameras and replaces the cached snapshot.
// An empty result is reported as ErrDeviceEnumeration.
func (r *Registry) ListDevices(ctx context.Context) ([]CaptureDevice, error) {
	if r == nil || r.enumerator == nil {
		return nil, fmt.Errorf("%w: no enumerator configured", ErrDeviceEnumeration)
	}
	devices, err := r.enumerator.Enumerate(ctx)
	if err != nil {
		if errors.Is(err, ErrDeviceEnumeration) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDeviceEnumeration, err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no capture devices found", ErrDeviceEnumeration)
	}

	snapshot := make([]CaptureDevice, len(devices))
	copy(snapshot, devices)

	r.mu.Lock()
	r.devices = snapshot
	r.mu.Unlock()

	r.logger.Debug("capture devices enumerated",
		logging.Int("count", len(snapshot)),
		logging.String(logging.FieldEventType, "devices_enumerated"),
	)

	out := make([]CaptureDevice, len(snapshot))
	copy(out, snapshot)
	return out, nil
}

// Devices returns the cached enumeration without touching the host.
func (r *Registry) Devices() []CaptureDevice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CaptureDevice, len(r.devices))
	copy(out, r.devices)
	return out
}

// Resolve returns the device with the given id, enumerating again when the
// cached snapshot does not contain it.
func (r *Registry) Resolve(ctx context.Context, id string) (CaptureDevice, error) {
	id = normalizeID(id)
	if id == "" {
		return CaptureDevice{}, fmt.Errorf("%w: empty device id", ErrUnknownDevice)
	}
	if dev, ok := r.lookup(id); ok {
		return dev, nil
	}
	devices, err := r.ListDevices(ctx)
	if err != nil {
		return CaptureDevice{}, err
	}
	for _, dev := range devices {
		if dev.ID == id {
			return dev, nil
		}
	}
	return CaptureDevice{}, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
}

func (r *Registry) lookup(id string) (CaptureDevice, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, dev := range r.devices {
		if dev.ID == id {
			return dev, true
		}
	}
	return CaptureDevice{}, false
}

func normalizeID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "/dev/")
}
