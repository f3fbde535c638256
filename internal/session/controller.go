package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scantest/internal/capture"
	"scantest/internal/decoder"
	"scantest/internal/logging"
)

// DeviceResolver maps a device id onto an enumerated capture device.
type DeviceResolver interface {
	Resolve(ctx context.Context, id string) (capture.CaptureDevice, error)
}

// Options configures a Controller.
type Options struct {
	Devices  DeviceResolver
	Provider decoder.Provider
	// Notifier is optional; nil disables host feedback.
	Notifier Notifier
	Stream   decoder.StreamConfig
	// LockDir enables per-device exclusivity when non-empty.
	LockDir         string
	DebounceWindow  time.Duration
	HistoryLimit    int
	StartTimeout    time.Duration
	FeedbackTimeout time.Duration
	Logger          *slog.Logger
	Clock           func() time.Time
	NewID           func() string
}

// Controller owns one scan session and its result history.
type Controller struct {
	devices         DeviceResolver
	provider        decoder.Provider
	notifier        Notifier
	streamCfg       decoder.StreamConfig
	lockDir         string
	startTimeout    time.Duration
	feedbackTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time
	newID           func() string

	results *ResultLog
	hub     *EventHub

	mu          sync.Mutex
	state       State
	reason      string
	deviceID    string
	sessionID   string
	gen         uint64
	cancelStart context.CancelFunc
	startDone   chan struct{}
	stream      decoder.Stream
	lock        *capture.DeviceLock
	pumpDone    chan struct{}
	stopped     chan struct{}
}

// NewController validates options and returns an idle controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Devices == nil {
		return nil, errors.New("session: device resolver is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("session: decoder provider is required")
	}
	c := &Controller{
		devices:         opts.Devices,
		provider:        opts.Provider,
		notifier:        opts.Notifier,
		streamCfg:       opts.Stream,
		lockDir:         strings.TrimSpace(opts.LockDir),
		startTimeout:    opts.StartTimeout,
		feedbackTimeout: opts.FeedbackTimeout,
		logger:          logging.NewComponentLogger(opts.Logger, "session"),
		now:             opts.Clock,
		newID:           opts.NewID,
		results:         NewResultLog(NewDecodeFilter(opts.DebounceWindow), opts.HistoryLimit),
		hub:             NewEventHub(0),
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	if c.feedbackTimeout <= 0 {
		c.feedbackTimeout = 5 * time.Second
	}
	return c, nil
}

// Events exposes the hub carrying state changes and accepted results.
func (c *Controller) Events() *EventHub {
	return c.hub
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Results returns the accepted results, newest first.
func (c *Controller) Results() []ScanResult {
	return c.results.List()
}

// ClearResults empties the history and resets the debounce memory.
func (c *Controller) ClearResults() {
	c.results.Clear()
	c.hub.Publish(Event{Kind: EventCleared, Snapshot: c.Snapshot()})
}

// Start acquires deviceID and begins decoding. It blocks until the device is
// acquired, acquisition fails, or a Stop supersedes it. An acquisition that a
// Stop canceled but that has not yet released its device is waited for first,
// so two acquisitions never overlap.
func (c *Controller) Start(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)

	c.mu.Lock()
	for {
		if c.state.Busy() {
			state := c.state
			c.mu.Unlock()
			return fmt.Errorf("%w: session is %s", ErrAlreadyActive, state)
		}
		if c.startDone == nil {
			break
		}
		unwinding := c.startDone
		c.mu.Unlock()
		select {
		case <-unwinding:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		}
		c.mu.Lock()
	}
	startDone := make(chan struct{})
	c.startDone = startDone
	defer func() {
		c.mu.Lock()
		if c.startDone == startDone {
			c.startDone = nil
		}
		c.mu.Unlock()
		close(startDone)
	}()
	c.gen++
	gen := c.gen
	var (
		acqCtx context.Context
		cancel context.CancelFunc
	)
	if c.startTimeout > 0 {
		acqCtx, cancel = context.WithTimeout(ctx, c.startTimeout)
	} else {
		acqCtx, cancel = context.WithCancel(ctx)
	}
	c.state = StateStarting
	c.reason = ""
	c.deviceID = deviceID
	c.sessionID = c.newID()
	c.cancelStart = cancel
	snap := c.snapshotLocked()
	c.mu.Unlock()

	logger := c.sessionLogger(snap)
	c.publishState(snap)
	logger.Debug("acquiring capture device",
		logging.String(logging.FieldEventType, "session_starting"),
		logging.Duration("start_timeout", c.startTimeout),
	)

	stream, lock, reason, err := c.acquire(acqCtx, deviceID)
	callerDone := ctx.Err() != nil
	cancel()

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		release(stream, lock)
		logger.Info("session start superseded", logging.String(logging.FieldEventType, "session_start_canceled"))
		return ErrCanceled
	}
	c.cancelStart = nil
	if err != nil && callerDone && errors.Is(err, context.Canceled) {
		c.gen++
		c.state = StateIdle
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.publishState(snap)
		logger.Info("session start canceled", logging.String(logging.FieldEventType, "session_start_canceled"))
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	if err != nil {
		c.state = StateFailed
		c.reason = reason
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.publishState(snap)
		logging.WarnWithContext(logger, "session start failed", "session_start_failed",
			logging.String("reason", reason),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, startHint(err)),
			logging.String(logging.FieldImpact, "no scans will be recorded until a session starts"),
		)
		return &StartError{DeviceID: deviceID, Reason: reason, Err: err}
	}

	done := make(chan struct{})
	c.state = StateActive
	c.stream = stream
	c.lock = lock
	c.pumpDone = done
	snap = c.snapshotLocked()
	c.mu.Unlock()

	c.publishState(snap)
	logger.Info("scan session active", logging.String(logging.FieldEventType, "session_active"))
	go c.pump(gen, snap, stream, done, logger)
	return nil
}

// Stop ends the session. Stopping an idle controller is a no-op; a pending
// Start is canceled and a failed session is reset to idle.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return nil
	case StateFailed:
		c.gen++
		c.state = StateIdle
		c.reason = ""
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publishState(snap)
		return nil
	case StateStarting:
		c.gen++
		cancel := c.cancelStart
		c.cancelStart = nil
		c.state = StateIdle
		snap := c.snapshotLocked()
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		c.publishState(snap)
		c.sessionLogger(snap).Info("pending session start canceled", logging.String(logging.FieldEventType, "session_start_canceled"))
		return nil
	case StateStopping:
		stopped := c.stopped
		c.mu.Unlock()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.gen++
	stream, lock, pumpDone := c.stream, c.lock, c.pumpDone
	c.stream, c.lock, c.pumpDone = nil, nil, nil
	stopped := make(chan struct{})
	c.stopped = stopped
	c.state = StateStopping
	snap := c.snapshotLocked()
	c.mu.Unlock()

	logger := c.sessionLogger(snap)
	c.publishState(snap)

	closeErr := stream.Close()
	if pumpDone != nil {
		<-pumpDone
	}
	if err := lock.Release(); err != nil {
		logger.Debug("device lock release failed", logging.Error(err))
	}

	c.mu.Lock()
	c.state = StateIdle
	c.stopped = nil
	snap = c.snapshotLocked()
	c.mu.Unlock()
	close(stopped)

	c.publishState(snap)
	logger.Info("scan session stopped", logging.String(logging.FieldEventType, "session_stopped"))
	if closeErr != nil {
		return fmt.Errorf("close decoder stream: %w", closeErr)
	}
	return nil
}

// Switch stops the current session and starts a new one on deviceID.
func (c *Controller) Switch(ctx context.Context, deviceID string) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}
	return c.Start(ctx, deviceID)
}

func (c *Controller) acquire(ctx context.Context, deviceID string) (decoder.Stream, *capture.DeviceLock, string, error) {
	device, err := c.devices.Resolve(ctx, deviceID)
	if err != nil {
		return nil, nil, "unknown device", err
	}

	var lock *capture.DeviceLock
	if c.lockDir != "" {
		lock, err = capture.LockDevice(c.lockDir, device.ID)
		if err != nil {
			if errors.Is(err, capture.ErrDeviceBusy) {
				return nil, nil, "device busy", err
			}
			return nil, nil, "device lock failed", err
		}
	}

	stream, err := c.provider.Open(ctx, device.Path, c.streamCfg)
	if err != nil {
		_ = lock.Release()
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, nil, "acquisition timed out", err
		case errors.Is(err, context.Canceled):
			return nil, nil, "acquisition canceled", err
		default:
			return nil, nil, "device acquisition rejected", err
		}
	}
	return stream, lock, "", nil
}

func (c *Controller) pump(gen uint64, snap Snapshot, stream decoder.Stream, done chan struct{}, logger *slog.Logger) {
	defer close(done)
	for evt := range stream.Events() {
		c.handleDecode(gen, snap, evt, logger)
	}
	<-stream.Done()

	c.mu.Lock()
	if c.gen != gen || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	streamErr := stream.Err()
	reason := "decoder stream ended"
	if streamErr != nil {
		reason = streamErr.Error()
	}
	c.gen++
	lock := c.lock
	c.stream, c.lock, c.pumpDone = nil, nil, nil
	c.state = StateFailed
	c.reason = reason
	failed := c.snapshotLocked()
	c.mu.Unlock()

	_ = lock.Release()
	c.publishState(failed)
	logging.WarnWithContext(logger, "decoder stream ended unexpectedly", "session_stream_lost",
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "check that the camera is still connected"),
		logging.String(logging.FieldImpact, "scanning stopped"),
	)
}

func (c *Controller) handleDecode(gen uint64, snap Snapshot, evt decoder.RawEvent, logger *slog.Logger) {
	observed := evt.ObservedAt
	if observed.IsZero() {
		observed = c.now()
	}
	format := decoder.NormalizeFormat(evt.Format)

	c.mu.Lock()
	if c.gen != gen || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	result, accepted := c.results.Record(evt.Payload, format, observed, func() ScanResult {
		return ScanResult{
			ID:         c.newID(),
			Payload:    evt.Payload,
			Format:     format,
			ObservedAt: observed,
			DeviceID:   snap.DeviceID,
		}
	})
	c.mu.Unlock()

	if !accepted {
		logger.Debug("duplicate decode suppressed", logging.String("format", format))
		return
	}
	logger.Info("scan accepted",
		logging.String(logging.FieldEventType, "scan_accepted"),
		logging.String("format", result.Format),
		logging.Int("payload_bytes", len(result.Payload)),
		logging.Payload(result.Payload),
	)
	r := result
	c.hub.Publish(Event{Kind: EventResult, Snapshot: snap, Result: &r})
	if c.notifier != nil {
		go c.notify(result, logger)
	}
}

func (c *Controller) notify(result ScanResult, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), c.feedbackTimeout)
	defer cancel()
	if err := c.notifier.Notify(ctx, result); err != nil {
		logger.Debug("scan feedback failed", logging.Error(err))
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:     c.state,
		Reason:    c.reason,
		DeviceID:  c.deviceID,
		SessionID: c.sessionID,
	}
}

func (c *Controller) publishState(snap Snapshot) {
	c.hub.Publish(Event{Kind: EventState, Snapshot: snap})
}

func (c *Controller) sessionLogger(snap Snapshot) *slog.Logger {
	ctx := logging.WithSessionID(context.Background(), snap.SessionID)
	ctx = logging.WithDeviceID(ctx, snap.DeviceID)
	return logging.WithContext(ctx, c.logger)
}

func release(stream decoder.Stream, lock *capture.DeviceLock) {
	if stream != nil {
		_ = stream.Close()
	}
	_ = lock.Release()
}

func startHint(err error) string {
	switch {
	case errors.Is(err, capture.ErrUnknownDevice):
		return "run 'scantest devices' to list available cameras"
	case errors.Is(err, capture.ErrDeviceBusy):
		return "close other scanning sessions using this camera"
	case errors.Is(err, context.DeadlineExceeded):
		return "raise scanner.start_timeout or check the camera connection"
	default:
		return "check camera permissions and the decoder binary"
	}
}
