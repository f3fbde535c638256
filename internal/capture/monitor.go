package capture

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"scantest/internal/logging"
)

// HotplugEvent reports a camera node appearing or disappearing.
type HotplugEvent struct {
	Action   string
	DeviceID string
}

// HotplugMonitor listens for udev netlink events on video4linux nodes and
// invokes a callback for each add/remove.
type HotplugMonitor struct {
	logger  *slog.Logger
	handler func(ctx context.Context, event HotplugEvent)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHotplugMonitor creates a monitor; handler may be nil.
func NewHotplugMonitor(logger *slog.Logger, handler func(ctx context.Context, event HotplugEvent)) *HotplugMonitor {
	return &HotplugMonitor{
		logger:  logging.NewComponentLogger(logger, "hotplug-monitor"),
		handler: handler,
	}
}

// Start begins listening for udev netlink events. Failing to open the netlink
// socket is not fatal: the caller can still re-enumerate manually.
func (m *HotplugMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; camera hot-plug will not be detected",
			"netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the process may open netlink sockets"),
			logging.String(logging.FieldImpact, "re-run device listing after plugging a camera"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true

	quit, done := m.quit, m.done
	go m.monitorLoop(ctx, conn, quit, done)

	m.logger.Info("hot-plug monitor started",
		logging.String(logging.FieldEventType, "hotplug_monitor_started"),
	)
	return nil
}

// Stop shuts down the monitor and waits for the event loop to exit.
func (m *HotplugMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.quit)
	done := m.done
	m.quit = nil
	m.running = false
	m.mu.Unlock()

	<-done

	m.mu.Lock()
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.mu.Unlock()

	m.logger.Info("hot-plug monitor stopped",
		logging.String(logging.FieldEventType, "hotplug_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *HotplugMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *HotplugMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, videoMatcher("add|remove"))

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "camera hot-plug may be missed"),
			)
		}
	}
}

func (m *HotplugMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	event, ok := toHotplugEvent(uevent)
	if !ok {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	m.logger.Info("camera hot-plug detected",
		logging.String(logging.FieldEventType, "camera_"+event.Action),
		logging.String(logging.FieldDeviceID, event.DeviceID),
	)
	if m.handler != nil {
		m.handler(ctx, event)
	}
}

func toHotplugEvent(uevent netlink.UEvent) (HotplugEvent, bool) {
	name := strings.TrimSpace(uevent.Env["DEVNAME"])
	if name == "" {
		// DEVPATH ends in the node name, e.g. /devices/.../video4linux/video0.
		devpath := strings.TrimSpace(uevent.Env["DEVPATH"])
		if devpath == "" {
			return HotplugEvent{}, false
		}
		name = filepath.Base(devpath)
	}
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" {
		return HotplugEvent{}, false
	}
	return HotplugEvent{Action: string(uevent.Action), DeviceID: name}, true
}
