package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"

	"scantest/internal/logging"
)

// videoNodePattern matches DEVNAME values of V4L2 nodes as reported by both the
// sysfs uevent files ("video0") and udev events ("/dev/video0").
const videoNodePattern = `^(/dev/)?video[0-9]+$`

var videoIndexPattern = regexp.MustCompile(`[0-9]+$`)

// ueventDevice is the subset of a sysfs device record the enumerator consumes.
type ueventDevice struct {
	KObj string
	Env  map[string]string
}

type deviceSource func(ctx context.Context) ([]ueventDevice, error)

type capabilityProbe func(path string) (v4l2Capability, error)

// SysfsEnumerator lists V4L2 capture nodes from sysfs and labels them with the
// driver-reported card name.
type SysfsEnumerator struct {
	sysfsRoot string
	devRoot   string
	logger    *slog.Logger
	source    deviceSource
	probe     capabilityProbe
}

// NewSysfsEnumerator builds an enumerator backed by the udev sysfs crawler.
func NewSysfsEnumerator(sysfsRoot, devRoot string, logger *slog.Logger) *SysfsEnumerator {
	if strings.TrimSpace(sysfsRoot) == "" {
		sysfsRoot = "/sys"
	}
	if strings.TrimSpace(devRoot) == "" {
		devRoot = "/dev"
	}
	return &SysfsEnumerator{
		sysfsRoot: sysfsRoot,
		devRoot:   devRoot,
		logger:    logging.NewComponentLogger(logger, "device-enumerator"),
		source:    crawlVideoDevices,
		probe:     queryCapability,
	}
}

// Enumerate walks sysfs for video4linux nodes and keeps those able to capture.
func (e *SysfsEnumerator) Enumerate(ctx context.Context) ([]CaptureDevice, error) {
	raw, err := e.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceEnumeration, err)
	}

	devices := make([]CaptureDevice, 0, len(raw))
	denied := 0
	for _, rd := range raw {
		name := filepath.Base(strings.TrimSpace(rd.Env["DEVNAME"]))
		if name == "" || name == "." {
			continue
		}
		dev := CaptureDevice{ID: name, Path: filepath.Join(e.devRoot, name)}

		capability, err := e.probe(dev.Path)
		switch {
		case err == nil:
			if !capability.CanCapture() {
				e.logger.Debug("skipping non-capture video node",
					logging.String(logging.FieldDeviceID, name),
					logging.String("card", capability.Card),
				)
				continue
			}
			dev.Label = capability.Card
			dev.Driver = capability.Driver
			dev.BusInfo = capability.BusInfo
		case errors.Is(err, fs.ErrPermission):
			denied++
			logging.WarnWithContext(e.logger, "camera access denied", "device_permission_denied",
				logging.String(logging.FieldDeviceID, name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "add the user to the video group"),
				logging.String(logging.FieldImpact, "camera not listed"),
			)
			continue
		default:
			e.logger.Debug("capability probe failed; using sysfs name",
				logging.String(logging.FieldDeviceID, name),
				logging.Error(err),
			)
		}
		if dev.Label == "" {
			dev.Label = e.sysfsName(name)
		}
		if dev.Label == "" {
			dev.Label = name
		}
		devices = append(devices, dev)
	}

	if len(devices) == 0 && denied > 0 {
		return nil, fmt.Errorf("%w: permission denied for %d video device(s)", ErrDeviceEnumeration, denied)
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return videoIndex(devices[i].ID) < videoIndex(devices[j].ID)
	})
	return devices, nil
}

func (e *SysfsEnumerator) sysfsName(node string) string {
	data, err := os.ReadFile(filepath.Join(e.sysfsRoot, "class", "video4linux", node, "name"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func videoIndex(id string) int {
	match := videoIndexPattern.FindString(id)
	if match == "" {
		return -1
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return -1
	}
	return n
}

// videoMatcher selects uevents for V4L2 nodes. ACTION is only present on
// netlink events; sysfs records are matched on their environment alone.
func videoMatcher(actions string) netlink.Matcher {
	rules := &netlink.RuleDefinitions{}
	rule := netlink.RuleDefinition{
		Env: map[string]string{
			"DEVNAME": videoNodePattern,
		},
	}
	if actions != "" {
		rule.Action = &actions
	}
	rules.AddRule(rule)
	return rules
}

// existingDevices starts the sysfs walk; swapped in tests.
var existingDevices = crawler.ExistingDevices

func crawlVideoDevices(ctx context.Context) ([]ueventDevice, error) {
	queue := make(chan crawler.Device)
	errs := make(chan error, 1)
	quit := existingDevices(queue, errs, videoMatcher(""))

	var (
		devices []ueventDevice
		walkErr error
	)
	for {
		select {
		case <-ctx.Done():
			close(quit)
			// The walker may be blocked handing over a device; let it reach
			// the quit check and close the queue.
			go func() {
				for range queue {
				}
			}()
			return nil, ctx.Err()
		case err := <-errs:
			if err != nil && walkErr == nil {
				walkErr = err
			}
		case dev, ok := <-queue:
			if !ok {
				if len(devices) == 0 && walkErr != nil {
					return nil, walkErr
				}
				return devices, nil
			}
			devices = append(devices, ueventDevice{KObj: dev.KObj, Env: dev.Env})
		}
	}
}
