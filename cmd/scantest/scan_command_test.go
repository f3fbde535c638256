package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"scantest/internal/capture"
	"scantest/internal/config"
	"scantest/internal/decoder"
	"scantest/internal/logging"
	"scantest/internal/session"
	"scantest/internal/testsupport"
)

func TestScanPrintsDebouncedResults(t *testing.T) {
	env := setupCLITestEnv(t)
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	env.provider.events = []decoder.RawEvent{
		{Payload: "5901234123457", Format: "EAN-13", ObservedAt: base},
		{Payload: "5901234123457", Format: "EAN-13", ObservedAt: base.Add(300 * time.Millisecond)},
		{Payload: "https://example.com", Format: "QR-CODE", ObservedAt: base.Add(time.Second)},
	}

	out, errOut, err := runCLI(t, env, "scan", "--count", "2", "--copy", "--timeout", "10s", "--summary")
	if err != nil {
		t.Fatalf("scan: %v\nstderr: %s", err, errOut)
	}
	if strings.Count(out, "5901234123457") != 2 {
		t.Fatalf("expected EAN once in stream and once in summary:\n%s", out)
	}
	requireContains(t, out, "https://example.com")
	requireContains(t, out, "QR-CODE")
	requireContains(t, errOut, "video2:")
	requireContains(t, errOut, "scanning")

	if got := env.provider.opened; len(got) != 1 || got[0] != "/dev/video2" {
		t.Fatalf("opened = %v, want rear camera", got)
	}
	if got := strings.Join(env.copier.copied, ","); got != "5901234123457,https://example.com" {
		t.Fatalf("copied = %q", got)
	}
}

func TestScanJSONLines(t *testing.T) {
	env := setupCLITestEnv(t)
	env.provider.events = []decoder.RawEvent{
		{Payload: "hello", Format: "", ObservedAt: time.Now()},
	}

	out, _, err := runCLI(t, env, "scan", "--json", "--count", "1", "--device", "video0", "--timeout", "10s")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var result session.ScanResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &result); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if result.Payload != "hello" || result.Format != decoder.UnknownFormat || result.DeviceID != "video0" || result.ID == "" {
		t.Fatalf("result = %+v", result)
	}
}

func TestScanTimeoutEndsCleanly(t *testing.T) {
	env := setupCLITestEnv(t)

	start := time.Now()
	if _, errOut, err := runCLI(t, env, "scan", "--timeout", "100ms"); err != nil {
		t.Fatalf("scan: %v\nstderr: %s", err, errOut)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("scan did not honor --timeout")
	}
}

func TestScanUnknownDevice(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "scan", "--device", "video7", "--timeout", "5s")
	if !errors.Is(err, session.ErrStart) {
		t.Fatalf("scan err = %v, want ErrStart", err)
	}
	requireContains(t, err.Error(), "unknown device")
}

func TestScanRejectsNegativeCount(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "scan", "--count", "-1"); err == nil {
		t.Fatal("expected error for negative count")
	}
}

func TestRenderResultTable(t *testing.T) {
	out := renderResultTable([]session.ScanResult{
		{Payload: "B", Format: "QR-CODE", DeviceID: "video0", ObservedAt: time.Now()},
		{Payload: strings.Repeat("x", 120), Format: "CODE-128", DeviceID: "video0", ObservedAt: time.Now()},
	})
	requireContains(t, out, "Payload")
	requireContains(t, out, "QR-CODE")
	if strings.Contains(out, strings.Repeat("x", 61)) {
		t.Fatal("expected long payload to be trimmed")
	}
}

func newHotplugRunner(t *testing.T, cfg *config.Config, deviceFlag string) (*scanRunner, *scriptedProvider, *bytes.Buffer) {
	t.Helper()
	registry := capture.NewRegistry(staticEnumerator{devices: cliTestDevices}, logging.NewNop())
	provider := &scriptedProvider{}
	controller, err := session.NewController(session.Options{
		Devices:  registry,
		Provider: provider,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(func() { _ = controller.Stop(context.Background()) })

	var errOut bytes.Buffer
	return &scanRunner{
		controller: controller,
		registry:   registry,
		logger:     logging.NewNop(),
		out:        io.Discard,
		errOut:     &errOut,
		deviceFlag: deviceFlag,
		cfg:        cfg,
	}, provider, &errOut
}

func TestHandleHotplugAddRestartsOnChosenCamera(t *testing.T) {
	tests := []struct {
		name   string
		flag   string
		pin    string
		prefer []string
		want   string
	}{
		{name: "config pin", pin: "video0", prefer: []string{"rear"}, want: "/dev/video0"},
		{name: "flag beats pin", flag: "video2", pin: "video0", want: "/dev/video2"},
		{name: "empty prefer list falls back to rear heuristic", prefer: []string{}, want: "/dev/video2"},
		{name: "configured labels", prefer: []string{"integrated"}, want: "/dev/video0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithDevice(tt.pin))
			cfg.Capture.PreferLabels = tt.prefer
			runner, provider, _ := newHotplugRunner(t, cfg, tt.flag)

			runner.handleHotplug(context.Background(), capture.HotplugEvent{Action: "add", DeviceID: "video0"})

			if got := provider.opened; len(got) != 1 || got[0] != tt.want {
				t.Fatalf("opened = %v, want [%s]", got, tt.want)
			}
			if state := runner.controller.Snapshot().State; state != session.StateActive {
				t.Fatalf("state = %s, want active", state)
			}
		})
	}
}

func TestHandleHotplugAddIgnoredWhileActive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner, provider, _ := newHotplugRunner(t, cfg, "video2")
	if err := runner.controller.Start(context.Background(), "video2"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	runner.handleHotplug(context.Background(), capture.HotplugEvent{Action: "add", DeviceID: "video0"})

	if got := provider.opened; len(got) != 1 {
		t.Fatalf("opened = %v, want only the initial session", got)
	}
}

func TestHandleHotplugRemoveStopsOnlyCurrentCamera(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner, _, errOut := newHotplugRunner(t, cfg, "")
	if err := runner.controller.Start(context.Background(), "video2"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	runner.handleHotplug(context.Background(), capture.HotplugEvent{Action: "remove", DeviceID: "video0"})
	if state := runner.controller.Snapshot().State; state != session.StateActive {
		t.Fatalf("state after unrelated removal = %s, want active", state)
	}
	if errOut.Len() != 0 {
		t.Fatalf("unexpected status output: %q", errOut.String())
	}

	runner.handleHotplug(context.Background(), capture.HotplugEvent{Action: "remove", DeviceID: "video2"})
	if state := runner.controller.Snapshot().State; state != session.StateIdle {
		t.Fatalf("state after removal = %s, want idle", state)
	}
	requireContains(t, errOut.String(), "camera removed")
}
