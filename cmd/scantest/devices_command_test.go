package main

import (
	"encoding/json"
	"strings"
	"testing"

	"scantest/internal/capture"
)

func TestDevicesTableMarksRearCamera(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "devices")
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	requireContains(t, out, "USB Rear Camera")
	requireContains(t, out, "/dev/video0")

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "video2") && !strings.Contains(line, "yes") {
			t.Fatalf("expected rear camera row to be the default: %q", line)
		}
		if strings.Contains(line, "Integrated Webcam") && !strings.Contains(line, "no") {
			t.Fatalf("expected webcam row not to be the default: %q", line)
		}
	}
}

func TestDevicesJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "devices", "--json")
	if err != nil {
		t.Fatalf("devices --json: %v", err)
	}
	var views []deviceView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(views) != 2 || views[0].Selected || !views[1].Selected {
		t.Fatalf("views = %+v", views)
	}
}

func TestDevicesEmptyIsEnumerationError(t *testing.T) {
	env := setupCLITestEnv(t)
	env.devices = nil

	_, _, err := runCLI(t, env, "devices")
	if err == nil {
		t.Fatal("expected error without devices")
	}
	requireContains(t, err.Error(), capture.ErrDeviceEnumeration.Error())
}

func TestChooseDevice(t *testing.T) {
	env := setupCLITestEnv(t)
	cfg := env.cfg

	if got := chooseDevice("/dev/video0", cfg, cliTestDevices); got != "video0" {
		t.Fatalf("flag choice = %q", got)
	}
	if got := chooseDevice("", cfg, cliTestDevices); got != "video2" {
		t.Fatalf("heuristic choice = %q", got)
	}
	cfg.Capture.Device = "video0"
	if got := chooseDevice("", cfg, cliTestDevices); got != "video0" {
		t.Fatalf("config pin = %q", got)
	}
	if got := chooseDevice("", nil, nil); got != "" {
		t.Fatalf("no devices = %q", got)
	}
}
