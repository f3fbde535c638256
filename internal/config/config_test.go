package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"scantest/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(tempHome, "run"))
	t.Setenv("SCANTEST_NTFY_TOPIC", "")
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "scantest", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Paths.LockDir != filepath.Join(tempHome, "run", "scantest") {
		t.Fatalf("unexpected lock dir: %q", cfg.Paths.LockDir)
	}
	if cfg.Paths.SnapshotDir != filepath.Join(tempHome, "Pictures", "scantest") {
		t.Fatalf("unexpected snapshot dir: %q", cfg.Paths.SnapshotDir)
	}
	if cfg.DebounceWindow() != 2*time.Second {
		t.Fatalf("expected 2s debounce window, got %s", cfg.DebounceWindow())
	}
	if cfg.Scanner.DecoderBinary != "zbarcam" {
		t.Fatalf("unexpected decoder binary: %q", cfg.Scanner.DecoderBinary)
	}
	if len(cfg.Capture.PreferLabels) != 2 || cfg.Capture.PreferLabels[0] != "back" {
		t.Fatalf("unexpected prefer labels: %v", cfg.Capture.PreferLabels)
	}
	if cfg.Feedback.NtfyTopic != "" {
		t.Fatalf("expected empty ntfy topic, got %q", cfg.Feedback.NtfyTopic)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.LockDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "scantest.toml")

	type payload struct {
		Capture struct {
			Device string `toml:"device"`
			Region string `toml:"region"`
		} `toml:"capture"`
		Scanner struct {
			Symbologies    []string `toml:"symbologies"`
			DebounceMillis int      `toml:"debounce_ms"`
			HistoryLimit   int      `toml:"history_limit"`
		} `toml:"scanner"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Capture.Device = "/dev/video4"
	custom.Capture.Region = "10, 20, 300, 200"
	custom.Scanner.Symbologies = []string{" QRCode ", "ean13", ""}
	custom.Scanner.DebounceMillis = 750
	custom.Scanner.HistoryLimit = 25
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Capture.Device != "video4" {
		t.Fatalf("expected /dev prefix trimmed, got %q", cfg.Capture.Device)
	}
	if cfg.Capture.Region != "10,20,300,200" {
		t.Fatalf("unexpected region: %q", cfg.Capture.Region)
	}
	if got := strings.Join(cfg.Scanner.Symbologies, ","); got != "qrcode,ean13" {
		t.Fatalf("unexpected symbologies: %q", got)
	}
	if cfg.DebounceWindow() != 750*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", cfg.DebounceWindow())
	}
	if cfg.Scanner.HistoryLimit != 25 {
		t.Fatalf("unexpected history limit: %d", cfg.Scanner.HistoryLimit)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lower-cased log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "bad region", content: "[capture]\nregion = \"1,2,3\"\n", want: "capture.region"},
		{name: "zero width region", content: "[capture]\nregion = \"1,2,0,3\"\n", want: "capture.region"},
		{name: "half resolution", content: "[capture]\nwidth = 640\n", want: "set together"},
		{name: "negative history", content: "[scanner]\nhistory_limit = -1\n", want: "history_limit"},
		{name: "bad log format", content: "[logging]\nformat = \"xml\"\n", want: "logging.format"},
		{name: "bad log level", content: "[logging]\nlevel = \"trace\"\n", want: "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestNtfyTopicFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCANTEST_NTFY_TOPIC", " https://ntfy.example/scans ")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Feedback.NtfyTopic != "https://ntfy.example/scans" {
		t.Fatalf("expected topic from env, got %q", cfg.Feedback.NtfyTopic)
	}
}

func TestParseRegion(t *testing.T) {
	region, err := config.ParseRegion("0,0,640,480")
	if err != nil {
		t.Fatalf("ParseRegion: %v", err)
	}
	if region.Width != 640 || region.Height != 480 {
		t.Fatalf("unexpected region: %+v", region)
	}
	empty, err := config.ParseRegion("")
	if err != nil || !empty.IsZero() {
		t.Fatalf("expected zero region, got %+v err=%v", empty, err)
	}
	if _, err := config.ParseRegion("a,b,c,d"); err == nil {
		t.Fatal("expected error for non-numeric region")
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Scanner.DebounceMillis != 2000 {
		t.Fatalf("unexpected sample debounce: %d", cfg.Scanner.DebounceMillis)
	}
}
