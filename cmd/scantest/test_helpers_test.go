package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"scantest/internal/capture"
	"scantest/internal/config"
	"scantest/internal/decoder"
	"scantest/internal/logging"
	"scantest/internal/session"
	"scantest/internal/testsupport"
)

type staticEnumerator struct {
	devices []capture.CaptureDevice
}

func (s staticEnumerator) Enumerate(context.Context) ([]capture.CaptureDevice, error) {
	return s.devices, nil
}

type scriptedStream struct {
	events chan decoder.RawEvent
	done   chan struct{}
	once   sync.Once
}

func (s *scriptedStream) Events() <-chan decoder.RawEvent { return s.events }
func (s *scriptedStream) Done() <-chan struct{}           { return s.done }
func (s *scriptedStream) Err() error                      { return nil }

func (s *scriptedStream) Close() error {
	s.once.Do(func() {
		close(s.events)
		close(s.done)
	})
	return nil
}

type scriptedProvider struct {
	mu     sync.Mutex
	events []decoder.RawEvent
	opened []string
}

func (p *scriptedProvider) Open(_ context.Context, devicePath string, _ decoder.StreamConfig) (decoder.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, devicePath)
	s := &scriptedStream{
		events: make(chan decoder.RawEvent, len(p.events)+1),
		done:   make(chan struct{}),
	}
	for _, evt := range p.events {
		s.events <- evt
	}
	return s, nil
}

type recordingCopier struct {
	mu     sync.Mutex
	copied []string
}

func (c *recordingCopier) Copy(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copied = append(c.copied, text)
	return nil
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	provider   *scriptedProvider
	copier     *recordingCopier
	devices    []capture.CaptureDevice
}

var cliTestDevices = []capture.CaptureDevice{
	{ID: "video0", Label: "Integrated Webcam", Path: "/dev/video0", Driver: "uvcvideo"},
	{ID: "video2", Label: "USB Rear Camera", Path: "/dev/video2", Driver: "uvcvideo"},
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("SCANTEST_NTFY_TOPIC", "")

	configPath := filepath.Join(homeDir, ".config", "scantest", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		provider:   &scriptedProvider{},
		copier:     &recordingCopier{},
		devices:    cliTestDevices,
	}
}

func (e *cliTestEnv) deps() dependencies {
	return dependencies{
		enumerator: func(*config.Config, *slog.Logger) capture.Enumerator {
			return staticEnumerator{devices: e.devices}
		},
		provider: func(*config.Config, *slog.Logger) decoder.Provider {
			return e.provider
		},
		notifier: func(*config.Config) session.Notifier { return nil },
		copier: func(*config.Config, *slog.Logger) copier {
			return e.copier
		},
		logger: func(*config.Config) (*slog.Logger, error) {
			return logging.NewNop(), nil
		},
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWithDeps(env.deps())
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nlog_dir = %q\nlock_dir = %q\nsnapshot_dir = %q\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.LogDir,
		cfg.Paths.LockDir,
		cfg.Paths.SnapshotDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
