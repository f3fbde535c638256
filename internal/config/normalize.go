package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeScanner()
	c.normalizeFeedback()
	c.Clipboard.Command = strings.TrimSpace(c.Clipboard.Command)
	c.normalizeSnapshot()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = defaultLockDir()
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SnapshotDir) == "" {
		c.Paths.SnapshotDir = defaultSnapshotDir
	}
	if c.Paths.SnapshotDir, err = expandPath(c.Paths.SnapshotDir); err != nil {
		return fmt.Errorf("paths.snapshot_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.Device = strings.TrimPrefix(strings.TrimSpace(c.Capture.Device), "/dev/")
	c.Capture.SysfsRoot = strings.TrimSpace(c.Capture.SysfsRoot)
	if c.Capture.SysfsRoot == "" {
		c.Capture.SysfsRoot = defaultSysfsRoot
	}
	c.Capture.DevRoot = strings.TrimSpace(c.Capture.DevRoot)
	if c.Capture.DevRoot == "" {
		c.Capture.DevRoot = defaultDevRoot
	}
	labels := make([]string, 0, len(c.Capture.PreferLabels))
	for _, label := range c.Capture.PreferLabels {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	if len(labels) == 0 {
		labels = []string{"back", "rear"}
	}
	c.Capture.PreferLabels = labels
	c.Capture.Region = strings.ReplaceAll(strings.TrimSpace(c.Capture.Region), " ", "")
}

func (c *Config) normalizeScanner() {
	c.Scanner.DecoderBinary = strings.TrimSpace(c.Scanner.DecoderBinary)
	if c.Scanner.DecoderBinary == "" {
		c.Scanner.DecoderBinary = defaultDecoderBinary
	}
	symbologies := make([]string, 0, len(c.Scanner.Symbologies))
	for _, sym := range c.Scanner.Symbologies {
		if sym = strings.ToLower(strings.TrimSpace(sym)); sym != "" {
			symbologies = append(symbologies, sym)
		}
	}
	c.Scanner.Symbologies = symbologies
	if c.Scanner.DebounceMillis == 0 {
		c.Scanner.DebounceMillis = defaultDebounceMillis
	}
	if c.Scanner.StartTimeout == 0 {
		c.Scanner.StartTimeout = defaultStartTimeout
	}
}

func (c *Config) normalizeFeedback() {
	c.Feedback.NtfyTopic = strings.TrimSpace(c.Feedback.NtfyTopic)
	if c.Feedback.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SCANTEST_NTFY_TOPIC"); ok {
			c.Feedback.NtfyTopic = strings.TrimSpace(value)
		}
	}
	c.Feedback.Command = strings.TrimSpace(c.Feedback.Command)
	if c.Feedback.RequestTimeout <= 0 {
		c.Feedback.RequestTimeout = defaultFeedbackTimeout
	}
}

func (c *Config) normalizeSnapshot() {
	c.Snapshot.FFmpegBinary = strings.TrimSpace(c.Snapshot.FFmpegBinary)
	if c.Snapshot.FFmpegBinary == "" {
		c.Snapshot.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Snapshot.Timeout <= 0 {
		c.Snapshot.Timeout = defaultSnapshotTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
