package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir      string `toml:"log_dir"`
	LockDir     string `toml:"lock_dir"`
	SnapshotDir string `toml:"snapshot_dir"`
}

// Capture contains configuration for camera discovery and stream settings.
type Capture struct {
	// Device pins a device id (e.g. "video2"); empty selects the default.
	Device       string   `toml:"device"`
	SysfsRoot    string   `toml:"sysfs_root"`
	DevRoot      string   `toml:"dev_root"`
	PreferLabels []string `toml:"prefer_labels"`
	FrameRate    int      `toml:"frame_rate"`
	Width        int      `toml:"width"`
	Height       int      `toml:"height"`
	// Region is the detection region as "x,y,w,h"; empty scans the full frame.
	Region string `toml:"region"`
}

// Scanner contains configuration for the decoder process and result handling.
type Scanner struct {
	DecoderBinary  string   `toml:"decoder_binary"`
	Symbologies    []string `toml:"symbologies"`
	ExtraArgs      []string `toml:"extra_args"`
	DebounceMillis int      `toml:"debounce_ms"`
	HistoryLimit   int      `toml:"history_limit"`
	StartTimeout   int      `toml:"start_timeout"`
}

// Feedback contains configuration for the per-scan host feedback channel.
type Feedback struct {
	Enabled        bool   `toml:"enabled"`
	Command        string `toml:"command"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Clipboard contains configuration for copying scan payloads.
type Clipboard struct {
	Command string `toml:"command"`
	// OSC52 allows the terminal escape fallback when no clipboard tool exists.
	OSC52 bool `toml:"osc52"`
}

// Snapshot contains configuration for single-frame photo capture.
type Snapshot struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	Timeout      int    `toml:"timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for scantest.
//
// Configuration sections by subsystem:
//   - Paths: log, lock, and snapshot directories
//   - Capture: device selection and stream settings passed to the decoder
//   - Scanner: decoder process, debounce window, and history limit
//   - Feedback: notification fired once per accepted scan
//   - Clipboard: copy command and terminal fallback
//   - Snapshot: ffmpeg single-frame capture
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Capture   Capture   `toml:"capture"`
	Scanner   Scanner   `toml:"scanner"`
	Feedback  Feedback  `toml:"feedback"`
	Clipboard Clipboard `toml:"clipboard"`
	Snapshot  Snapshot  `toml:"snapshot"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scantest/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config %q: %w", expanded, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scantest.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for CLI operation. The
// snapshot directory is created lazily by the snapshot writer.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.LockDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DebounceWindow returns the decode filter cool-down as a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Scanner.DebounceMillis) * time.Millisecond
}

// StartTimeout bounds how long device acquisition may take.
func (c *Config) StartTimeout() time.Duration {
	return time.Duration(c.Scanner.StartTimeout) * time.Second
}

// FeedbackTimeout bounds a single feedback delivery.
func (c *Config) FeedbackTimeout() time.Duration {
	return time.Duration(c.Feedback.RequestTimeout) * time.Second
}

// SnapshotTimeout bounds a single frame capture.
func (c *Config) SnapshotTimeout() time.Duration {
	return time.Duration(c.Snapshot.Timeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultLockDir() string {
	if base, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "scantest")
	}
	return filepath.Join(os.TempDir(), "scantest-locks")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
