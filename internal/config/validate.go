package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.FrameRate < 0 {
		return errors.New("capture.frame_rate must be zero or positive")
	}
	if c.Capture.Width < 0 || c.Capture.Height < 0 {
		return errors.New("capture.width and capture.height must be zero or positive")
	}
	if (c.Capture.Width == 0) != (c.Capture.Height == 0) {
		return errors.New("capture.width and capture.height must be set together")
	}
	if _, err := ParseRegion(c.Capture.Region); err != nil {
		return fmt.Errorf("capture.region: %w", err)
	}
	return nil
}

func (c *Config) validateScanner() error {
	if c.Scanner.DebounceMillis < 0 {
		return errors.New("scanner.debounce_ms must not be negative")
	}
	if c.Scanner.HistoryLimit < 0 {
		return errors.New("scanner.history_limit must be zero (unbounded) or positive")
	}
	if c.Scanner.StartTimeout < 0 {
		return errors.New("scanner.start_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// Region is a rectangular detection area in frame pixels.
type Region struct {
	X, Y, Width, Height int
}

// IsZero reports whether the region covers the full frame.
func (r Region) IsZero() bool {
	return r == Region{}
}

// ParseRegion parses an "x,y,w,h" detection region. An empty value yields the
// zero region.
func ParseRegion(value string) (Region, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Region{}, nil
	}
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("expected x,y,w,h, got %q", value)
	}
	nums := make([]int, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Region{}, fmt.Errorf("invalid number %q", part)
		}
		if n < 0 {
			return Region{}, fmt.Errorf("negative value %d", n)
		}
		nums[i] = n
	}
	if nums[2] == 0 || nums[3] == 0 {
		return Region{}, errors.New("width and height must be positive")
	}
	return Region{X: nums[0], Y: nums[1], Width: nums[2], Height: nums[3]}, nil
}
