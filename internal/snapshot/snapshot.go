// Package snapshot captures a single JPEG frame from a camera with ffmpeg.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scantest/internal/capture"
	"scantest/internal/config"
	"scantest/internal/fileutil"
	"scantest/internal/logging"
)

const fileTimeLayout = "20060102-150405.000"

// ErrNotJPEG reports that ffmpeg exited cleanly but produced no JPEG data.
var ErrNotJPEG = errors.New("capture produced no JPEG image")

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Capturer grabs still frames and saves them as photo-<timestamp>.jpg.
type Capturer struct {
	binary  string
	dir     string
	lockDir string
	width   int
	height  int
	timeout time.Duration
	run     runner
	now     func() time.Time
	logger  *slog.Logger
}

// New builds a Capturer from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Capturer {
	return &Capturer{
		binary:  cfg.Snapshot.FFmpegBinary,
		dir:     cfg.Paths.SnapshotDir,
		lockDir: cfg.Paths.LockDir,
		width:   cfg.Capture.Width,
		height:  cfg.Capture.Height,
		timeout: cfg.SnapshotTimeout(),
		run:     runFFmpeg,
		now:     time.Now,
		logger:  logging.NewComponentLogger(logger, "snapshot"),
	}
}

// BuildArgs renders the ffmpeg command line that writes one MJPEG frame to stdout.
func BuildArgs(devicePath string, width, height int) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2"}
	if width > 0 && height > 0 {
		args = append(args, "-video_size", strconv.Itoa(width)+"x"+strconv.Itoa(height))
	}
	return append(args, "-i", devicePath, "-frames:v", "1", "-f", "image2", "-c:v", "mjpeg", "-")
}

// FileName returns the photo name for a capture taken at t.
func FileName(t time.Time) string {
	return "photo-" + t.Format(fileTimeLayout) + ".jpg"
}

// Capture takes one photo from device and returns the saved path. The device
// lock is held for the duration so a running scan session is not disturbed.
func (c *Capturer) Capture(ctx context.Context, device capture.CaptureDevice) (string, error) {
	if c.lockDir != "" {
		lock, err := capture.LockDevice(c.lockDir, device.ID)
		if err != nil {
			return "", err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				c.logger.Debug("release device lock failed", logging.Error(err))
			}
		}()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := c.now()
	data, err := c.run(ctx, c.binary, BuildArgs(device.Path, c.width, c.height)...)
	if err != nil {
		logging.ErrorWithContext(c.logger, "snapshot capture failed", "snapshot_failed",
			logging.String(logging.FieldDeviceID, device.ID),
			logging.String(logging.FieldErrorHint, "check that the camera is not in use and ffmpeg supports v4l2"),
			logging.Error(err),
		)
		return "", fmt.Errorf("capture frame from %s: %w", device.ID, err)
	}
	if !isJPEG(data) {
		return "", fmt.Errorf("%w (%d bytes from %s)", ErrNotJPEG, len(data), device.ID)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}
	path := fileutil.UniquePath(filepath.Join(c.dir, FileName(started)))
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	c.logger.Info("snapshot saved",
		logging.String(logging.FieldDeviceID, device.ID),
		logging.String("path", path),
		logging.Int("bytes", len(data)),
	)
	return path, nil
}

func isJPEG(data []byte) bool {
	return len(data) > 3 && bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF})
}

func runFFmpeg(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return out, nil
}
