package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"scantest/internal/capture"
	"scantest/internal/logging"
	"scantest/internal/testsupport"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func TestBuildArgs(t *testing.T) {
	got := BuildArgs("/dev/video0", 0, 0)
	want := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2", "-i", "/dev/video0", "-frames:v", "1", "-f", "image2", "-c:v", "mjpeg", "-"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}

	sized := BuildArgs("/dev/video2", 1280, 720)
	if sized[5] != "-video_size" || sized[6] != "1280x720" {
		t.Fatalf("sized args = %v", sized)
	}
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 10, 17, 8, 30, 5, 123_000_000, time.UTC)
	if got := FileName(ts); got != "photo-20261017-083005.123.jpg" {
		t.Fatalf("FileName = %q", got)
	}
}

func newTestCapturer(t *testing.T, run runner) (*Capturer, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	c := New(cfg, logging.NewNop())
	c.run = run
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return c, cfg.Paths.SnapshotDir
}

func TestCaptureSavesPhoto(t *testing.T) {
	var gotArgs []string
	c, dir := newTestCapturer(t, func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffmpeg" {
			t.Errorf("binary = %q", name)
		}
		gotArgs = args
		return jpegBytes, nil
	})

	device := capture.CaptureDevice{ID: "video0", Path: "/dev/video0"}
	path, err := c.Capture(context.Background(), device)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if want := filepath.Join(dir, "photo-20260102-030405.000.jpg"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(jpegBytes) {
		t.Fatal("saved data mismatch")
	}
	if gotArgs[len(gotArgs)-1] != "-" {
		t.Fatalf("expected stdout output, args %v", gotArgs)
	}

	second, err := c.Capture(context.Background(), device)
	if err != nil {
		t.Fatalf("second Capture: %v", err)
	}
	if filepath.Base(second) != "photo-20260102-030405.000-1.jpg" {
		t.Fatalf("second path = %q", second)
	}
}

func TestCaptureRejectsNonJPEG(t *testing.T) {
	c, dir := newTestCapturer(t, func(context.Context, string, ...string) ([]byte, error) {
		return []byte("not an image"), nil
	})
	_, err := c.Capture(context.Background(), capture.CaptureDevice{ID: "video0", Path: "/dev/video0"})
	if !errors.Is(err, ErrNotJPEG) {
		t.Fatalf("Capture err = %v, want ErrNotJPEG", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Fatal("snapshot directory should not be created on failure")
	}
}

func TestCaptureHoldsDeviceLock(t *testing.T) {
	c, _ := newTestCapturer(t, func(context.Context, string, ...string) ([]byte, error) {
		return jpegBytes, nil
	})
	held, err := capture.LockDevice(c.lockDir, "video0")
	if err != nil {
		t.Fatalf("LockDevice: %v", err)
	}
	defer held.Release()

	_, err = c.Capture(context.Background(), capture.CaptureDevice{ID: "video0", Path: "/dev/video0"})
	if !errors.Is(err, capture.ErrDeviceBusy) {
		t.Fatalf("Capture err = %v, want ErrDeviceBusy", err)
	}
}

func TestCaptureWithStubBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	bin := testsupport.WriteScript(t, filepath.Join(testsupport.BaseDir(cfg), "bin", "ffmpeg"),
		"printf '\\377\\330\\377\\340JFIF'\n")
	cfg.Snapshot.FFmpegBinary = bin
	c := New(cfg, logging.NewNop())

	path, err := c.Capture(context.Background(), capture.CaptureDevice{ID: "video0", Path: "/dev/video0"})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !isJPEG(data) {
		t.Fatalf("saved file is not JPEG: %v", data)
	}
}
