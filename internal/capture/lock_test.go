package capture

import (
	"errors"
	"testing"
)

func TestLockDeviceExclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := LockDevice(dir, "/dev/video0")
	if err != nil {
		t.Fatalf("LockDevice: %v", err)
	}

	if _, err := LockDevice(dir, "video0"); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("expected ErrDeviceBusy, got %v", err)
	}

	other, err := LockDevice(dir, "video2")
	if err != nil {
		t.Fatalf("locking a different device should succeed: %v", err)
	}
	defer other.Release() //nolint:errcheck

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("double release should be a no-op: %v", err)
	}

	again, err := LockDevice(dir, "video0")
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	_ = again.Release()
}

func TestLockDeviceRejectsEmptyID(t *testing.T) {
	if _, err := LockDevice(t.TempDir(), ""); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("expected ErrUnknownDevice, got %v", err)
	}
}
