package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrDeviceBusy reports that another session or process holds the camera.
var ErrDeviceBusy = errors.New("device busy")

// DeviceLock is an exclusive advisory lock on one camera.
type DeviceLock struct {
	path string
	lock *flock.Flock
}

// LockDevice takes a non-blocking exclusive lock for deviceID under lockDir.
func LockDevice(lockDir, deviceID string) (*DeviceLock, error) {
	deviceID = normalizeID(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: empty device id", ErrUnknownDevice)
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := filepath.Join(lockDir, deviceID+".lock")
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is in use by another session", ErrDeviceBusy, deviceID)
	}
	return &DeviceLock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *DeviceLock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release drops the lock. Releasing a nil or already released lock is a no-op.
func (l *DeviceLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	err := l.lock.Unlock()
	l.lock = nil
	return err
}
