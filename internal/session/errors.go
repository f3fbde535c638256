package session

import (
	"errors"
	"fmt"
)

var (
	// ErrStart reports that a session could not be brought up on a device.
	ErrStart = errors.New("session start failed")
	// ErrAlreadyActive reports a Start while another session is starting, active or stopping.
	ErrAlreadyActive = errors.New("session already active")
	// ErrCanceled reports a Start that was superseded by Stop or context cancellation.
	ErrCanceled = errors.New("session start canceled")
)

// StartError describes why device acquisition failed. It matches ErrStart
// and the underlying cause with errors.Is.
type StartError struct {
	DeviceID string
	Reason   string
	Err      error
}

func (e *StartError) Error() string {
	if e == nil {
		return ErrStart.Error()
	}
	msg := fmt.Sprintf("%s: %s", ErrStart.Error(), e.Reason)
	if e.DeviceID != "" {
		msg = fmt.Sprintf("%s (device %s)", msg, e.DeviceID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StartError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{ErrStart}
	}
	return []error{ErrStart, e.Err}
}
