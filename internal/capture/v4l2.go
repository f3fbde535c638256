package capture

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// vidiocQueryCap is _IOR('V', 0, struct v4l2_capability).
	vidiocQueryCap = 0x80685600

	capVideoCapture      = 0x00000001
	capVideoCaptureMPlex = 0x00001000
	capDeviceCaps        = 0x80000000

	v4l2CapabilitySize = 104
)

// v4l2Capability mirrors the fields of struct v4l2_capability that scantest reads.
type v4l2Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Capabilities uint32
	DeviceCaps   uint32
}

// CanCapture reports whether the node itself (not just its parent device)
// delivers video frames.
func (c v4l2Capability) CanCapture() bool {
	caps := c.Capabilities
	if caps&capDeviceCaps != 0 {
		caps = c.DeviceCaps
	}
	return caps&(capVideoCapture|capVideoCaptureMPlex) != 0
}

func queryCapability(path string) (v4l2Capability, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return v4l2Capability{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer unix.Close(fd) //nolint:errcheck

	var raw [v4l2CapabilitySize]byte
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(vidiocQueryCap), uintptr(unsafe.Pointer(&raw[0])))
	if errno != 0 {
		return v4l2Capability{}, fmt.Errorf("ioctl VIDIOC_QUERYCAP on %s: %w", path, errno)
	}
	return parseCapability(raw[:])
}

// parseCapability decodes the kernel struct layout:
// driver[16] card[32] bus_info[32] version u32 capabilities u32 device_caps u32 reserved[3]u32.
func parseCapability(raw []byte) (v4l2Capability, error) {
	if len(raw) < v4l2CapabilitySize {
		return v4l2Capability{}, fmt.Errorf("short v4l2_capability: %d bytes", len(raw))
	}
	return v4l2Capability{
		Driver:       cString(raw[0:16]),
		Card:         cString(raw[16:48]),
		BusInfo:      cString(raw[48:80]),
		Capabilities: binary.NativeEndian.Uint32(raw[84:88]),
		DeviceCaps:   binary.NativeEndian.Uint32(raw[88:92]),
	}, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}
