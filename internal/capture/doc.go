// Package capture discovers V4L2 camera devices and arbitrates access to them.
//
// The Registry enumerates video4linux nodes through udev's sysfs view, keeps
// only nodes that advertise video capture, labels them with the driver's card
// name, and picks a default (a back/rear-facing camera when one is labelled as
// such). A netlink hot-plug monitor reports cameras being attached or removed
// so callers can re-enumerate, and per-device flock locks keep two sessions or
// processes from opening the same camera.
package capture
