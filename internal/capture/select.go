package capture

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultPreferLabels holds the label fragments that mark a rear-facing camera.
var DefaultPreferLabels = []string{"back", "rear"}

// SelectDefault picks the first device whose label contains "back" or "rear"
// (case-insensitive), else the first device, else "".
func SelectDefault(devices []CaptureDevice) string {
	return SelectPreferred(devices, DefaultPreferLabels)
}

// SelectPreferred is SelectDefault with a caller-supplied label heuristic.
func SelectPreferred(devices []CaptureDevice, prefer []string) string {
	if len(devices) == 0 {
		return ""
	}
	fold := cases.Fold()
	needles := make([]string, 0, len(prefer))
	for _, p := range prefer {
		if p = strings.TrimSpace(p); p != "" {
			needles = append(needles, fold.String(p))
		}
	}
	for _, dev := range devices {
		label := fold.String(dev.Label)
		for _, needle := range needles {
			if strings.Contains(label, needle) {
				return dev.ID
			}
		}
	}
	return devices[0].ID
}

// NextDevice returns the id following current in enumeration order, wrapping
// around. An unknown current yields the default selection.
func NextDevice(devices []CaptureDevice, current string) string {
	if len(devices) == 0 {
		return ""
	}
	current = normalizeID(current)
	for i, dev := range devices {
		if dev.ID == current {
			return devices[(i+1)%len(devices)].ID
		}
	}
	return SelectDefault(devices)
}
