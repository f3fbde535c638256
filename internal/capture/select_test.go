package capture

import "testing"

func TestSelectDefault(t *testing.T) {
	tests := []struct {
		name    string
		devices []CaptureDevice
		want    string
	}{
		{
			name: "prefers back camera",
			devices: []CaptureDevice{
				{ID: "1", Label: "Front Camera"},
				{ID: "2", Label: "Back Camera"},
			},
			want: "2",
		},
		{
			name: "matches rear case-insensitively",
			devices: []CaptureDevice{
				{ID: "video0", Label: "Integrated Webcam"},
				{ID: "video2", Label: "USB REAR cam"},
			},
			want: "video2",
		},
		{
			name: "first match wins",
			devices: []CaptureDevice{
				{ID: "a", Label: "rear left"},
				{ID: "b", Label: "back right"},
			},
			want: "a",
		},
		{
			name: "falls back to first device",
			devices: []CaptureDevice{
				{ID: "video0", Label: "HD Webcam"},
				{ID: "video4", Label: "Capture Card"},
			},
			want: "video0",
		},
		{
			name: "empty list yields none",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectDefault(tt.devices); got != tt.want {
				t.Fatalf("SelectDefault() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectPreferredCustomLabels(t *testing.T) {
	devices := []CaptureDevice{
		{ID: "video0", Label: "Front Camera"},
		{ID: "video2", Label: "Document Camera"},
	}
	if got := SelectPreferred(devices, []string{"DOCUMENT"}); got != "video2" {
		t.Fatalf("SelectPreferred() = %q, want video2", got)
	}
	if got := SelectPreferred(devices, nil); got != "video0" {
		t.Fatalf("SelectPreferred(nil) = %q, want video0", got)
	}
}

func TestNextDevice(t *testing.T) {
	devices := []CaptureDevice{
		{ID: "video0", Label: "Front Camera"},
		{ID: "video2", Label: "Back Camera"},
		{ID: "video4", Label: "Capture"},
	}
	if got := NextDevice(devices, "video0"); got != "video2" {
		t.Fatalf("NextDevice(video0) = %q", got)
	}
	if got := NextDevice(devices, "/dev/video4"); got != "video0" {
		t.Fatalf("NextDevice should wrap, got %q", got)
	}
	if got := NextDevice(devices, "missing"); got != "video2" {
		t.Fatalf("unknown current should select default, got %q", got)
	}
	if got := NextDevice(nil, "video0"); got != "" {
		t.Fatalf("empty list should yield none, got %q", got)
	}
}
