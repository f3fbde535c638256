package textutil

import "testing"

func TestSanitizeTerminal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com", "https://example.com"},
		{"line1\nline2", "line1⏎line2"},
		{"a\tb", "a b"},
		{"\x1b]52;c;ZXZpbA==\x07", "·]52;c;ZXZpbA==·"},
		{"\x1b[2J", "·[2J"},
		{"Grüße", "Grüße"},
	}
	for _, tt := range tests {
		if got := SanitizeTerminal(tt.in); got != tt.want {
			t.Errorf("SanitizeTerminal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"QR-Code", "qr-code"},
		{"I2/5", "i2_5"},
		{"  ", "unknown"},
		{"--", "unknown"},
		{"EAN-13", "ean-13"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
