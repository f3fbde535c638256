package session

import (
	"testing"
	"time"
)

func TestDecodeFilterDebouncesRepeats(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewDecodeFilter(0)
	if f.Window() != DefaultDebounceWindow {
		t.Fatalf("window = %v, want %v", f.Window(), DefaultDebounceWindow)
	}

	steps := []struct {
		offset time.Duration
		want   bool
	}{
		{0, true},
		{500 * time.Millisecond, false},
		{2500 * time.Millisecond, true},
		{3000 * time.Millisecond, false},
		{4500 * time.Millisecond, true},
	}
	for _, step := range steps {
		if got := f.Accept("A", "QR-CODE", base.Add(step.offset)); got != step.want {
			t.Fatalf("Accept at +%v = %v, want %v", step.offset, got, step.want)
		}
	}
}

func TestDecodeFilterWindowBoundaryAccepts(t *testing.T) {
	base := time.Now()
	f := NewDecodeFilter(2 * time.Second)
	f.Accept("A", "", base)
	if f.Accept("A", "", base.Add(2*time.Second-time.Millisecond)) {
		t.Fatal("expected repeat just inside the window to be rejected")
	}
	if !f.Accept("A", "", base.Add(2*time.Second)) {
		t.Fatal("expected repeat at the window boundary to be accepted")
	}
}

func TestDecodeFilterSingleSlot(t *testing.T) {
	base := time.Now()
	f := NewDecodeFilter(DefaultDebounceWindow)
	for i, payload := range []string{"A", "B", "A", "B"} {
		if !f.Accept(payload, "", base.Add(time.Duration(i)*100*time.Millisecond)) {
			t.Fatalf("payload %d (%s) should be accepted when it differs from the previous one", i, payload)
		}
	}
}

func TestDecodeFilterIgnoresFormat(t *testing.T) {
	base := time.Now()
	f := NewDecodeFilter(DefaultDebounceWindow)
	f.Accept("123", "EAN-13", base)
	if f.Accept("123", "CODE-128", base.Add(time.Millisecond)) {
		t.Fatal("expected same payload with a different format to be suppressed")
	}
}

func TestDecodeFilterReset(t *testing.T) {
	base := time.Now()
	f := NewDecodeFilter(DefaultDebounceWindow)
	f.Accept("A", "", base)
	f.Reset()
	if !f.Accept("A", "", base.Add(10*time.Millisecond)) {
		t.Fatal("expected payload to be accepted after Reset")
	}
}
