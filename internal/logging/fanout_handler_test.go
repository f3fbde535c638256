package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Fatal("expected a single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsPerHandlerLevels(t *testing.T) {
	var consoleBuf, fileBuf bytes.Buffer
	console := slog.NewTextHandler(&consoleBuf, &slog.HandlerOptions{Level: slog.LevelWarn})
	file := slog.NewJSONHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newFanoutHandler(console, file)).With(slog.String(FieldDeviceID, "video0"))
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled through the file handler")
	}

	logger.Debug("duplicate decode suppressed")
	logger.Warn("decoder stream ended unexpectedly")

	if strings.Contains(consoleBuf.String(), "duplicate decode") {
		t.Fatalf("console handler received a debug record: %q", consoleBuf.String())
	}
	if !strings.Contains(consoleBuf.String(), "decoder stream ended") {
		t.Fatalf("console handler missed the warning: %q", consoleBuf.String())
	}
	for _, want := range []string{"duplicate decode", "decoder stream ended", `"device_id":"video0"`} {
		if !strings.Contains(fileBuf.String(), want) {
			t.Fatalf("file handler output %q missing %q", fileBuf.String(), want)
		}
	}
}

func TestFanoutHandlerWithGroup(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	slog.New(h).WithGroup("stream").Info("opened", slog.Int("fps", 15))

	for _, buf := range []*bytes.Buffer{&a, &b} {
		if !strings.Contains(buf.String(), `"stream":{"fps":15}`) {
			t.Fatalf("expected grouped attrs, got %q", buf.String())
		}
	}
}
