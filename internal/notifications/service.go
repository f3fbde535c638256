package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"scantest/internal/config"
	"scantest/internal/session"
	"scantest/internal/textutil"
)

const (
	userAgent       = "scantest/0.1.0"
	appName         = "scantest"
	maxMessageRunes = 256
)

// NewNotifier builds the feedback notifier described by cfg.
func NewNotifier(cfg *config.Config) session.Notifier {
	if cfg == nil || !cfg.Feedback.Enabled {
		return noopNotifier{}
	}

	var notifiers []session.Notifier
	if cmd := strings.TrimSpace(cfg.Feedback.Command); cmd != "" {
		notifiers = append(notifiers, NewCommandNotifier(cmd))
	}
	if topic := strings.TrimSpace(cfg.Feedback.NtfyTopic); topic != "" {
		notifiers = append(notifiers, NewNtfyNotifier(topic, cfg.FeedbackTimeout()))
	}

	switch len(notifiers) {
	case 0:
		return noopNotifier{}
	case 1:
		return notifiers[0]
	default:
		return multiNotifier(notifiers)
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

func scanPayload(result session.ScanResult) payload {
	format := strings.TrimSpace(result.Format)
	if format == "" {
		format = "UNKNOWN"
	}
	return payload{
		title:   fmt.Sprintf("Scanned %s", format),
		message: truncate(result.Payload, maxMessageRunes),
		tags:    []string{appName, "scan", textutil.SanitizeToken(format)},
	}
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit-1]) + "…"
}

// NtfyNotifier publishes scans to an ntfy topic URL.
type NtfyNotifier struct {
	endpoint string
	client   *http.Client
}

// NewNtfyNotifier builds a notifier posting to endpoint.
func NewNtfyNotifier(endpoint string, timeout time.Duration) *NtfyNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NtfyNotifier{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
	}
}

func (n *NtfyNotifier) Notify(ctx context.Context, result session.ScanResult) error {
	return n.send(ctx, scanPayload(result))
}

func (n *NtfyNotifier) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// CommandNotifier runs a desktop notification command such as notify-send.
// The command receives the title and message as its final two arguments.
type CommandNotifier struct {
	command []string
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewCommandNotifier splits command on whitespace; extra words become leading
// arguments.
func NewCommandNotifier(command string) *CommandNotifier {
	return &CommandNotifier{
		command: strings.Fields(command),
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
		},
	}
}

func (n *CommandNotifier) Notify(ctx context.Context, result session.ScanResult) error {
	if n == nil || len(n.command) == 0 {
		return nil
	}
	data := scanPayload(result)
	args := n.arguments(data)
	output, err := n.run(ctx, n.command[0], args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			return fmt.Errorf("%s: %w: %s", n.command[0], err, detail)
		}
		return fmt.Errorf("%s: %w", n.command[0], err)
	}
	return nil
}

func (n *CommandNotifier) arguments(data payload) []string {
	args := append([]string(nil), n.command[1:]...)
	if isNotifySend(n.command[0]) {
		args = append(args, "--app-name="+appName, "--expire-time=3000")
	}
	return append(args, data.title, data.message)
}

func isNotifySend(name string) bool {
	name = name[strings.LastIndex(name, "/")+1:]
	return name == "notify-send"
}

type multiNotifier []session.Notifier

func (m multiNotifier) Notify(ctx context.Context, result session.ScanResult) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, session.ScanResult) error { return nil }
