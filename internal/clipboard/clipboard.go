package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/mattn/go-isatty"

	"scantest/internal/config"
	"scantest/internal/logging"
)

// ErrClipboard reports that no backend could take the text.
var ErrClipboard = errors.New("clipboard unavailable")

const (
	defaultCopyTimeout = 3 * time.Second
	// xclip, xsel and wl-copy fork a child that owns the selection and keeps
	// any inherited pipes open; don't wait on those after the tool exits.
	pipeWaitDelay = 250 * time.Millisecond
)

// Backend is one way of writing to the clipboard.
type Backend struct {
	Name string
	Args []string
}

type runner func(ctx context.Context, stdin string, name string, args ...string) error

// Copier writes text to the first clipboard backend that accepts it.
type Copier struct {
	command  []string
	osc52    bool
	terminal io.Writer
	isTTY    func() bool
	lookPath func(string) (string, error)
	getenv   func(string) string
	run      runner
	timeout  time.Duration
	logger   *slog.Logger
}

// New builds a Copier from clipboard configuration.
func New(cfg config.Clipboard, logger *slog.Logger) *Copier {
	return &Copier{
		command:  strings.Fields(cfg.Command),
		osc52:    cfg.OSC52,
		terminal: os.Stderr,
		isTTY: func() bool {
			fd := os.Stderr.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
		lookPath: exec.LookPath,
		getenv:   os.Getenv,
		run:      runCommand,
		timeout:  defaultCopyTimeout,
		logger:   logging.NewComponentLogger(logger, "clipboard"),
	}
}

// Backends lists the command backends Copy will try, in order.
func (c *Copier) Backends() []Backend {
	var out []Backend
	if len(c.command) > 0 {
		out = append(out, Backend{Name: c.command[0], Args: c.command[1:]})
	}
	candidates := []Backend{
		{Name: "xclip", Args: []string{"-selection", "clipboard"}},
		{Name: "xsel", Args: []string{"--clipboard", "--input"}},
	}
	if c.getenv("WAYLAND_DISPLAY") != "" {
		candidates = append([]Backend{{Name: "wl-copy"}}, candidates...)
	} else {
		candidates = append(candidates, Backend{Name: "wl-copy"})
	}
	for _, b := range candidates {
		if _, err := c.lookPath(b.Name); err == nil {
			out = append(out, b)
		}
	}
	return out
}

// Copy places text on the clipboard. Each command backend gets at most the
// copy timeout; a tool that hangs counts as failed and the next one is tried.
func (c *Copier) Copy(ctx context.Context, text string) error {
	var errs []error
	for _, backend := range c.Backends() {
		err := c.runBounded(ctx, text, backend)
		if err == nil {
			c.logger.Debug("copied to clipboard", logging.String("backend", backend.Name))
			return nil
		}
		c.logger.Debug("clipboard backend failed",
			logging.String("backend", backend.Name),
			logging.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name, err))
	}

	if c.osc52 && c.isTTY() {
		if _, err := c.sequence(text).WriteTo(c.terminal); err != nil {
			errs = append(errs, fmt.Errorf("osc52: %w", err))
		} else {
			c.logger.Debug("copied to clipboard", logging.String("backend", "osc52"))
			return nil
		}
	}

	if len(errs) == 0 {
		return fmt.Errorf("%w: no clipboard tool found and terminal copy unavailable", ErrClipboard)
	}
	return fmt.Errorf("%w: %w", ErrClipboard, errors.Join(errs...))
}

func (c *Copier) runBounded(ctx context.Context, text string, backend Backend) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.run(ctx, text, backend.Name, backend.Args...)
}

func (c *Copier) sequence(text string) osc52.Sequence {
	seq := osc52.New(text)
	switch {
	case c.getenv("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(c.getenv("TERM"), "screen"):
		seq = seq.Screen()
	}
	return seq
}

func runCommand(ctx context.Context, stdin string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdin = strings.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = pipeWaitDelay
	err := cmd.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		// The tool exited cleanly; only its forked selection owner still
		// holds stderr.
		return nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}
