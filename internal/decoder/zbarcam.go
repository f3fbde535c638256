package decoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"scantest/internal/logging"
)

const (
	defaultSettleDelay = 400 * time.Millisecond
	closeGracePeriod   = 2 * time.Second
	eventBufferSize    = 64
	stderrTailLimit    = 4096
)

// ErrDecoderExited reports that the decoder process ended on its own.
var ErrDecoderExited = errors.New("decoder exited")

// ZbarProvider opens decode streams by running zbarcam against a V4L2 node.
type ZbarProvider struct {
	binary string
	settle time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// ZbarOption customizes a ZbarProvider.
type ZbarOption func(*ZbarProvider)

// WithSettleDelay sets how long a freshly started zbarcam must stay alive
// before the device counts as acquired.
func WithSettleDelay(d time.Duration) ZbarOption {
	return func(p *ZbarProvider) {
		if d > 0 {
			p.settle = d
		}
	}
}

// WithClock overrides the timestamp source for emitted events.
func WithClock(now func() time.Time) ZbarOption {
	return func(p *ZbarProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewZbarProvider builds a provider for the given zbarcam executable.
func NewZbarProvider(binary string, logger *slog.Logger, opts ...ZbarOption) *ZbarProvider {
	if strings.TrimSpace(binary) == "" {
		binary = "zbarcam"
	}
	p := &ZbarProvider{
		binary: binary,
		settle: defaultSettleDelay,
		logger: logging.NewComponentLogger(logger, "zbarcam"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open starts zbarcam on devicePath. Acquisition succeeds once the process has
// survived the settle delay; an early exit is reported with zbarcam's stderr.
func (p *ZbarProvider) Open(ctx context.Context, devicePath string, cfg StreamConfig) (Stream, error) {
	devicePath = strings.TrimSpace(devicePath)
	if devicePath == "" {
		return nil, errors.New("device path is required")
	}

	if cfg.FrameRate > 0 || !cfg.Region.isZero() {
		p.logger.Debug("zbarcam ignores frame rate and detection region",
			logging.Int("frame_rate", cfg.FrameRate),
			logging.String("region", cfg.Region.String()),
		)
	}

	args := BuildZbarArgs(devicePath, cfg)
	cmd := exec.Command(p.binary, args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("zbarcam stdout: %w", err)
	}
	stderr := &tailBuffer{limit: stderrTailLimit}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", p.binary, err)
	}

	stream := &processStream{
		cmd:    cmd,
		stderr: stderr,
		events: make(chan RawEvent, eventBufferSize),
		done:   make(chan struct{}),
		now:    p.now,
	}
	go stream.run(stdout)

	p.logger.Debug("zbarcam started",
		logging.String("device_path", devicePath),
		logging.String("args", strings.Join(args, " ")),
		logging.Int("pid", cmd.Process.Pid),
	)

	timer := time.NewTimer(p.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		_ = stream.Close()
		return nil, ctx.Err()
	case <-stream.Done():
		return nil, stream.Err()
	case <-timer.C:
		return stream, nil
	}
}

// BuildZbarArgs renders the zbarcam command line for a device and stream config.
func BuildZbarArgs(devicePath string, cfg StreamConfig) []string {
	args := []string{"--nodisplay", "--xml"}
	if cfg.Width > 0 && cfg.Height > 0 {
		args = append(args, "--prescale="+strconv.Itoa(cfg.Width)+"x"+strconv.Itoa(cfg.Height))
	}
	if len(cfg.Symbologies) > 0 {
		args = append(args, "-Sdisable")
		for _, sym := range cfg.Symbologies {
			if sym = strings.TrimSpace(sym); sym != "" {
				args = append(args, "-S"+sym+".enable")
			}
		}
	}
	args = append(args, cfg.ExtraArgs...)
	return append(args, devicePath)
}

func (r Region) isZero() bool {
	return r == Region{}
}

func (r Region) String() string {
	if r.isZero() {
		return "full"
	}
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

type processStream struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
	events chan RawEvent
	done   chan struct{}
	now    func() time.Time

	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

func (s *processStream) Events() <-chan RawEvent { return s.events }

func (s *processStream) Done() <-chan struct{} { return s.done }

func (s *processStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *processStream) run(stdout io.Reader) {
	parseErr := ParseSymbols(stdout, func(payload, format string) {
		s.events <- RawEvent{Payload: payload, Format: format, ObservedAt: s.now()}
	})
	close(s.events)
	if parseErr != nil {
		_ = unix.Kill(-s.cmd.Process.Pid, unix.SIGTERM)
	}
	// Keep the pipe drained so zbarcam never blocks on a full stdout.
	_, _ = io.Copy(io.Discard, stdout)

	waitErr := s.cmd.Wait()

	s.mu.Lock()
	if !s.closed {
		detail := strings.TrimSpace(s.stderr.String())
		switch {
		case parseErr != nil:
			s.err = fmt.Errorf("%w: unreadable output: %w", ErrDecoderExited, parseErr)
		case waitErr != nil && detail != "":
			s.err = fmt.Errorf("%w: %w: %s", ErrDecoderExited, waitErr, detail)
		case waitErr != nil:
			s.err = fmt.Errorf("%w: %w", ErrDecoderExited, waitErr)
		default:
			s.err = ErrDecoderExited
		}
	}
	s.mu.Unlock()
	close(s.done)
}

// Close terminates the zbarcam process group and waits for it to exit.
func (s *processStream) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.err = nil
		s.mu.Unlock()

		select {
		case <-s.done:
			return
		default:
		}

		pgid := s.cmd.Process.Pid
		_ = unix.Kill(-pgid, unix.SIGTERM)
		// Drain so the reader never blocks on a full channel during shutdown.
		go func() {
			for range s.events {
			}
		}()
		select {
		case <-s.done:
		case <-time.After(closeGracePeriod):
			_ = unix.Kill(-pgid, unix.SIGKILL)
			<-s.done
		}
	})
	return nil
}

type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
