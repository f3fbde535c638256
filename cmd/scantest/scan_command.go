package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"scantest/internal/capture"
	"scantest/internal/config"
	"scantest/internal/logging"
	"scantest/internal/session"
	"scantest/internal/textutil"
)

type scanOptions struct {
	device     string
	count      int
	timeout    time.Duration
	copy       bool
	watch      bool
	summary    bool
	jsonOutput bool
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan barcodes and QR codes from a camera",
		Long: "Start a scan session and print each accepted code on stdout.\n\n" +
			"While running, SIGUSR1 switches to the next camera and SIGUSR2 clears the\n" +
			"scan history. Ctrl-C stops the session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.count < 0 {
				return errors.New("--count must not be negative")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			registry, err := ctx.registry()
			if err != nil {
				return err
			}
			devices, err := registry.ListDevices(cmd.Context())
			if err != nil {
				return err
			}
			controller, err := ctx.newController(registry)
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, opts.timeout)
				defer cancel()
			}

			runner := &scanRunner{
				controller: controller,
				registry:   registry,
				copier:     ctx.deps.copier(cfg, logger),
				logger:     logging.NewComponentLogger(logger, "scan"),
				out:        cmd.OutOrStdout(),
				errOut:     cmd.ErrOrStderr(),
				colorize:   shouldColorize(cmd.ErrOrStderr()),
				opts:       opts,
				deviceFlag: opts.device,
				cfg:        cfg,
				deviceID:   chooseDevice(opts.device, cfg, devices),
			}
			return runner.run(runCtx)
		},
	}

	cmd.Flags().StringVarP(&opts.device, "device", "d", "", "Camera id or path (default: configured or back/rear camera)")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "Stop after this many accepted scans (0 = unlimited)")
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 0, "Stop after this long (0 = until interrupted)")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "Copy each accepted payload to the clipboard")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Follow camera hot-plug and restart the session when a camera returns")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "Print a table of the session's scans on exit")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print each scan as a JSON line")
	return cmd
}

type scanRunner struct {
	controller *session.Controller
	registry   *capture.Registry
	copier     copier
	logger     *slog.Logger
	out        io.Writer
	errOut     io.Writer
	colorize   bool
	opts       scanOptions
	deviceFlag string
	cfg        *config.Config
	deviceID   string
	accepted   int
}

func (r *scanRunner) run(ctx context.Context) error {
	events := make(chan session.Event, 32)
	fetchCtx, stopFetch := context.WithCancel(ctx)
	defer stopFetch()
	go r.followEvents(fetchCtx, events)

	if err := r.controller.Start(ctx, r.deviceID); err != nil {
		if errors.Is(err, session.ErrCanceled) {
			return nil
		}
		return err
	}
	defer func() {
		if err := r.controller.Stop(context.Background()); err != nil {
			r.logger.Debug("stop scan session", logging.Error(err))
		}
		r.printSummary()
	}()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(signals)

	var hotplug chan capture.HotplugEvent
	if r.opts.watch {
		hotplug = make(chan capture.HotplugEvent, 8)
		monitor := capture.NewHotplugMonitor(r.logger, func(_ context.Context, evt capture.HotplugEvent) {
			select {
			case hotplug <- evt:
			default:
			}
		})
		if err := monitor.Start(ctx); err != nil {
			return err
		}
		defer monitor.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-events:
			done, err := r.handleEvent(ctx, evt)
			if done || err != nil {
				return err
			}
		case sig := <-signals:
			r.handleSignal(ctx, sig)
		case evt := <-hotplug:
			r.handleHotplug(ctx, evt)
		}
	}
}

func (r *scanRunner) followEvents(ctx context.Context, out chan<- session.Event) {
	hub := r.controller.Events()
	var since uint64
	for {
		batch, next, err := hub.Next(ctx, since, 0)
		if err != nil {
			return
		}
		for _, evt := range batch {
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
		since = next
	}
}

// handleEvent reports whether the scan loop should end.
func (r *scanRunner) handleEvent(ctx context.Context, evt session.Event) (bool, error) {
	switch evt.Kind {
	case session.EventState:
		fmt.Fprintln(r.errOut, sessionStatusLine(evt.Snapshot, r.colorize))
		if evt.Snapshot.State == session.StateFailed && !r.opts.watch {
			return true, fmt.Errorf("scan session failed: %s", evt.Snapshot.Reason)
		}
	case session.EventCleared:
		fmt.Fprintln(r.errOut, renderStatusLine("history", statusInfo, "cleared", r.colorize))
	case session.EventResult:
		if evt.Result == nil {
			return false, nil
		}
		if err := r.printResult(*evt.Result); err != nil {
			return true, err
		}
		if r.opts.copy {
			if err := r.copier.Copy(ctx, evt.Result.Payload); err != nil {
				fmt.Fprintln(r.errOut, renderStatusLine("clipboard", statusWarn, err.Error(), r.colorize))
			}
		}
		r.accepted++
		if r.opts.count > 0 && r.accepted >= r.opts.count {
			return true, nil
		}
	}
	return false, nil
}

func (r *scanRunner) printResult(result session.ScanResult) error {
	if r.opts.jsonOutput {
		return writeJSONLine(r.out, result)
	}
	_, err := fmt.Fprintf(r.out, "%s  %-10s %s\n", result.ObservedAt.Local().Format("15:04:05"), result.Format, textutil.SanitizeTerminal(result.Payload))
	return err
}

func (r *scanRunner) handleSignal(ctx context.Context, sig os.Signal) {
	switch sig {
	case syscall.SIGUSR1:
		next := capture.NextDevice(r.registry.Devices(), r.controller.Snapshot().DeviceID)
		if next == "" {
			return
		}
		if err := r.controller.Switch(ctx, next); err != nil {
			r.logger.Warn("camera switch failed",
				logging.String(logging.FieldDeviceID, next),
				logging.Error(err),
			)
		}
	case syscall.SIGUSR2:
		r.controller.ClearResults()
	}
}

func (r *scanRunner) handleHotplug(ctx context.Context, evt capture.HotplugEvent) {
	current := r.controller.Snapshot()
	switch evt.Action {
	case "remove":
		if evt.DeviceID != current.DeviceID {
			return
		}
		if err := r.controller.Stop(ctx); err != nil {
			r.logger.Debug("stop after camera removal", logging.Error(err))
		}
		fmt.Fprintln(r.errOut, renderStatusLine(evt.DeviceID, statusWarn, "camera removed; waiting for it to return", r.colorize))
	case "add":
		if current.State != session.StateIdle && current.State != session.StateFailed {
			return
		}
		devices, err := r.registry.ListDevices(ctx)
		if err != nil {
			r.logger.Debug("re-enumerate after hot-plug", logging.Error(err))
			return
		}
		target := chooseDevice(r.deviceFlag, r.cfg, devices)
		if err := r.controller.Start(ctx, target); err != nil {
			r.logger.Debug("restart after hot-plug", logging.Error(err))
		}
	}
}

func (r *scanRunner) printSummary() {
	if !r.opts.summary || r.opts.jsonOutput {
		return
	}
	results := r.controller.Results()
	if len(results) == 0 {
		fmt.Fprintln(r.out, "No scans recorded")
		return
	}
	fmt.Fprintln(r.out, renderResultTable(results))
}

func renderResultTable(results []session.ScanResult) string {
	rows := make([][]string, 0, len(results))
	for i, res := range results {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			res.ObservedAt.Local().Format("15:04:05"),
			res.Format,
			textutil.SanitizeTerminal(res.Payload),
			res.DeviceID,
		})
	}
	return renderTable([]column{
		{header: "#", align: text.AlignRight},
		{header: "Time"},
		{header: "Format"},
		{header: "Payload", maxWidth: 60},
		{header: "Device"},
	}, rows)
}
