package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"scantest/internal/capture"
	"scantest/internal/clipboard"
	"scantest/internal/config"
	"scantest/internal/decoder"
	"scantest/internal/logging"
	"scantest/internal/notifications"
	"scantest/internal/session"
)

// dependencies are the host-facing pieces tests swap for fakes.
type dependencies struct {
	enumerator func(cfg *config.Config, logger *slog.Logger) capture.Enumerator
	provider   func(cfg *config.Config, logger *slog.Logger) decoder.Provider
	notifier   func(cfg *config.Config) session.Notifier
	copier     func(cfg *config.Config, logger *slog.Logger) copier
	logger     func(cfg *config.Config) (*slog.Logger, error)
}

type copier interface {
	Copy(ctx context.Context, text string) error
}

func defaultDependencies() dependencies {
	return dependencies{
		enumerator: func(cfg *config.Config, logger *slog.Logger) capture.Enumerator {
			return capture.NewSysfsEnumerator(cfg.Capture.SysfsRoot, cfg.Capture.DevRoot, logger)
		},
		provider: func(cfg *config.Config, logger *slog.Logger) decoder.Provider {
			return decoder.NewZbarProvider(cfg.Scanner.DecoderBinary, logger)
		},
		notifier: notifications.NewNotifier,
		copier: func(cfg *config.Config, logger *slog.Logger) copier {
			return clipboard.New(cfg.Clipboard, logger)
		},
		logger: logging.NewFromConfig,
	}
}

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	deps         dependencies

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, deps dependencies) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		deps:         deps,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = c.deps.logger(cfg)
	})
	return c.logger, c.loggerErr
}

// registry builds a device registry over the configured enumerator.
func (c *commandContext) registry() (*capture.Registry, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return capture.NewRegistry(c.deps.enumerator(cfg, logger), logger), nil
}

// newController wires a scan controller from configuration.
func (c *commandContext) newController(devices session.DeviceResolver) (*session.Controller, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	region, err := config.ParseRegion(cfg.Capture.Region)
	if err != nil {
		return nil, fmt.Errorf("capture.region: %w", err)
	}
	return session.NewController(session.Options{
		Devices:  devices,
		Provider: c.deps.provider(cfg, logger),
		Notifier: c.deps.notifier(cfg),
		Stream: decoder.StreamConfig{
			FrameRate:   cfg.Capture.FrameRate,
			Width:       cfg.Capture.Width,
			Height:      cfg.Capture.Height,
			Region:      decoder.Region(region),
			Symbologies: cfg.Scanner.Symbologies,
			ExtraArgs:   cfg.Scanner.ExtraArgs,
		},
		LockDir:         cfg.Paths.LockDir,
		DebounceWindow:  cfg.DebounceWindow(),
		HistoryLimit:    cfg.Scanner.HistoryLimit,
		StartTimeout:    cfg.StartTimeout(),
		FeedbackTimeout: cfg.FeedbackTimeout(),
		Logger:          logger,
	})
}

// chooseDevice applies flag, then config pin, then the label heuristic.
func chooseDevice(flagValue string, cfg *config.Config, devices []capture.CaptureDevice) string {
	if id := strings.TrimPrefix(strings.TrimSpace(flagValue), "/dev/"); id != "" {
		return id
	}
	if cfg != nil && cfg.Capture.Device != "" {
		return cfg.Capture.Device
	}
	var prefer []string
	if cfg != nil {
		prefer = cfg.Capture.PreferLabels
	}
	if len(prefer) == 0 {
		prefer = capture.DefaultPreferLabels
	}
	return capture.SelectPreferred(devices, prefer)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
