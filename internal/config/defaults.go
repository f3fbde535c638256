package config

const (
	defaultLogDir          = "~/.local/share/scantest/logs"
	defaultSnapshotDir     = "~/Pictures/scantest"
	defaultSysfsRoot       = "/sys"
	defaultDevRoot         = "/dev"
	defaultFrameRate       = 15
	defaultDecoderBinary   = "zbarcam"
	defaultDebounceMillis  = 2000
	defaultStartTimeout    = 10
	defaultFeedbackCommand = "notify-send"
	defaultFeedbackTimeout = 5
	defaultFFmpegBinary    = "ffmpeg"
	defaultSnapshotTimeout = 15
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:      defaultLogDir,
			LockDir:     defaultLockDir(),
			SnapshotDir: defaultSnapshotDir,
		},
		Capture: Capture{
			SysfsRoot:    defaultSysfsRoot,
			DevRoot:      defaultDevRoot,
			PreferLabels: []string{"back", "rear"},
			FrameRate:    defaultFrameRate,
		},
		Scanner: Scanner{
			DecoderBinary:  defaultDecoderBinary,
			DebounceMillis: defaultDebounceMillis,
			StartTimeout:   defaultStartTimeout,
		},
		Feedback: Feedback{
			Enabled:        true,
			Command:        defaultFeedbackCommand,
			RequestTimeout: defaultFeedbackTimeout,
		},
		Clipboard: Clipboard{
			OSC52: true,
		},
		Snapshot: Snapshot{
			FFmpegBinary: defaultFFmpegBinary,
			Timeout:      defaultSnapshotTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
