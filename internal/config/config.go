package config

import (
	"fmt"
	"time"
)

// Until values for LoopConfig.Until.
const (
	UntilCancelled  = "cancelled"
	UntilFrames     = "frames"
	UntilFirstEvent = "first-event"
)

// OnRenderError values for LoopConfig.OnRenderError.
const (
	RenderRetry  = "retry"
	RenderStop   = "stop"
	RenderIgnore = "ignore"
)

// Color is an RGBA clear colour with components in [0, 1].
type Color [4]float64

// LoopConfig controls when the render loop ends and how it reacts to
// failed frames.
type LoopConfig struct {
	// Until is one of: cancelled (default), frames, first-event.
	Until string `yaml:"until"`
	// MaxFrames is required when Until is frames.
	MaxFrames uint64 `yaml:"max_frames"`
	// OnRenderError is one of: retry (default), stop, ignore.
	OnRenderError string `yaml:"on_render_error"`
	// FrameInterval is an optional sleep between iterations.
	FrameInterval time.Duration `yaml:"frame_interval"`
}

// LogConfig configures process logging.
type LogConfig struct {
	// Level controls verbosity: debug, info, warn, error.
	Level string `yaml:"level"`
}

// IPCConfig configures the control socket.
type IPCConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the effective recomp configuration.
type Config struct {
	// Display names the X display; empty selects $DISPLAY.
	Display           string     `yaml:"display"`
	ClearColor        Color      `yaml:"clear_color,flow"`
	SelectRootEvents  bool       `yaml:"select_root_events"`
	RegisterSelection bool       `yaml:"register_selection"`
	Loop              LoopConfig `yaml:"loop"`
	Log               LogConfig  `yaml:"log"`
	IPC               IPCConfig  `yaml:"ipc"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Display:           "",
		ClearColor:        Color{0.1, 0.2, 0.5, 1.0},
		SelectRootEvents:  true,
		RegisterSelection: true,
		Loop: LoopConfig{
			Until:         UntilCancelled,
			OnRenderError: RenderRetry,
		},
		Log: LogConfig{Level: "info"},
		IPC: IPCConfig{Enabled: true},
	}
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	for i, v := range c.ClearColor {
		if v < 0 || v > 1 {
			return &ValidationError{Path: "clear_color", Err: fmt.Errorf("component %d is %g, must be within [0, 1]", i, v)}
		}
	}

	switch c.Loop.Until {
	case UntilCancelled, UntilFirstEvent:
	case UntilFrames:
		if c.Loop.MaxFrames == 0 {
			return &ValidationError{Path: "loop.max_frames", Err: fmt.Errorf("max_frames must be > 0 when until is %q", UntilFrames)}
		}
	default:
		return &ValidationError{Path: "loop.until", Err: fmt.Errorf("until must be one of: cancelled, frames, first-event")}
	}

	switch c.Loop.OnRenderError {
	case RenderRetry, RenderStop, RenderIgnore:
	default:
		return &ValidationError{Path: "loop.on_render_error", Err: fmt.Errorf("on_render_error must be one of: retry, stop, ignore")}
	}

	if c.Loop.FrameInterval < 0 {
		return &ValidationError{Path: "loop.frame_interval", Err: fmt.Errorf("frame_interval must be >= 0")}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}

	return nil
}
