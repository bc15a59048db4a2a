package config

import (
	"fmt"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw on top of DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.ClearColor != nil {
		cfg.ClearColor = *raw.ClearColor
	}
	if raw.SelectRootEvents != nil {
		cfg.SelectRootEvents = *raw.SelectRootEvents
	}
	if raw.RegisterSelection != nil {
		cfg.RegisterSelection = *raw.RegisterSelection
	}
	if raw.Loop != nil {
		if raw.Loop.Until != nil {
			cfg.Loop.Until = *raw.Loop.Until
		}
		if raw.Loop.MaxFrames != nil {
			cfg.Loop.MaxFrames = *raw.Loop.MaxFrames
		}
		if raw.Loop.OnRenderError != nil {
			cfg.Loop.OnRenderError = *raw.Loop.OnRenderError
		}
		if raw.Loop.FrameInterval != nil {
			cfg.Loop.FrameInterval = *raw.Loop.FrameInterval
		}
	}
	if raw.Log != nil && raw.Log.Level != nil {
		cfg.Log.Level = *raw.Log.Level
	}
	if raw.IPC != nil && raw.IPC.Enabled != nil {
		cfg.IPC.Enabled = *raw.IPC.Enabled
	}
	return cfg
}
