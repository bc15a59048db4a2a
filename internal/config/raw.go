package config

import (
	"time"
)

type RawLoop struct {
	Until         *string        `yaml:"until"`
	MaxFrames     *uint64        `yaml:"max_frames"`
	OnRenderError *string        `yaml:"on_render_error"`
	FrameInterval *time.Duration `yaml:"frame_interval"`
}

type RawLog struct {
	Level *string `yaml:"level"`
}

type RawIPC struct {
	Enabled *bool `yaml:"enabled"`
}

// RawConfig is a config file as written. Nil fields were not set and keep
// their default.
type RawConfig struct {
	Display           *string  `yaml:"display"`
	ClearColor        *Color   `yaml:"clear_color"`
	SelectRootEvents  *bool    `yaml:"select_root_events"`
	RegisterSelection *bool    `yaml:"register_selection"`
	Loop              *RawLoop `yaml:"loop"`
	Log               *RawLog  `yaml:"log"`
	IPC               *RawIPC  `yaml:"ipc"`
}

// merge overlays c with overlay; set fields in overlay win.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.ClearColor != nil {
		out.ClearColor = overlay.ClearColor
	}
	if overlay.SelectRootEvents != nil {
		out.SelectRootEvents = overlay.SelectRootEvents
	}
	if overlay.RegisterSelection != nil {
		out.RegisterSelection = overlay.RegisterSelection
	}
	if overlay.Loop != nil {
		if out.Loop == nil {
			out.Loop = &RawLoop{}
		}
		merged := mergeRawLoop(*out.Loop, *overlay.Loop)
		out.Loop = &merged
	}
	if overlay.Log != nil {
		if out.Log == nil {
			out.Log = &RawLog{}
		}
		merged := *out.Log
		if overlay.Log.Level != nil {
			merged.Level = overlay.Log.Level
		}
		out.Log = &merged
	}
	if overlay.IPC != nil {
		if out.IPC == nil {
			out.IPC = &RawIPC{}
		}
		merged := *out.IPC
		if overlay.IPC.Enabled != nil {
			merged.Enabled = overlay.IPC.Enabled
		}
		out.IPC = &merged
	}
	return out
}

func mergeRawLoop(base RawLoop, overlay RawLoop) RawLoop {
	out := base
	if overlay.Until != nil {
		out.Until = overlay.Until
	}
	if overlay.MaxFrames != nil {
		out.MaxFrames = overlay.MaxFrames
	}
	if overlay.OnRenderError != nil {
		out.OnRenderError = overlay.OnRenderError
	}
	if overlay.FrameInterval != nil {
		out.FrameInterval = overlay.FrameInterval
	}
	return out
}
