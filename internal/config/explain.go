package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths:
//
//	display
//	clear_color
//	select_root_events
//	register_selection
//	loop, loop.until, loop.max_frames, loop.on_render_error, loop.frame_interval
//	log, log.level
//	ipc, ipc.enabled
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("unknown path: %s", path)
	}
	leaf := ""
	if len(parts) == 2 {
		leaf = parts[1]
	}

	switch parts[0] {
	case "display":
		if leaf == "" {
			return cfg.Display, nil
		}
	case "clear_color":
		if leaf == "" {
			return cfg.ClearColor, nil
		}
	case "select_root_events":
		if leaf == "" {
			return cfg.SelectRootEvents, nil
		}
	case "register_selection":
		if leaf == "" {
			return cfg.RegisterSelection, nil
		}
	case "loop":
		switch leaf {
		case "":
			return cfg.Loop, nil
		case "until":
			return cfg.Loop.Until, nil
		case "max_frames":
			return cfg.Loop.MaxFrames, nil
		case "on_render_error":
			return cfg.Loop.OnRenderError, nil
		case "frame_interval":
			return cfg.Loop.FrameInterval, nil
		}
	case "log":
		switch leaf {
		case "":
			return cfg.Log, nil
		case "level":
			return cfg.Log.Level, nil
		}
	case "ipc":
		switch leaf {
		case "":
			return cfg.IPC, nil
		case "enabled":
			return cfg.IPC.Enabled, nil
		}
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
