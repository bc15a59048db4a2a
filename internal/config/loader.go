package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
	SourceFlag    SourceKind = "flag"
)

type Source struct {
	Kind   SourceKind
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // dotted YAML path -> where the value was set
	Files   []string          // files read, empty when only defaults apply
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/recomp/config.yaml, falling
// back to ~/.config/recomp/config.yaml.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "recomp", "config.yaml"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "recomp", "config.yaml"), nil
}

// LoadFromPath loads the config file at path. A missing file yields the
// defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	return LoadFromPathWithOverrides(path, RawConfig{})
}

// LoadFromPathWithOverrides loads path and applies overrides, typically
// command-line flags, on top of it before validation.
func LoadFromPathWithOverrides(path string, overrides RawConfig) (*LoadResult, error) {
	res := &LoadResult{Sources: map[string]Source{}}

	raw, err := readFile(path, res)
	if err != nil {
		return nil, err
	}
	raw = raw.merge(overrides)
	for key := range overrideSources(overrides) {
		res.Sources[key] = Source{Kind: SourceFlag}
	}

	res.Config = BuildEffectiveConfig(raw)
	if err := res.Config.Validate(); err != nil {
		return nil, withSource(err, res.Sources)
	}
	return res, nil
}

// readFile decodes path strictly and records where each key was set. A
// missing file is not an error.
func readFile(path string, res *LoadResult) (RawConfig, error) {
	var raw RawConfig
	abs, err := filepath.Abs(path)
	if err != nil {
		return raw, fmt.Errorf("resolve config path %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}

	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return raw, nil
	}
	if err != nil {
		return raw, fmt.Errorf("%s: failed to read: %w", abs, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return raw, fmt.Errorf("%s: %w", abs, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return raw, fmt.Errorf("%s: failed to parse yaml: %w", abs, err)
	}
	collectSources(&doc, abs, res.Sources)
	res.Files = append(res.Files, abs)
	return raw, nil
}

// collectSources records the position of every mapping value in doc into
// out, keyed by dotted YAML path.
func collectSources(doc *yaml.Node, file string, out map[string]Source) {
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	var walk func(n *yaml.Node, prefix string)
	walk = func(n *yaml.Node, prefix string) {
		if n.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i].Value, n.Content[i+1]
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			out[path] = Source{Kind: SourceFile, File: file, Line: val.Line, Column: val.Column}
			walk(val, path)
		}
	}
	walk(node, "")
}

// withSource fills in where the offending value of a ValidationError was
// set.
func withSource(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return verr
}

// overrideSources lists the YAML paths set in overrides.
func overrideSources(o RawConfig) map[string]struct{} {
	out := map[string]struct{}{}
	set := func(path string, ok bool) {
		if ok {
			out[path] = struct{}{}
		}
	}
	set("display", o.Display != nil)
	set("clear_color", o.ClearColor != nil)
	set("select_root_events", o.SelectRootEvents != nil)
	set("register_selection", o.RegisterSelection != nil)
	if o.Loop != nil {
		set("loop.until", o.Loop.Until != nil)
		set("loop.max_frames", o.Loop.MaxFrames != nil)
		set("loop.on_render_error", o.Loop.OnRenderError != nil)
		set("loop.frame_interval", o.Loop.FrameInterval != nil)
	}
	if o.Log != nil {
		set("log.level", o.Log.Level != nil)
	}
	if o.IPC != nil {
		set("ipc.enabled", o.IPC.Enabled != nil)
	}
	return out
}
