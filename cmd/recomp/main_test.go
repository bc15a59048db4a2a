package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gogpu/gputypes"

	"github.com/1broseidon/recomp/internal/compositor"
	"github.com/1broseidon/recomp/internal/config"
	"github.com/1broseidon/recomp/internal/ipc"
	"github.com/1broseidon/recomp/internal/runtimepath"
	"github.com/1broseidon/recomp/internal/x11"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    uint32
		wantErr bool
	}{
		{in: "1920x1080", w: 1920, h: 1080},
		{in: " 800X600 ", w: 800, h: 600},
		{in: "1920", wantErr: true},
		{in: "0x600", wantErr: true},
		{in: "800x0", wantErr: true},
		{in: "-1x600", wantErr: true},
		{in: "axb", wantErr: true},
		{in: "99999999999x1", wantErr: true},
	}

	for _, tt := range tests {
		w, h, err := parseSize(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSize(%q) expected error, got %dx%d", tt.in, w, h)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSize(%q): %v", tt.in, err)
			continue
		}
		if w != tt.w || h != tt.h {
			t.Errorf("parseSize(%q) = %dx%d, want %dx%d", tt.in, w, h, tt.w, tt.h)
		}
	}
}

func TestResolveLevel(t *testing.T) {
	t.Setenv(logEnv, "")
	if got := resolveLevel("warn", false); got != charmlog.WarnLevel {
		t.Fatalf("configured warn: got %v", got)
	}
	if got := resolveLevel("bogus", false); got != charmlog.InfoLevel {
		t.Fatalf("unknown level: got %v", got)
	}

	t.Setenv(logEnv, "ERROR")
	if got := resolveLevel("warn", false); got != charmlog.ErrorLevel {
		t.Fatalf("env should win over config: got %v", got)
	}
	if got := resolveLevel("warn", true); got != charmlog.DebugLevel {
		t.Fatalf("--debug should win: got %v", got)
	}
}

func TestNewLogger_LogfmtWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, charmlog.InfoLevel)
	logger.Debug("hidden")
	logger.Info("surface configured", "width", 1920)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record emitted at info level: %q", out)
	}
	if !strings.Contains(out, "surface configured") || !strings.Contains(out, "width=1920") {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestRunFlags_Overrides(t *testing.T) {
	root := newRootCmd()
	if err := root.ParseFlags([]string{"--frames", "10", "--display", ":3"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	g := &globalFlags{display: ":3"}
	rf := &runFlags{frames: 10}

	raw := rf.overrides(root, g)
	if raw.Display == nil || *raw.Display != ":3" {
		t.Fatalf("display override = %v", raw.Display)
	}
	if raw.Loop == nil || raw.Loop.MaxFrames == nil || *raw.Loop.MaxFrames != 10 {
		t.Fatalf("frames override = %+v", raw.Loop)
	}
	if raw.Loop.Until == nil || *raw.Loop.Until != config.UntilFrames {
		t.Fatalf("--frames should imply until frames, got %+v", raw.Loop)
	}

	empty := newRootCmd()
	if raw := (&runFlags{}).overrides(empty, &globalFlags{}); raw.Display != nil || raw.Loop != nil {
		t.Fatalf("expected no overrides, got %+v", raw)
	}
}

func TestCompositorOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Loop.Until = config.UntilFrames
	cfg.Loop.MaxFrames = 3

	opts := compositorOptions(cfg)
	if opts.ClearColor != (gputypes.Color{R: 0.1, G: 0.2, B: 0.5, A: 1.0}) {
		t.Fatalf("clear colour = %+v", opts.ClearColor)
	}
	if opts.Loop.Until != compositor.UntilFrames || opts.Loop.MaxFrames != 3 {
		t.Fatalf("loop = %+v", opts.Loop)
	}
	if err := opts.Loop.Validate(); err != nil {
		t.Fatalf("mapped loop options invalid: %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")

	out, err := execute(t, "config", "validate", "--config", path)
	if err != nil || !strings.Contains(out, "config: ok") {
		t.Fatalf("validate: %v %q", err, out)
	}

	out, err = execute(t, "config", "print", "--config", path)
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(out, "level: debug") || !strings.Contains(out, "clear_color: [0.1, 0.2, 0.5, 1]") {
		t.Fatalf("unexpected print output:\n%s", out)
	}

	out, err = execute(t, "config", "explain", "log.level", "--config", path)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.Contains(out, "source: file:") || !strings.Contains(out, "debug") {
		t.Fatalf("unexpected explain output:\n%s", out)
	}

	out, err = execute(t, "config", "explain", "display", "--config", path, "--display", ":5")
	if err != nil {
		t.Fatalf("explain display: %v", err)
	}
	if !strings.Contains(out, "source: flag") || !strings.Contains(out, ":5") {
		t.Fatalf("unexpected explain output:\n%s", out)
	}

	bad := writeConfig(t, "loop:\n  until: forever\n")
	if _, err := execute(t, "config", "validate", "--config", bad); err == nil {
		t.Fatal("expected validation error")
	}
}

type stubController struct {
	mu      sync.Mutex
	stopped bool
	size    [2]uint32
}

func (s *stubController) Status() compositor.Status {
	return compositor.Status{
		State:    compositor.StateRunning,
		Frames:   7,
		Overlay:  0x200001,
		Root:     0x100,
		Width:    1920,
		Height:   1080,
		Versions: x11.Versions{Composite: x11.Version{Major: 0, Minor: 4}},
		Uptime:   3 * time.Second,
	}
}

func (s *stubController) RequestStop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *stubController) RequestResize(_ context.Context, w, h uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = [2]uint32{w, h}
	return nil
}

func TestControlCommands(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	socket, err := runtimepath.SocketPath(":9")
	if err != nil {
		t.Fatalf("socket path: %v", err)
	}
	ctrl := &stubController{}
	srv := ipc.NewServer(socket, ctrl, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Stop()

	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")

	out, err := execute(t, "status", "--display", ":9", "--config", cfgPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"state:           running", "frames_rendered: 7", "overlay:         0x200001", "surface:         1920x1080", "Composite 0.4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "resize", "1280x720", "--display", ":9", "--config", cfgPath); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if _, err := execute(t, "stop", "--display", ":9", "--config", cfgPath); err != nil {
		t.Fatalf("stop: %v", err)
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if !ctrl.stopped || ctrl.size != [2]uint32{1280, 720} {
		t.Fatalf("controller state = %+v", ctrl)
	}

	if _, err := execute(t, "status", "--display", ":8", "--config", cfgPath); err == nil {
		t.Fatal("expected error for display without a compositor")
	}
}
