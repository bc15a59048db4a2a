package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/spf13/cobra"

	"github.com/1broseidon/recomp/internal/compositor"
	"github.com/1broseidon/recomp/internal/config"
	"github.com/1broseidon/recomp/internal/gpu"
	"github.com/1broseidon/recomp/internal/ipc"
	"github.com/1broseidon/recomp/internal/runtimepath"
	"github.com/1broseidon/recomp/internal/x11"
)

// closeTimeout bounds teardown after the loop returns.
const closeTimeout = 5 * time.Second

// runFlags override loop settings from the config file.
type runFlags struct {
	frames uint64
	until  string
	debug  bool
}

func (rf *runFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Uint64Var(&rf.frames, "frames", 0, "Stop after this many frames (implies --until frames)")
	f.StringVar(&rf.until, "until", "", "Loop termination: cancelled, frames, first-event")
	f.BoolVar(&rf.debug, "debug", false, "Enable debug logging")
}

func newRunCmd(g *globalFlags) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the compositor (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompositor(cmd, g, rf)
		},
	}
	rf.register(cmd)
	return cmd
}

// overrides turns the flags the user actually set into a config overlay.
func (rf *runFlags) overrides(cmd *cobra.Command, g *globalFlags) config.RawConfig {
	var raw config.RawConfig
	if g.display != "" {
		display := g.display
		raw.Display = &display
	}

	var loop config.RawLoop
	set := false
	if cmd.Flags().Changed("frames") {
		frames := rf.frames
		loop.MaxFrames = &frames
		if !cmd.Flags().Changed("until") {
			until := config.UntilFrames
			loop.Until = &until
		}
		set = true
	}
	if cmd.Flags().Changed("until") {
		until := rf.until
		loop.Until = &until
		set = true
	}
	if set {
		raw.Loop = &loop
	}
	return raw
}

func loadConfig(g *globalFlags, overrides config.RawConfig) (*config.LoadResult, error) {
	path := g.configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	return config.LoadFromPathWithOverrides(path, overrides)
}

func compositorOptions(cfg *config.Config) compositor.Options {
	c := cfg.ClearColor
	return compositor.Options{
		ClearColor:        gputypes.Color{R: c[0], G: c[1], B: c[2], A: c[3]},
		SelectRootEvents:  cfg.SelectRootEvents,
		RegisterSelection: cfg.RegisterSelection,
		Loop: compositor.LoopOptions{
			Until:         compositor.Until(cfg.Loop.Until),
			MaxFrames:     cfg.Loop.MaxFrames,
			OnRenderError: compositor.RenderErrorPolicy(cfg.Loop.OnRenderError),
			FrameInterval: cfg.Loop.FrameInterval,
		},
	}
}

func runCompositor(cmd *cobra.Command, g *globalFlags, rf *runFlags) error {
	res, err := loadConfig(g, rf.overrides(cmd, g))
	if err != nil {
		return err
	}
	cfg := res.Config

	logger := newLogger(cmd.ErrOrStderr(), resolveLevel(cfg.Log.Level, rf.debug))
	for _, f := range res.Files {
		logger.Debug("loaded config", "file", f)
	}

	conn, err := x11.Connect(cfg.Display, logger)
	if err != nil {
		return err
	}

	logOutputs(logger, conn)

	platform, err := gpu.NewHALPlatform()
	if err != nil {
		conn.Close()
		return fmt.Errorf("gpu: %w", err)
	}

	opts := compositorOptions(cfg)
	opts.Logger = logger
	comp, err := compositor.New(conn, platform, opts)
	if err != nil {
		platform.Release()
		conn.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *ipc.Server
	if cfg.IPC.Enabled {
		socketPath, err := runtimepath.SocketPath(cfg.Display)
		if err != nil {
			logger.Warn("control socket disabled", "error", err)
		} else {
			server = ipc.NewServer(socketPath, comp, logger)
			if err := server.Start(); err != nil {
				logger.Warn("control socket disabled", "error", err)
				server = nil
			}
		}
	}

	runErr := comp.Run(ctx)
	if server != nil {
		server.Stop()
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	closeErr := comp.Close(closeCtx)

	st := comp.Status()
	logger.Info("compositor exited", "frames", st.Frames, "events", st.Events, "uptime", st.Uptime.Round(time.Millisecond))
	return errors.Join(runErr, closeErr)
}

func logOutputs(logger *slog.Logger, conn *x11.Connection) {
	outputs, err := conn.Outputs()
	if err != nil {
		logger.Debug("output query failed", "error", err)
		return
	}
	for _, o := range outputs {
		logger.Debug("output", "name", o.Name, "x", o.X, "y", o.Y, "width", o.Width, "height", o.Height)
	}
	for _, o := range x11.Uncovered(conn.Screen(), outputs) {
		logger.Warn("output outside the root window", "name", o.Name)
	}
}
