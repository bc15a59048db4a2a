package compositor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/gogpu/gputypes"

	"github.com/1broseidon/recomp/internal/gpu"
	"github.com/1broseidon/recomp/internal/x11"
)

// SelectionName is the EWMH name given to the compositing manager
// selection owner window.
const SelectionName = "recomp"

// Display is the X11 surface the compositor drives. *x11.Connection
// implements it.
type Display interface {
	x11.Requester
	Screen() x11.Screen
	NativeDisplay() uintptr
	PollEvent() (x11.Event, bool)
	SelectRootEvents() error
	ClaimCompositorSelection(name string) (xproto.Window, error)
	ReleaseCompositorSelection(win xproto.Window) error
	Close() error
}

// Options configures a Compositor.
type Options struct {
	ClearColor        gputypes.Color
	SelectRootEvents  bool
	RegisterSelection bool
	Loop              LoopOptions
	Logger            *slog.Logger
}

// Compositor owns the overlay window and the GPU surface presenting to it.
//
// Setup happens in New. Run drives the render/event loop on the calling
// goroutine and Close tears everything down. Status, RequestStop and
// RequestResize are safe to call from other goroutines.
type Compositor struct {
	display  Display
	screen   x11.Screen
	versions x11.Versions
	overlay  xproto.Window
	format   gputypes.TextureFormat
	gpu      *gpu.Context
	opts     LoopOptions
	logger   *slog.Logger
	started  time.Time

	state    atomic.Int32
	frames   atomic.Uint64
	events   atomic.Uint64
	damage   atomic.Uint64
	errs     atomic.Uint64
	sizeMu   sync.Mutex
	size     gpu.Size
	commands chan request
	done     chan struct{}
	runOnce  sync.Once

	td      *teardown
	cleanup runtime.Cleanup
}

// New negotiates extensions, claims the overlay and binds a GPU surface to
// it, sized to the screen.
//
// On failure everything New acquired is released again; display and
// platform remain owned by the caller. On success the Compositor owns both
// and Close releases them.
func New(display Display, platform gpu.Platform, opts Options) (*Compositor, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	loopOpts := opts.Loop.withDefaults()
	if err := loopOpts.Validate(); err != nil {
		return nil, err
	}

	versions, err := x11.Negotiate(display, logger)
	if err != nil {
		return nil, err
	}

	screen := display.Screen()

	var selection xproto.Window
	if opts.RegisterSelection {
		selection, err = display.ClaimCompositorSelection(SelectionName)
		if err != nil {
			return nil, err
		}
	}
	releaseSelection := func() {
		if err := display.ReleaseCompositorSelection(selection); err != nil {
			logger.Warn("failed to release compositor selection", "window", selection, "error", err)
		}
	}

	if opts.SelectRootEvents {
		if err := display.SelectRootEvents(); err != nil {
			releaseSelection()
			return nil, fmt.Errorf("select root events: %w", err)
		}
	}

	overlay, err := x11.AcquireOverlay(display, screen.Root)
	var shapeWarn *x11.ShapeWarning
	switch {
	case errors.As(err, &shapeWarn):
		logger.Warn("overlay accepts input", "overlay", overlay, "error", err)
	case err != nil:
		releaseSelection()
		return nil, err
	}
	logger.Info("overlay window acquired", "overlay", overlay, "root", screen.Root)

	size := gpu.Size{Width: uint32(screen.Width), Height: uint32(screen.Height)}
	ctx, err := gpu.CreateSurface(platform,
		gpu.Target{Display: display.NativeDisplay(), Window: uint32(overlay)},
		size,
		gpu.Options{ClearColor: opts.ClearColor, Logger: logger})
	if err != nil {
		if rerr := x11.ReleaseOverlay(display, screen.Root, overlay); rerr != nil {
			logger.Warn("failed to release overlay", "error", rerr)
		}
		releaseSelection()
		return nil, err
	}

	c := &Compositor{
		display:  display,
		screen:   screen,
		versions: versions,
		overlay:  overlay,
		format:   ctx.Config().Format,
		gpu:      ctx,
		opts:     loopOpts,
		logger:   logger,
		started:  time.Now(),
		size:     size,
		commands: make(chan request, 8),
		done:     make(chan struct{}),
		td: &teardown{
			display:   display,
			gpu:       ctx,
			root:      screen.Root,
			overlay:   overlay,
			selection: selection,
			logger:    logger,
		},
	}
	c.cleanup = runtime.AddCleanup(c, func(td *teardown) {
		go td.run()
	}, c.td)
	return c, nil
}

// Overlay returns the composite overlay window id.
func (c *Compositor) Overlay() xproto.Window {
	return c.overlay
}

// Screen returns the screen the compositor was set up on.
func (c *Compositor) Screen() x11.Screen {
	return c.screen
}

// Versions returns the negotiated extension versions.
func (c *Compositor) Versions() x11.Versions {
	return c.versions
}

// SurfaceConfig returns the current GPU surface configuration. It must be
// called from the goroutine running the loop, or after Run returned.
func (c *Compositor) SurfaceConfig() gpu.SurfaceConfig {
	return c.gpu.Config()
}

// Status is a point-in-time snapshot of the compositor.
type Status struct {
	State    State
	Frames   uint64
	Events   uint64
	Damage   uint64
	Errors   uint64
	Overlay  xproto.Window
	Root     xproto.Window
	Width    uint32
	Height   uint32
	Format   gputypes.TextureFormat
	Versions x11.Versions
	Uptime   time.Duration
}

// Status returns a snapshot of the compositor's counters and surface size.
func (c *Compositor) Status() Status {
	c.sizeMu.Lock()
	size := c.size
	c.sizeMu.Unlock()

	return Status{
		State:    State(c.state.Load()),
		Frames:   c.frames.Load(),
		Events:   c.events.Load(),
		Damage:   c.damage.Load(),
		Errors:   c.errs.Load(),
		Overlay:  c.overlay,
		Root:     c.screen.Root,
		Width:    size.Width,
		Height:   size.Height,
		Format:   c.format,
		Versions: c.versions,
		Uptime:   time.Since(c.started),
	}
}

// Close releases the overlay, the GPU context, the selection window and
// the display connection, in that order. Run must have returned before
// Close is called.
//
// Only the first call does any work; later calls return the first call's
// result. If ctx ends before teardown finishes, Close returns ctx's error
// and teardown continues in the background.
func (c *Compositor) Close(ctx context.Context) error {
	c.cleanup.Stop()

	finished := make(chan error, 1)
	go func() {
		finished <- c.td.run()
	}()
	select {
	case err := <-finished:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// teardown holds what Close releases. It is separate from Compositor so
// the cleanup fallback can run it without keeping the Compositor alive.
type teardown struct {
	display   Display
	gpu       *gpu.Context
	root      xproto.Window
	overlay   xproto.Window
	selection xproto.Window
	logger    *slog.Logger

	once sync.Once
	err  error
}

func (t *teardown) run() error {
	t.once.Do(func() {
		var errs []error
		if err := x11.ReleaseOverlay(t.display, t.root, t.overlay); err != nil {
			t.logger.Warn("overlay release incomplete", "overlay", t.overlay, "error", err)
			errs = append(errs, err)
		}

		// The surface borrows the native display; it must go first.
		t.gpu.Release()

		if err := t.display.ReleaseCompositorSelection(t.selection); err != nil {
			t.logger.Warn("failed to release compositor selection", "window", t.selection, "error", err)
			errs = append(errs, err)
		}
		if err := t.display.Close(); err != nil {
			t.logger.Warn("failed to close display", "error", err)
			errs = append(errs, err)
		}
		t.err = errors.Join(errs...)
		t.logger.Info("compositor shut down")
	})
	return t.err
}
