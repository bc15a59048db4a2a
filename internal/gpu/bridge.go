package gpu

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gogpu/gputypes"
)

var (
	ErrNoAdapter          = errors.New("gpu: no compatible adapter found")
	ErrNoFormat           = errors.New("gpu: surface reports no texture format")
	ErrNoAlphaMode        = errors.New("gpu: surface reports no alpha mode")
	ErrDeviceRequest      = errors.New("gpu: device request rejected")
	ErrHandleRange        = errors.New("gpu: native handle out of range")
	ErrSurfaceUnavailable = errors.New("gpu: surface lost or outdated")
)

// DefaultClearColor is the colour every frame is cleared to.
var DefaultClearColor = gputypes.Color{R: 0.1, G: 0.2, B: 0.5, A: 1.0}

// maxFrameLatency bounds how many frames may be queued for presentation.
const maxFrameLatency = 2

// Target names the native window a surface presents to.
type Target struct {
	Display uintptr
	Window  uint32
}

// Size is a surface size in pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// Options tunes surface creation.
type Options struct {
	ClearColor gputypes.Color
	Logger     *slog.Logger
}

// Context is a configured surface bound to one overlay window, plus the
// device and queue that render into it.
type Context struct {
	platform Platform
	surface  Surface
	adapter  Adapter
	device   Device
	queue    Queue
	config   SurfaceConfig
	clear    gputypes.Color
	logger   *slog.Logger
	released bool
}

// CreateSurface binds a GPU surface to target and configures it to size.
//
// The native display in target must stay open until Release; the surface
// keeps a borrowed pointer to it.
func CreateSurface(p Platform, target Target, size Size, opts Options) (*Context, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clearColor := opts.ClearColor
	if clearColor == (gputypes.Color{}) {
		clearColor = DefaultClearColor
	}

	window, err := nativeWindow(target)
	if err != nil {
		return nil, err
	}

	surface, err := p.CreateSurface(target.Display, window)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}

	adapter, err := selectAdapter(p.Adapters(surface))
	if err != nil {
		surface.Release(nil)
		return nil, err
	}
	info := adapter.Info()
	logger.Info("GPU adapter selected", "name", info.Name, "type", info.DeviceType)

	device, queue, err := adapter.RequestDevice()
	if err != nil {
		surface.Release(nil)
		return nil, fmt.Errorf("%w: %v", ErrDeviceRequest, err)
	}

	caps := adapter.Capabilities(surface)
	format, err := selectFormat(caps.Formats)
	if err != nil {
		surface.Release(nil)
		device.Release()
		return nil, err
	}
	if len(caps.AlphaModes) == 0 {
		surface.Release(nil)
		device.Release()
		return nil, ErrNoAlphaMode
	}

	cfg := SurfaceConfig{
		Usage:                      gputypes.TextureUsageRenderAttachment,
		Format:                     format,
		Width:                      size.Width,
		Height:                     size.Height,
		PresentMode:                PresentModeFifo,
		AlphaMode:                  caps.AlphaModes[0],
		ViewFormats:                nil,
		DesiredMaximumFrameLatency: maxFrameLatency,
	}
	if err := surface.Configure(device, &cfg); err != nil {
		surface.Release(nil)
		device.Release()
		return nil, fmt.Errorf("configure surface: %w", err)
	}

	logger.Info("surface configured",
		"format", format,
		"width", cfg.Width,
		"height", cfg.Height,
		"present_mode", cfg.PresentMode,
		"alpha_mode", cfg.AlphaMode)

	return &Context{
		platform: p,
		surface:  surface,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		config:   cfg,
		clear:    clearColor,
		logger:   logger,
	}, nil
}

func nativeWindow(target Target) (uintptr, error) {
	if target.Display == 0 {
		return 0, fmt.Errorf("%w: nil display", ErrHandleRange)
	}
	if target.Window == 0 {
		return 0, fmt.Errorf("%w: window id 0", ErrHandleRange)
	}
	return uintptr(target.Window), nil
}

// selectAdapter picks the first hardware adapter. Software adapters are
// never used as a fallback.
func selectAdapter(adapters []Adapter) (Adapter, error) {
	for _, a := range adapters {
		if a.Info().DeviceType == gputypes.DeviceTypeCPU {
			continue
		}
		return a, nil
	}
	return nil, ErrNoAdapter
}

// selectFormat prefers an sRGB format and falls back to the first reported.
func selectFormat(formats []gputypes.TextureFormat) (gputypes.TextureFormat, error) {
	for _, f := range formats {
		if isSRGB(f) {
			return f, nil
		}
	}
	if len(formats) == 0 {
		return 0, ErrNoFormat
	}
	return formats[0], nil
}

func isSRGB(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8UnormSrgb:
		return true
	}
	return false
}

// Config returns a copy of the current surface configuration.
func (c *Context) Config() SurfaceConfig {
	cfg := c.config
	cfg.ViewFormats = append([]gputypes.TextureFormat(nil), c.config.ViewFormats...)
	return cfg
}

// Adapter returns the adapter the context was created on.
func (c *Context) Adapter() Adapter {
	return c.adapter
}

// Device returns the logical device. It is stable across Resize.
func (c *Context) Device() Device {
	return c.device
}

// ClearColor returns the colour frames are cleared to.
func (c *Context) ClearColor() gputypes.Color {
	return c.clear
}

// Resize reconfigures the surface to width x height. The surface and
// device are reused. Callers must not pass a zero dimension.
func (c *Context) Resize(width, height uint32) error {
	c.config.Width = width
	c.config.Height = height
	if err := c.surface.Configure(c.device, &c.config); err != nil {
		return fmt.Errorf("configure surface: %w", err)
	}
	c.logger.Debug("surface resized", "width", width, "height", height)
	return nil
}

// Reconfigure re-applies the current configuration, which recovers a
// surface that went out of date.
func (c *Context) Reconfigure() error {
	return c.Resize(c.config.Width, c.config.Height)
}

// Render clears the whole surface to the clear colour and presents it.
func (c *Context) Render() error {
	frame, err := c.surface.Acquire()
	if err != nil {
		if errors.Is(err, ErrSurfaceUnavailable) {
			return err
		}
		return fmt.Errorf("acquire frame: %w", err)
	}

	view, err := frame.View()
	if err != nil {
		frame.Discard()
		return fmt.Errorf("create view: %w", err)
	}
	defer view.Release()

	enc, err := c.device.NewEncoder("Render Encoder")
	if err != nil {
		frame.Discard()
		return fmt.Errorf("create command encoder: %w", err)
	}
	enc.ClearPass(view, c.clear)

	cmd, err := enc.Finish()
	if err != nil {
		enc.Discard()
		frame.Discard()
		return fmt.Errorf("finish encoding: %w", err)
	}
	defer cmd.Release()

	if err := c.queue.Submit(cmd); err != nil {
		frame.Discard()
		return fmt.Errorf("submit: %w", err)
	}
	if err := c.queue.Present(c.surface, frame); err != nil {
		if errors.Is(err, ErrSurfaceUnavailable) {
			return err
		}
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// Release destroys the surface, device and backend instance, in that
// order. The native display may be closed afterwards.
func (c *Context) Release() {
	if c == nil || c.released {
		return
	}
	c.released = true
	c.surface.Release(c.device)
	c.device.Release()
	c.platform.Release()
}
