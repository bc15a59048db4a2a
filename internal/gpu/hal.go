package gpu

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

const (
	// submitTimeout bounds the wait for a submitted frame to finish on the GPU.
	submitTimeout      = 5 * time.Second
	submitPollInterval = 500 * time.Microsecond
)

var (
	// ErrSubmitTimeout reports GPU work that did not complete in time.
	ErrSubmitTimeout = errors.New("gpu: submitted work did not complete")

	// ErrWaylandSession reports a session where the Vulkan backend would
	// create a Wayland surface instead of an X11 one.
	ErrWaylandSession = errors.New("gpu: WAYLAND_DISPLAY is set; the Vulkan backend would target Wayland instead of X11")
)

// checkSession rejects environments where surface creation would not use
// the X11 window handles.
func checkSession(getenv func(string) string) error {
	if getenv("WAYLAND_DISPLAY") != "" {
		return ErrWaylandSession
	}
	return nil
}

// NewHALPlatform creates a Vulkan instance through gogpu/wgpu's HAL. Vulkan
// is the only backend requested; there is no fallback to other backends.
func NewHALPlatform() (Platform, error) {
	if err := checkSession(os.Getenv); err != nil {
		return nil, err
	}
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	return &halPlatform{instance: instance}, nil
}

type halPlatform struct {
	instance hal.Instance
}

func (p *halPlatform) CreateSurface(display, window uintptr) (Surface, error) {
	raw, err := p.instance.CreateSurface(display, window)
	if err != nil {
		return nil, err
	}
	return &halSurface{raw: raw}, nil
}

func (p *halPlatform) Adapters(surface Surface) []Adapter {
	var hint hal.Surface
	if s, ok := surface.(*halSurface); ok {
		hint = s.raw
	}
	exposed := p.instance.EnumerateAdapters(hint)
	out := make([]Adapter, 0, len(exposed))
	for i := range exposed {
		out = append(out, &halAdapter{exposed: exposed[i]})
	}
	return out
}

func (p *halPlatform) Release() {
	p.instance.Destroy()
}

type halAdapter struct {
	exposed hal.ExposedAdapter
}

func (a *halAdapter) Info() AdapterInfo {
	return AdapterInfo{
		Name:       a.exposed.Info.Name,
		DeviceType: a.exposed.Info.DeviceType,
	}
}

func (a *halAdapter) Capabilities(surface Surface) Capabilities {
	s, ok := surface.(*halSurface)
	if !ok {
		return Capabilities{}
	}
	caps := a.exposed.Adapter.SurfaceCapabilities(s.raw)
	if caps == nil {
		return Capabilities{}
	}
	out := Capabilities{
		Formats:    append([]gputypes.TextureFormat(nil), caps.Formats...),
		AlphaModes: make([]AlphaMode, 0, len(caps.AlphaModes)),
	}
	for _, m := range caps.AlphaModes {
		out.AlphaModes = append(out.AlphaModes, AlphaMode(m))
	}
	return out
}

func (a *halAdapter) RequestDevice() (Device, Queue, error) {
	open, err := a.exposed.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, nil, err
	}
	dev := &halDevice{raw: open.Device}
	return dev, &halQueue{raw: open.Queue, device: dev}, nil
}

type halSurface struct {
	raw    hal.Surface
	device *halDevice
}

func (s *halSurface) Configure(device Device, cfg *SurfaceConfig) error {
	dev, ok := device.(*halDevice)
	if !ok {
		return fmt.Errorf("surface configure: foreign device %T", device)
	}
	// The HAL picks the image count from the present mode; view formats
	// and frame latency have no HAL counterpart.
	err := s.raw.Configure(dev.raw, &hal.SurfaceConfiguration{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Format:      cfg.Format,
		Usage:       cfg.Usage,
		PresentMode: halPresentMode(cfg.PresentMode),
		AlphaMode:   hal.CompositeAlphaMode(cfg.AlphaMode),
	})
	if err != nil {
		return err
	}
	s.device = dev
	return nil
}

func (s *halSurface) Acquire() (Frame, error) {
	if s.device == nil {
		return nil, fmt.Errorf("%w: surface not configured", ErrSurfaceUnavailable)
	}
	acquired, err := s.raw.AcquireTexture(nil)
	if err != nil {
		if errors.Is(err, hal.ErrSurfaceLost) || errors.Is(err, hal.ErrSurfaceOutdated) {
			return nil, fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
		}
		return nil, err
	}
	// A suboptimal frame is still presentable.
	return &halFrame{surface: s, texture: acquired.Texture}, nil
}

func (s *halSurface) Release(device Device) {
	if dev, ok := device.(*halDevice); ok && dev != nil {
		s.raw.Unconfigure(dev.raw)
	}
	s.raw.Destroy()
}

type halFrame struct {
	surface *halSurface
	texture hal.SurfaceTexture
}

func (f *halFrame) View() (View, error) {
	dev := f.surface.device
	raw, err := dev.raw.CreateTextureView(f.texture, &hal.TextureViewDescriptor{
		Label:     "overlay frame",
		Format:    gputypes.TextureFormatUndefined,
		Dimension: gputypes.TextureViewDimension2D,
		Aspect:    gputypes.TextureAspectAll,
	})
	if err != nil {
		return nil, err
	}
	return &halView{raw: raw, device: dev}, nil
}

func (f *halFrame) Discard() {
	f.surface.raw.DiscardTexture(f.texture)
}

type halView struct {
	raw    hal.TextureView
	device *halDevice
}

func (v *halView) Release() {
	v.device.raw.DestroyTextureView(v.raw)
}

type halDevice struct {
	raw hal.Device
}

func (d *halDevice) NewEncoder(label string) (Encoder, error) {
	enc, err := d.raw.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return &halEncoder{raw: enc, device: d}, nil
}

func (d *halDevice) Release() {
	d.raw.Destroy()
}

type halEncoder struct {
	raw    hal.CommandEncoder
	device *halDevice
}

func (e *halEncoder) ClearPass(view View, c gputypes.Color) {
	v := view.(*halView)
	rp := e.raw.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "Render Pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       v.raw,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: c,
		}},
	})
	rp.End()
}

func (e *halEncoder) Finish() (CommandBuffer, error) {
	cmd, err := e.raw.EndEncoding()
	if err != nil {
		return nil, err
	}
	return &halCommandBuffer{raw: cmd, device: e.device}, nil
}

func (e *halEncoder) Discard() {
	e.raw.DiscardEncoding()
}

type halCommandBuffer struct {
	raw    hal.CommandBuffer
	device *halDevice
}

func (b *halCommandBuffer) Release() {
	b.device.raw.FreeCommandBuffer(b.raw)
}

type halQueue struct {
	raw    hal.Queue
	device *halDevice
}

// Submit waits for the work to finish so the frame's view can be released
// right after presentation.
func (q *halQueue) Submit(cmd CommandBuffer) error {
	b := cmd.(*halCommandBuffer)
	idx, err := q.raw.Submit([]hal.CommandBuffer{b.raw})
	if err != nil {
		return err
	}
	return waitSubmission(q.raw.PollCompleted, idx, submitTimeout)
}

// waitSubmission polls until the submission idx is reported complete.
func waitSubmission(poll func() uint64, idx uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for poll() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d after %v", ErrSubmitTimeout, idx, timeout)
		}
		time.Sleep(submitPollInterval)
	}
	return nil
}

func (q *halQueue) Present(surface Surface, frame Frame) error {
	s := surface.(*halSurface)
	f := frame.(*halFrame)
	if err := q.raw.Present(s.raw, f.texture, nil); err != nil {
		if errors.Is(err, hal.ErrSurfaceLost) || errors.Is(err, hal.ErrSurfaceOutdated) {
			return fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
		}
		return err
	}
	return nil
}

func halPresentMode(m PresentMode) hal.PresentMode {
	switch m {
	case PresentModeFifoRelaxed:
		return hal.PresentModeFifoRelaxed
	case PresentModeMailbox:
		return hal.PresentModeMailbox
	case PresentModeImmediate:
		return hal.PresentModeImmediate
	default:
		return hal.PresentModeFifo
	}
}
