package gpu

import (
	"errors"

	"github.com/gogpu/gputypes"
)

type fakePlatform struct {
	adapters    []*fakeAdapter
	surfaces    int
	lastDisplay uintptr
	lastWindow  uintptr
	surface     *fakeSurface
	createErr   error
	released    bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		adapters: []*fakeAdapter{{
			info: AdapterInfo{Name: "fake discrete", DeviceType: gputypes.DeviceTypeDiscreteGPU},
			caps: Capabilities{
				Formats:    []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb},
				AlphaModes: []AlphaMode{AlphaModeOpaque, AlphaModePremultiplied},
			},
		}},
	}
}

func (p *fakePlatform) CreateSurface(display, window uintptr) (Surface, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.surfaces++
	p.lastDisplay, p.lastWindow = display, window
	p.surface = &fakeSurface{}
	return p.surface, nil
}

func (p *fakePlatform) Adapters(Surface) []Adapter {
	out := make([]Adapter, 0, len(p.adapters))
	for _, a := range p.adapters {
		out = append(out, a)
	}
	return out
}

func (p *fakePlatform) Release() {
	p.released = true
}

type fakeAdapter struct {
	info      AdapterInfo
	caps      Capabilities
	deviceErr error
	devices   int
	device    *fakeDevice
	queue     *fakeQueue
}

func (a *fakeAdapter) Info() AdapterInfo {
	return a.info
}

func (a *fakeAdapter) Capabilities(Surface) Capabilities {
	return a.caps
}

func (a *fakeAdapter) RequestDevice() (Device, Queue, error) {
	if a.deviceErr != nil {
		return nil, nil, a.deviceErr
	}
	a.devices++
	a.device = &fakeDevice{id: a.devices}
	a.queue = &fakeQueue{}
	return a.device, a.queue, nil
}

type fakeSurface struct {
	configs    []SurfaceConfig
	acquireErr []error
	acquired   int
	last       *fakeFrame
	released   bool
}

func (s *fakeSurface) Configure(_ Device, cfg *SurfaceConfig) error {
	s.configs = append(s.configs, *cfg)
	return nil
}

func (s *fakeSurface) Acquire() (Frame, error) {
	if len(s.acquireErr) > 0 {
		err := s.acquireErr[0]
		s.acquireErr = s.acquireErr[1:]
		if err != nil {
			return nil, err
		}
	}
	s.acquired++
	s.last = &fakeFrame{}
	return s.last, nil
}

func (s *fakeSurface) Release(Device) { s.released = true }

type fakeFrame struct {
	discarded bool
	views     int
}

func (f *fakeFrame) View() (View, error) {
	f.views++
	return &fakeView{}, nil
}

func (f *fakeFrame) Discard() { f.discarded = true }

type fakeView struct{ released bool }

func (v *fakeView) Release() { v.released = true }

type fakeDevice struct {
	id        int
	encoders  int
	clears    []gputypes.Color
	finishErr error
	discards  int
	released  bool
}

func (d *fakeDevice) NewEncoder(string) (Encoder, error) {
	d.encoders++
	return &fakeEncoder{device: d}, nil
}

func (d *fakeDevice) Release() { d.released = true }

type fakeEncoder struct {
	device *fakeDevice
}

func (e *fakeEncoder) ClearPass(_ View, c gputypes.Color) {
	e.device.clears = append(e.device.clears, c)
}

func (e *fakeEncoder) Finish() (CommandBuffer, error) {
	if e.device.finishErr != nil {
		return nil, e.device.finishErr
	}
	return fakeCommandBuffer{}, nil
}

func (e *fakeEncoder) Discard() { e.device.discards++ }

type fakeCommandBuffer struct{}

func (fakeCommandBuffer) Release() {}

type fakeQueue struct {
	submits    int
	presents   int
	presentErr error
}

func (q *fakeQueue) Submit(CommandBuffer) error {
	q.submits++
	return nil
}

func (q *fakeQueue) Present(Surface, Frame) error {
	if q.presentErr != nil {
		return q.presentErr
	}
	q.presents++
	return nil
}

var errFake = errors.New("fake failure")
