package compositor

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/gogpu/gputypes"

	"github.com/1broseidon/recomp/internal/gpu"
	"github.com/1broseidon/recomp/internal/x11"
)

const (
	testRoot    xproto.Window = 0x100
	testOverlay xproto.Window = 0x200001
)

var errFake = errors.New("fake failure")

// fakeDisplay records requests in order and replays queued events.
type fakeDisplay struct {
	mu     sync.Mutex
	calls  []string
	events []x11.Event
	failOn map[string]error

	missing   map[x11.Extension]bool
	overlay   xproto.Window
	closeHook func()
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{
		failOn:  map[string]error{},
		missing: map[x11.Extension]bool{},
		overlay: testOverlay,
	}
}

func (d *fakeDisplay) record(format string, args ...any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	call := fmt.Sprintf(format, args...)
	d.calls = append(d.calls, call)
	for prefix, err := range d.failOn {
		if strings.HasPrefix(call, prefix) {
			return err
		}
	}
	return nil
}

func (d *fakeDisplay) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDisplay) count(call string) int {
	n := 0
	for _, c := range d.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (d *fakeDisplay) QueryVersion(ext x11.Extension, major, minor uint32) (x11.Version, error) {
	if err := d.record("QueryVersion(%s)", ext); err != nil {
		return x11.Version{}, err
	}
	if d.missing[ext] {
		return x11.Version{}, fmt.Errorf("%w: %s", x11.ErrExtensionUnavailable, ext)
	}
	return x11.Version{Major: 1, Minor: 0}, nil
}

func (d *fakeDisplay) RedirectSubwindows(root xproto.Window) error {
	return d.record("RedirectSubwindows(%d)", root)
}

func (d *fakeDisplay) UnredirectSubwindows(root xproto.Window) error {
	return d.record("UnredirectSubwindows(%d)", root)
}

func (d *fakeDisplay) GetOverlayWindow(root xproto.Window) (xproto.Window, error) {
	if err := d.record("GetOverlayWindow(%d)", root); err != nil {
		return 0, err
	}
	return d.overlay, nil
}

func (d *fakeDisplay) ReleaseOverlayWindow(overlay xproto.Window) error {
	return d.record("ReleaseOverlayWindow(%d)", overlay)
}

func (d *fakeDisplay) CreateRegion() (xfixes.Region, error) {
	if err := d.record("CreateRegion()"); err != nil {
		return 0, err
	}
	return 0x300001, nil
}

func (d *fakeDisplay) SetInputShapeRegion(win xproto.Window, region xfixes.Region) error {
	return d.record("SetInputShapeRegion(%d)", win)
}

func (d *fakeDisplay) DestroyRegion(region xfixes.Region) error {
	return d.record("DestroyRegion()")
}

func (d *fakeDisplay) Screen() x11.Screen {
	return x11.Screen{Index: 0, Root: testRoot, Width: 1920, Height: 1080}
}

func (d *fakeDisplay) NativeDisplay() uintptr {
	return 0xd15
}

func (d *fakeDisplay) PollEvent() (x11.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.events) == 0 {
		return x11.Event{}, false
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, true
}

func (d *fakeDisplay) queue(evs ...x11.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evs...)
}

func (d *fakeDisplay) SelectRootEvents() error {
	return d.record("SelectRootEvents()")
}

func (d *fakeDisplay) ClaimCompositorSelection(name string) (xproto.Window, error) {
	if err := d.record("ClaimCompositorSelection(%s)", name); err != nil {
		return 0, err
	}
	return 0x400001, nil
}

func (d *fakeDisplay) ReleaseCompositorSelection(win xproto.Window) error {
	return d.record("ReleaseCompositorSelection(%d)", win)
}

func (d *fakeDisplay) Close() error {
	if d.closeHook != nil {
		d.closeHook()
	}
	return d.record("Close()")
}

// fakePlatform is a GPU backend that records configuration and frames.
type fakePlatform struct {
	mu sync.Mutex

	noAdapter  bool
	configs    []gpu.SurfaceConfig
	renderErrs []error
	rendered   int
	events     []string
	devices    int
}

func (p *fakePlatform) log(ev string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *fakePlatform) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *fakePlatform) Rendered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rendered
}

func (p *fakePlatform) CreateSurface(display, window uintptr) (gpu.Surface, error) {
	p.log(fmt.Sprintf("CreateSurface(%#x,%#x)", display, window))
	return &fakeSurface{p: p}, nil
}

func (p *fakePlatform) Adapters(gpu.Surface) []gpu.Adapter {
	if p.noAdapter {
		return nil
	}
	return []gpu.Adapter{&fakeAdapter{p: p}}
}

func (p *fakePlatform) Release() {
	p.log("ReleasePlatform")
}

type fakeAdapter struct{ p *fakePlatform }

func (a *fakeAdapter) Info() gpu.AdapterInfo {
	return gpu.AdapterInfo{Name: "fake", DeviceType: gputypes.DeviceTypeDiscreteGPU}
}

func (a *fakeAdapter) Capabilities(gpu.Surface) gpu.Capabilities {
	return gpu.Capabilities{
		Formats:    []gputypes.TextureFormat{gputypes.TextureFormatBGRA8UnormSrgb},
		AlphaModes: []gpu.AlphaMode{gpu.AlphaModeOpaque},
	}
}

func (a *fakeAdapter) RequestDevice() (gpu.Device, gpu.Queue, error) {
	a.p.mu.Lock()
	a.p.devices++
	a.p.mu.Unlock()
	return &fakeDevice{p: a.p}, &fakeQueue{p: a.p}, nil
}

type fakeSurface struct{ p *fakePlatform }

func (s *fakeSurface) Configure(_ gpu.Device, cfg *gpu.SurfaceConfig) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.p.configs = append(s.p.configs, *cfg)
	return nil
}

func (s *fakeSurface) Acquire() (gpu.Frame, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	if len(s.p.renderErrs) > 0 {
		err := s.p.renderErrs[0]
		s.p.renderErrs = s.p.renderErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return fakeFrame{}, nil
}

func (s *fakeSurface) Release(gpu.Device) {
	s.p.log("ReleaseSurface")
}

type fakeFrame struct{}

func (fakeFrame) View() (gpu.View, error) {
	return fakeView{}, nil
}

func (fakeFrame) Discard() {}

type fakeView struct{}

func (fakeView) Release() {}

type fakeDevice struct{ p *fakePlatform }

func (d *fakeDevice) NewEncoder(string) (gpu.Encoder, error) {
	return fakeEncoder{}, nil
}

func (d *fakeDevice) Release() {
	d.p.log("ReleaseDevice")
}

type fakeEncoder struct{}

func (fakeEncoder) ClearPass(gpu.View, gputypes.Color) {}

func (fakeEncoder) Finish() (gpu.CommandBuffer, error) {
	return fakeCommandBuffer{}, nil
}

func (fakeEncoder) Discard() {}

type fakeCommandBuffer struct{}

func (fakeCommandBuffer) Release() {}

type fakeQueue struct{ p *fakePlatform }

func (q *fakeQueue) Submit(gpu.CommandBuffer) error {
	return nil
}

func (q *fakeQueue) Present(gpu.Surface, gpu.Frame) error {
	q.p.mu.Lock()
	defer q.p.mu.Unlock()
	q.p.rendered++
	return nil
}
