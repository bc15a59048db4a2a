package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// fakeRequester records every request and answers from canned values.
type fakeRequester struct {
	calls []string

	versions   map[Extension]Version
	missing    map[Extension]bool
	overlay    xproto.Window
	region     xfixes.Region
	failOn     map[string]error
	overlayErr error
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{
		versions: map[Extension]Version{
			ExtComposite: {Major: 0, Minor: 4},
			ExtXFixes:    {Major: 6, Minor: 0},
			ExtDamage:    {Major: 1, Minor: 1},
		},
		missing: map[Extension]bool{},
		overlay: 0x200001,
		region:  0x300001,
		failOn:  map[string]error{},
	}
}

func (f *fakeRequester) record(format string, args ...any) string {
	call := fmt.Sprintf(format, args...)
	f.calls = append(f.calls, call)
	return call
}

func (f *fakeRequester) QueryVersion(ext Extension, major, minor uint32) (Version, error) {
	f.record("QueryVersion(%s,%d,%d)", ext, major, minor)
	if f.missing[ext] {
		return Version{}, unavailable(ext, fmt.Errorf("no extension named %s", ext))
	}
	return f.versions[ext], nil
}

func (f *fakeRequester) RedirectSubwindows(root xproto.Window) error {
	f.record("RedirectSubwindows(%d)", root)
	return f.failOn["RedirectSubwindows"]
}

func (f *fakeRequester) UnredirectSubwindows(root xproto.Window) error {
	f.record("UnredirectSubwindows(%d)", root)
	return f.failOn["UnredirectSubwindows"]
}

func (f *fakeRequester) GetOverlayWindow(root xproto.Window) (xproto.Window, error) {
	f.record("GetOverlayWindow(%d)", root)
	if f.overlayErr != nil {
		return 0, f.overlayErr
	}
	return f.overlay, nil
}

func (f *fakeRequester) ReleaseOverlayWindow(overlay xproto.Window) error {
	f.record("ReleaseOverlayWindow(%d)", overlay)
	return f.failOn["ReleaseOverlayWindow"]
}

func (f *fakeRequester) CreateRegion() (xfixes.Region, error) {
	f.record("CreateRegion()")
	if err := f.failOn["CreateRegion"]; err != nil {
		return 0, err
	}
	return f.region, nil
}

func (f *fakeRequester) SetInputShapeRegion(win xproto.Window, region xfixes.Region) error {
	f.record("SetInputShapeRegion(%d,%d)", win, region)
	return f.failOn["SetInputShapeRegion"]
}

func (f *fakeRequester) DestroyRegion(region xfixes.Region) error {
	f.record("DestroyRegion(%d)", region)
	return f.failOn["DestroyRegion"]
}
