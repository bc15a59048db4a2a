//go:build linux

package x11

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"
	"github.com/go-webgpu/goffi/types"
)

// libX11 sonames tried in order.
var xlibNames = []string{"libX11.so.6", "libX11.so"}

var (
	xlibOnce sync.Once
	xlibErr  error

	symXInitThreads  unsafe.Pointer
	symXOpenDisplay  unsafe.Pointer
	symXCloseDisplay unsafe.Pointer

	cifXInitThreads  types.CallInterface
	cifXOpenDisplay  types.CallInterface
	cifXCloseDisplay types.CallInterface
)

func openXlib() (unsafe.Pointer, error) {
	var errs []error
	for _, name := range xlibNames {
		lib, err := ffi.LoadLibrary(name)
		if err == nil {
			return lib, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("load libX11: %w", errors.Join(errs...))
}

func loadXlib() error {
	xlibOnce.Do(func() {
		lib, err := openXlib()
		if err != nil {
			xlibErr = err
			return
		}

		syms := []struct {
			name string
			dst  *unsafe.Pointer
		}{
			{"XInitThreads", &symXInitThreads},
			{"XOpenDisplay", &symXOpenDisplay},
			{"XCloseDisplay", &symXCloseDisplay},
		}
		for _, s := range syms {
			if *s.dst, err = ffi.GetSymbol(lib, s.name); err != nil {
				xlibErr = fmt.Errorf("resolve %s: %w", s.name, err)
				return
			}
		}

		ptr := []*types.TypeDescriptor{types.PointerTypeDescriptor}
		// Status XInitThreads(void)
		if err := ffi.PrepareCallInterface(&cifXInitThreads, types.DefaultCall,
			types.SInt32TypeDescriptor, nil); err != nil {
			xlibErr = fmt.Errorf("prepare XInitThreads: %w", err)
			return
		}
		// Display* XOpenDisplay(char* display_name)
		if err := ffi.PrepareCallInterface(&cifXOpenDisplay, types.DefaultCall,
			types.PointerTypeDescriptor, ptr); err != nil {
			xlibErr = fmt.Errorf("prepare XOpenDisplay: %w", err)
			return
		}
		// int XCloseDisplay(Display* display)
		if err := ffi.PrepareCallInterface(&cifXCloseDisplay, types.DefaultCall,
			types.SInt32TypeDescriptor, ptr); err != nil {
			xlibErr = fmt.Errorf("prepare XCloseDisplay: %w", err)
			return
		}

		// The GPU driver may touch the display from its own threads.
		var status int32
		if err := ffi.CallFunction(&cifXInitThreads, symXInitThreads, unsafe.Pointer(&status), nil); err != nil {
			xlibErr = fmt.Errorf("XInitThreads: %w", err)
			return
		}
		if status == 0 {
			xlibErr = errors.New("XInitThreads failed")
		}
	})
	return xlibErr
}

// nativeDisplay is an Xlib Display* handed to the GPU layer as a raw handle.
type nativeDisplay struct {
	ptr       uintptr
	closeOnce sync.Once
}

// cString returns name as a NUL-terminated byte slice, or nil for the
// default display.
func cString(name string) ([]byte, error) {
	if name == "" {
		return nil, nil
	}
	if strings.IndexByte(name, 0) >= 0 {
		return nil, fmt.Errorf("display name %q contains NUL", name)
	}
	return append([]byte(name), 0), nil
}

func openNativeDisplay(name string) (*nativeDisplay, error) {
	cname, err := cString(name)
	if err != nil {
		return nil, err
	}
	if err := loadXlib(); err != nil {
		return nil, err
	}

	var nameArg uintptr
	if cname != nil {
		nameArg = uintptr(unsafe.Pointer(&cname[0]))
	}
	var dpy uintptr
	args := [1]unsafe.Pointer{unsafe.Pointer(&nameArg)}
	err = ffi.CallFunction(&cifXOpenDisplay, symXOpenDisplay, unsafe.Pointer(&dpy), args[:])
	runtime.KeepAlive(cname)
	if err != nil {
		return nil, fmt.Errorf("XOpenDisplay(%q): %w", displayLabel(name), err)
	}
	if dpy == 0 {
		return nil, fmt.Errorf("XOpenDisplay(%q) failed", displayLabel(name))
	}
	return &nativeDisplay{ptr: dpy}, nil
}

func (d *nativeDisplay) close() error {
	if d == nil || d.ptr == 0 {
		return nil
	}
	var err error
	d.closeOnce.Do(func() {
		var result int32
		args := [1]unsafe.Pointer{unsafe.Pointer(&d.ptr)}
		err = ffi.CallFunction(&cifXCloseDisplay, symXCloseDisplay, unsafe.Pointer(&result), args[:])
		d.ptr = 0
	})
	return err
}
