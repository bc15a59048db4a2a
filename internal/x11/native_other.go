//go:build !linux

package x11

import "errors"

type nativeDisplay struct {
	ptr uintptr
}

func openNativeDisplay(string) (*nativeDisplay, error) {
	return nil, errors.New("native X11 display is only supported on linux")
}

func (d *nativeDisplay) close() error {
	return nil
}
