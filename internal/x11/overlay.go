package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

var (
	// ErrRedirectFailed reports that the server refused to redirect the
	// root window's children, usually because another compositor runs.
	ErrRedirectFailed = errors.New("x11: redirect subwindows failed")

	// ErrInvalidOverlay reports an overlay id of zero or equal to the root.
	ErrInvalidOverlay = errors.New("x11: invalid overlay window")
)

// ShapeWarning is returned together with a usable overlay window when the
// input pass-through region could not be applied. Compositing still works
// but input aimed at windows below the overlay may be swallowed.
type ShapeWarning struct {
	Step string
	Err  error
}

func (w *ShapeWarning) Error() string {
	return fmt.Sprintf("overlay input shape: %s: %v", w.Step, w.Err)
}

func (w *ShapeWarning) Unwrap() error {
	return w.Err
}

// AcquireOverlay redirects all children of root off-screen, fetches the
// composite overlay window and makes it transparent to input.
//
// A non-nil overlay with a *ShapeWarning error means setup succeeded apart
// from the input region.
func AcquireOverlay(r Requester, root xproto.Window) (xproto.Window, error) {
	if err := r.RedirectSubwindows(root); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedirectFailed, err)
	}

	overlay, err := r.GetOverlayWindow(root)
	if err != nil {
		return 0, fmt.Errorf("get overlay window: %w", err)
	}
	if overlay == 0 || overlay == root {
		return 0, fmt.Errorf("%w: overlay=%d root=%d", ErrInvalidOverlay, overlay, root)
	}

	if err := passInput(r, overlay); err != nil {
		return overlay, err
	}
	return overlay, nil
}

// passInput gives overlay an empty input shape. The region only lives for
// the duration of this call.
func passInput(r Requester, overlay xproto.Window) error {
	region, err := r.CreateRegion()
	if err != nil {
		return &ShapeWarning{Step: "create region", Err: err}
	}

	var warn error
	if err := r.SetInputShapeRegion(overlay, region); err != nil {
		warn = &ShapeWarning{Step: "set input shape", Err: err}
	}
	if err := r.DestroyRegion(region); err != nil && warn == nil {
		warn = &ShapeWarning{Step: "destroy region", Err: err}
	}
	return warn
}

// ReleaseOverlay undoes AcquireOverlay. Both requests are always attempted;
// their errors are joined for the caller to log.
func ReleaseOverlay(r Requester, root, overlay xproto.Window) error {
	var errs []error
	if err := r.UnredirectSubwindows(root); err != nil {
		errs = append(errs, fmt.Errorf("unredirect subwindows: %w", err))
	}
	if err := r.ReleaseOverlayWindow(overlay); err != nil {
		errs = append(errs, fmt.Errorf("release overlay window: %w", err))
	}
	return errors.Join(errs...)
}
