package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// ErrCompositorRunning reports that another client owns the compositing
// manager selection for this screen.
var ErrCompositorRunning = errors.New("x11: another compositing manager is running")

// CompositorSelection returns the ICCCM compositing manager selection name
// for a screen, e.g. _NET_WM_CM_S0.
func CompositorSelection(screen int) string {
	return fmt.Sprintf("_NET_WM_CM_S%d", screen)
}

// ClaimCompositorSelection announces this client as the screen's compositing
// manager. It creates a small unmapped owner window named name and takes the
// _NET_WM_CM_S<n> selection with it. Destroying the returned window through
// ReleaseCompositorSelection gives the selection up.
func (c *Connection) ClaimCompositorSelection(name string) (xproto.Window, error) {
	selName := CompositorSelection(c.screen.Index)
	atom, err := xprop.Atm(c.XUtil, selName)
	if err != nil {
		return 0, fmt.Errorf("intern %s: %w", selName, err)
	}

	owner, err := xproto.GetSelectionOwner(c.conn(), atom).Reply()
	if err != nil {
		return 0, fmt.Errorf("get %s owner: %w", selName, err)
	}
	if owner.Owner != 0 {
		return 0, fmt.Errorf("%w: %s owned by window %d", ErrCompositorRunning, selName, owner.Owner)
	}

	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("generate selection window: %w", err)
	}
	if err := win.CreateChecked(c.Root, -1, -1, 1, 1, 0); err != nil {
		return 0, fmt.Errorf("create selection window: %w", err)
	}
	if err := ewmh.WmNameSet(c.XUtil, win.Id, name); err != nil {
		c.logger.Warn("failed to name selection window", "window", win.Id, "error", err)
	}

	err = xproto.SetSelectionOwnerChecked(c.conn(), win.Id, atom, xproto.TimeCurrentTime).Check()
	if err != nil {
		win.Destroy()
		return 0, fmt.Errorf("set %s owner: %w", selName, err)
	}

	// Ownership can race with another manager starting at the same time.
	owner, err = xproto.GetSelectionOwner(c.conn(), atom).Reply()
	if err != nil {
		win.Destroy()
		return 0, fmt.Errorf("verify %s owner: %w", selName, err)
	}
	if owner.Owner != win.Id {
		win.Destroy()
		return 0, fmt.Errorf("%w: lost %s to window %d", ErrCompositorRunning, selName, owner.Owner)
	}

	c.logger.Info("compositing manager selection acquired", "selection", selName, "window", win.Id)
	return win.Id, nil
}

// ReleaseCompositorSelection destroys the selection owner window.
func (c *Connection) ReleaseCompositorSelection(win xproto.Window) error {
	if win == 0 {
		return nil
	}
	return xproto.DestroyWindowChecked(c.conn(), win).Check()
}
