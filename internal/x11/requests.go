package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// Extension identifies a protocol extension the compositor depends on.
type Extension int

const (
	ExtComposite Extension = iota
	ExtXFixes
	ExtDamage
)

// String returns the extension name as registered with the X server.
func (e Extension) String() string {
	switch e {
	case ExtComposite:
		return "Composite"
	case ExtXFixes:
		return "XFIXES"
	case ExtDamage:
		return "DAMAGE"
	default:
		return fmt.Sprintf("Extension(%d)", int(e))
	}
}

// Version is a server-reported extension version.
type Version struct {
	Major uint32 `json:"major"`
	Minor uint32 `json:"minor"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Requester is the set of X requests the compositor issues during setup and
// teardown. Every method waits for the server's reply or error.
type Requester interface {
	QueryVersion(ext Extension, major, minor uint32) (Version, error)
	RedirectSubwindows(root xproto.Window) error
	UnredirectSubwindows(root xproto.Window) error
	GetOverlayWindow(root xproto.Window) (xproto.Window, error)
	ReleaseOverlayWindow(overlay xproto.Window) error
	CreateRegion() (xfixes.Region, error)
	SetInputShapeRegion(win xproto.Window, region xfixes.Region) error
	DestroyRegion(region xfixes.Region) error
}

var _ Requester = (*Connection)(nil)

// QueryVersion initializes ext on the connection and asks the server for its
// version. Other requests of an extension are rejected until this succeeds.
func (c *Connection) QueryVersion(ext Extension, major, minor uint32) (Version, error) {
	switch ext {
	case ExtComposite:
		if err := composite.Init(c.conn()); err != nil {
			return Version{}, unavailable(ext, err)
		}
		reply, err := composite.QueryVersion(c.conn(), major, minor).Reply()
		if err != nil {
			return Version{}, err
		}
		return Version{Major: reply.MajorVersion, Minor: reply.MinorVersion}, nil
	case ExtXFixes:
		if err := xfixes.Init(c.conn()); err != nil {
			return Version{}, unavailable(ext, err)
		}
		reply, err := xfixes.QueryVersion(c.conn(), major, minor).Reply()
		if err != nil {
			return Version{}, err
		}
		return Version{Major: reply.MajorVersion, Minor: reply.MinorVersion}, nil
	case ExtDamage:
		if err := damage.Init(c.conn()); err != nil {
			return Version{}, unavailable(ext, err)
		}
		reply, err := damage.QueryVersion(c.conn(), major, minor).Reply()
		if err != nil {
			return Version{}, err
		}
		return Version{Major: reply.MajorVersion, Minor: reply.MinorVersion}, nil
	default:
		return Version{}, unavailable(ext, errors.New("unsupported extension"))
	}
}

// RedirectSubwindows redirects all current and future children of root
// off-screen in automatic mode.
func (c *Connection) RedirectSubwindows(root xproto.Window) error {
	return composite.RedirectSubwindowsChecked(c.conn(), root, composite.RedirectAutomatic).Check()
}

// UnredirectSubwindows reverses RedirectSubwindows.
func (c *Connection) UnredirectSubwindows(root xproto.Window) error {
	return composite.UnredirectSubwindowsChecked(c.conn(), root, composite.RedirectAutomatic).Check()
}

// GetOverlayWindow returns the server's composite overlay window for root.
func (c *Connection) GetOverlayWindow(root xproto.Window) (xproto.Window, error) {
	reply, err := composite.GetOverlayWindow(c.conn(), root).Reply()
	if err != nil {
		return 0, err
	}
	return reply.OverlayWin, nil
}

// ReleaseOverlayWindow hands the overlay window back to the server.
func (c *Connection) ReleaseOverlayWindow(overlay xproto.Window) error {
	return composite.ReleaseOverlayWindowChecked(c.conn(), overlay).Check()
}

// CreateRegion allocates an empty XFixes region.
func (c *Connection) CreateRegion() (xfixes.Region, error) {
	region, err := xfixes.NewRegionId(c.conn())
	if err != nil {
		return 0, err
	}
	if err := xfixes.CreateRegionChecked(c.conn(), region, nil).Check(); err != nil {
		return 0, err
	}
	return region, nil
}

// SetInputShapeRegion sets region as the input shape of win.
func (c *Connection) SetInputShapeRegion(win xproto.Window, region xfixes.Region) error {
	return xfixes.SetWindowShapeRegionChecked(c.conn(), win, shape.SkInput, 0, 0, region).Check()
}

// DestroyRegion frees an XFixes region.
func (c *Connection) DestroyRegion(region xfixes.Region) error {
	return xfixes.DestroyRegionChecked(c.conn(), region).Check()
}

func unavailable(ext Extension, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrExtensionUnavailable, ext, err)
}
