package x11

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// ErrConnection reports that the display server could not be reached.
var ErrConnection = errors.New("x11: cannot connect to display")

// Screen is the root window and its pixel size, read once from the setup reply.
type Screen struct {
	Index  int
	Root   xproto.Window
	Width  uint16
	Height uint16
}

// Connection manages the X11 session used by the compositor.
//
// Requests go through the xgb connection: every request returns a cookie
// immediately and Reply/Check block until the server answers, which gives
// the synchronous facade the GPU setup path needs. The native Xlib display
// points at the same server and is only handed to the GPU layer.
type Connection struct {
	XUtil  *xgbutil.XUtil
	Root   xproto.Window
	screen Screen
	native *nativeDisplay
	logger *slog.Logger

	closeOnce sync.Once
}

// Connect establishes a connection to the X11 server named by displayName.
// An empty name selects the default display from $DISPLAY.
func Connect(displayName string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if strings.IndexByte(displayName, 0) >= 0 {
		return nil, fmt.Errorf("%w: display name %q contains a NUL byte", ErrConnection, displayName)
	}

	xu, err := xgbutil.NewConnDisplay(displayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	info := xu.Screen()
	screen := Screen{
		Index:  xu.Conn().DefaultScreen,
		Root:   info.Root,
		Width:  info.WidthInPixels,
		Height: info.HeightInPixels,
	}

	native, err := openNativeDisplay(displayName)
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	logger.Debug("connected to X server",
		"display", displayLabel(displayName),
		"screen", screen.Index,
		"root", screen.Root,
		"width", screen.Width,
		"height", screen.Height)

	return &Connection{
		XUtil:  xu,
		Root:   screen.Root,
		screen: screen,
		native: native,
		logger: logger,
	}, nil
}

// Screen returns the screen the connection was opened on.
func (c *Connection) Screen() Screen {
	return c.screen
}

// NativeDisplay returns the Xlib Display pointer for surface creation.
// It stays valid until Close.
func (c *Connection) NativeDisplay() uintptr {
	return c.native.ptr
}

// SelectRootEvents subscribes to window lifecycle and property changes on
// the root window.
func (c *Connection) SelectRootEvents() error {
	mask := uint32(xproto.EventMaskSubstructureNotify |
		xproto.EventMaskStructureNotify |
		xproto.EventMaskPropertyChange)
	err := xproto.ChangeWindowAttributesChecked(c.conn(), c.Root, xproto.CwEventMask, []uint32{mask}).Check()
	if err != nil {
		return fmt.Errorf("select root events: %w", err)
	}
	return nil
}

// Close cleanly disconnects from the X11 server. Any GPU surface created
// from NativeDisplay must already be released.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.native.close()
		c.XUtil.Conn().Close()
	})
	return err
}

func (c *Connection) conn() *xgb.Conn {
	return c.XUtil.Conn()
}

func displayLabel(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
