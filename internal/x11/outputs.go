package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
)

// Output is an active RandR CRTC and the output driving it, in root
// window coordinates.
type Output struct {
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// Outputs lists the active outputs of the screen. The overlay window spans
// the whole root, so this is informational.
func (c *Connection) Outputs() ([]Output, error) {
	conn := c.XUtil.Conn()
	if err := randr.Init(conn); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var outputs []Output
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("CRTC%d", i)
		if out, err := randr.GetOutputInfo(conn, info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}
		outputs = append(outputs, Output{
			Name:   name,
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}
	return outputs, nil
}

// Uncovered returns the outputs that extend past the screen. A non-empty
// result means the root window size is stale.
func Uncovered(screen Screen, outputs []Output) []Output {
	var out []Output
	for _, o := range outputs {
		if o.X < 0 || o.Y < 0 || o.X+o.Width > int(screen.Width) || o.Y+o.Height > int(screen.Height) {
			out = append(out, o)
		}
	}
	return out
}
