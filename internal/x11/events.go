package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xproto"
)

// EventKind groups protocol events by how the compositor reacts to them.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindInput
	KindLifecycle
	KindDamage
	KindError
)

func (k EventKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindLifecycle:
		return "lifecycle"
	case KindDamage:
		return "damage"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a classified protocol event or error.
type Event struct {
	Kind   EventKind
	Name   string
	Window xproto.Window
	Raw    xgb.Event
	Err    xgb.Error
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	if e.Raw != nil {
		return e.Raw.String()
	}
	return e.Name
}

// Classify maps an xgb event to its kind, name and subject window.
func Classify(ev xgb.Event) Event {
	out := Event{Kind: KindUnknown, Name: "Unknown", Raw: ev}
	switch e := ev.(type) {
	case xproto.ButtonPressEvent:
		out.Kind, out.Name, out.Window = KindInput, "ButtonPress", e.Event
	case xproto.KeyPressEvent:
		out.Kind, out.Name, out.Window = KindInput, "KeyPress", e.Event
	case xproto.KeyReleaseEvent:
		out.Kind, out.Name, out.Window = KindInput, "KeyRelease", e.Event
	case xproto.EnterNotifyEvent:
		out.Kind, out.Name, out.Window = KindInput, "EnterNotify", e.Event
	case xproto.LeaveNotifyEvent:
		out.Kind, out.Name, out.Window = KindInput, "LeaveNotify", e.Event
	case xproto.FocusInEvent:
		out.Kind, out.Name, out.Window = KindInput, "FocusIn", e.Event
	case xproto.FocusOutEvent:
		out.Kind, out.Name, out.Window = KindInput, "FocusOut", e.Event
	case xproto.CreateNotifyEvent:
		out.Kind, out.Name, out.Window = KindLifecycle, "CreateNotify", e.Window
	case xproto.DestroyNotifyEvent:
		out.Kind, out.Name, out.Window = KindLifecycle, "DestroyNotify", e.Window
	case xproto.MapNotifyEvent:
		out.Kind, out.Name, out.Window = KindLifecycle, "MapNotify", e.Window
	case xproto.MapRequestEvent:
		out.Kind, out.Name, out.Window = KindLifecycle, "MapRequest", e.Window
	case xproto.UnmapNotifyEvent:
		out.Kind, out.Name, out.Window = KindLifecycle, "UnmapNotify", e.Window
	case xproto.ReparentNotifyEvent:
		out.Kind, out.Name, out.Window = KindLifecycle, "ReparentNotify", e.Window
	case xproto.ConfigureNotifyEvent:
		out.Kind, out.Name, out.Window = KindLifecycle, "ConfigureNotify", e.Window
	case xproto.PropertyNotifyEvent:
		out.Kind, out.Name, out.Window = KindLifecycle, "PropertyNotify", e.Window
	case xproto.VisibilityNotifyEvent:
		out.Kind, out.Name, out.Window = KindLifecycle, "VisibilityNotify", e.Window
	case xproto.MappingNotifyEvent:
		out.Kind, out.Name = KindLifecycle, "MappingNotify"
	case damage.NotifyEvent:
		out.Kind, out.Name, out.Window = KindDamage, "DamageNotify", xproto.Window(e.Drawable)
	}
	return out
}

// ClassifyError wraps a protocol error delivered through the event queue.
func ClassifyError(err xgb.Error) Event {
	return Event{Kind: KindError, Name: "X11Error", Err: err}
}

// PollEvent returns the next queued event without blocking.
func (c *Connection) PollEvent() (Event, bool) {
	ev, xerr := c.conn().PollForEvent()
	switch {
	case xerr != nil:
		return ClassifyError(xerr), true
	case ev != nil:
		return Classify(ev), true
	default:
		return Event{}, false
	}
}
