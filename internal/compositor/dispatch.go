package compositor

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/recomp/internal/x11"
)

type eventHandler func(c *Compositor, ev x11.Event)

// handlers maps each event kind to its reaction. Kinds without an entry
// fall through to onUnknown.
var handlers = map[x11.EventKind]eventHandler{
	x11.KindInput:     (*Compositor).onInput,
	x11.KindLifecycle: (*Compositor).onLifecycle,
	x11.KindDamage:    (*Compositor).onDamage,
	x11.KindError:     (*Compositor).onError,
}

func (c *Compositor) dispatch(ev x11.Event) {
	c.events.Add(1)
	h, ok := handlers[ev.Kind]
	if !ok {
		h = (*Compositor).onUnknown
	}
	h(c, ev)
}

func (c *Compositor) onInput(ev x11.Event) {
	c.logger.Info("input event", "event", ev.Name, "window", ev.Window)
}

func (c *Compositor) onLifecycle(ev x11.Event) {
	c.logger.Info("window event", "event", ev.Name, "window", ev.Window)

	// Follow root geometry changes such as a RandR mode switch.
	cfg, ok := ev.Raw.(xproto.ConfigureNotifyEvent)
	if !ok || cfg.Window != c.screen.Root {
		return
	}
	c.sizeMu.Lock()
	size := c.size
	c.sizeMu.Unlock()
	width, height := uint32(cfg.Width), uint32(cfg.Height)
	if width == size.Width && height == size.Height {
		return
	}
	if err := c.resize(width, height); err != nil {
		c.logger.Warn("failed to follow root resize", "width", width, "height", height, "error", err)
	}
}

func (c *Compositor) onDamage(ev x11.Event) {
	c.damage.Add(1)
	c.logger.Debug("damage", "drawable", ev.Window)
}

func (c *Compositor) onError(ev x11.Event) {
	c.errs.Add(1)
	c.logger.Warn("protocol error", "error", ev.Err)
}

func (c *Compositor) onUnknown(ev x11.Event) {
	c.logger.Warn("unhandled event", "event", ev.String())
}
