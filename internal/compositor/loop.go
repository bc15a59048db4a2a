package compositor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"
)

var (
	// ErrRenderFailed reports that rendering failed and the render error
	// policy stopped the loop.
	ErrRenderFailed = errors.New("compositor: render failed")

	// ErrStopped reports a request sent to a compositor whose loop is not
	// running.
	ErrStopped = errors.New("compositor: loop not running")

	// ErrAlreadyRunning reports a second call to Run.
	ErrAlreadyRunning = errors.New("compositor: loop already started")
)

// State is the loop lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Until selects when the loop stops on its own.
type Until string

const (
	// UntilCancelled runs until the context is cancelled or a stop is
	// requested.
	UntilCancelled Until = "cancelled"
	// UntilFrames stops after MaxFrames successful renders.
	UntilFrames Until = "frames"
	// UntilFirstEvent stops after the first protocol event is dispatched.
	UntilFirstEvent Until = "first-event"
)

// RenderErrorPolicy selects how the loop reacts to a failed frame.
type RenderErrorPolicy string

const (
	// RenderRetry reconfigures the surface and retries the frame once. A
	// second failure stops the loop.
	RenderRetry RenderErrorPolicy = "retry"
	// RenderStop stops the loop on the first failure.
	RenderStop RenderErrorPolicy = "stop"
	// RenderIgnore logs the failure and moves on to the next iteration.
	RenderIgnore RenderErrorPolicy = "ignore"
)

// LoopOptions controls termination and error handling of Run.
type LoopOptions struct {
	Until         Until
	MaxFrames     uint64
	OnRenderError RenderErrorPolicy
	// FrameInterval is an optional pause between iterations. Presentation
	// already paces the loop to the display refresh rate.
	FrameInterval time.Duration
}

func (o LoopOptions) withDefaults() LoopOptions {
	if o.Until == "" {
		o.Until = UntilCancelled
	}
	if o.OnRenderError == "" {
		o.OnRenderError = RenderRetry
	}
	return o
}

// Validate reports unsupported option combinations.
func (o LoopOptions) Validate() error {
	switch o.Until {
	case UntilCancelled, UntilFirstEvent:
	case UntilFrames:
		if o.MaxFrames == 0 {
			return fmt.Errorf("loop: until %q requires max frames > 0", o.Until)
		}
	default:
		return fmt.Errorf("loop: unknown termination %q", o.Until)
	}
	switch o.OnRenderError {
	case RenderRetry, RenderStop, RenderIgnore:
	default:
		return fmt.Errorf("loop: unknown render error policy %q", o.OnRenderError)
	}
	if o.FrameInterval < 0 {
		return fmt.Errorf("loop: negative frame interval %s", o.FrameInterval)
	}
	return nil
}

// Run drives the render/event loop until the termination policy, a stop
// request or ctx ends it. Every iteration applies pending requests,
// renders one frame and handles at most one queued protocol event.
//
// Run locks the calling goroutine to its OS thread; the GPU surface is only
// touched from that thread. A cancelled context is a normal stop and
// returns nil.
func (c *Compositor) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return ErrAlreadyRunning
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	c.state.Store(int32(StateRunning))
	defer func() {
		c.state.Store(int32(StateStopped))
		close(c.done)
	}()

	c.logger.Info("render loop started",
		"until", c.opts.Until,
		"max_frames", c.opts.MaxFrames,
		"on_render_error", c.opts.OnRenderError)

	for {
		if ctx.Err() != nil {
			c.logger.Info("render loop cancelled", "frames", c.frames.Load())
			return nil
		}

		if stop := c.drainRequests(); stop {
			c.logger.Info("render loop stopped by request", "frames", c.frames.Load())
			return nil
		}

		if err := c.renderFrame(); err != nil {
			c.logger.Error("render loop stopped", "frames", c.frames.Load(), "error", err)
			return err
		}
		if c.opts.Until == UntilFrames && c.frames.Load() >= c.opts.MaxFrames {
			c.logger.Info("render loop reached frame limit", "frames", c.frames.Load())
			return nil
		}

		if ev, ok := c.display.PollEvent(); ok {
			c.dispatch(ev)
			if c.opts.Until == UntilFirstEvent {
				c.logger.Info("render loop stopped after first event", "event", ev.Name)
				return nil
			}
		}

		if c.opts.FrameInterval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.opts.FrameInterval):
			}
		}
	}
}

// renderFrame renders once and applies the render error policy.
func (c *Compositor) renderFrame() error {
	err := c.gpu.Render()
	if err == nil {
		c.frames.Add(1)
		return nil
	}

	switch c.opts.OnRenderError {
	case RenderIgnore:
		c.logger.Warn("frame dropped", "error", err)
		return nil
	case RenderStop:
		return fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	c.logger.Warn("frame failed, reconfiguring surface", "error", err)
	if rerr := c.gpu.Reconfigure(); rerr != nil {
		return fmt.Errorf("%w: reconfigure after %v: %w", ErrRenderFailed, err, rerr)
	}
	if err := c.gpu.Render(); err != nil {
		return fmt.Errorf("%w: retry: %w", ErrRenderFailed, err)
	}
	c.frames.Add(1)
	return nil
}

// resize reconfigures the surface and records the new size.
func (c *Compositor) resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("resize: invalid size %dx%d", width, height)
	}
	if err := c.gpu.Resize(width, height); err != nil {
		return err
	}
	c.sizeMu.Lock()
	c.size.Width, c.size.Height = width, height
	c.sizeMu.Unlock()
	c.logger.Info("surface resized", "width", width, "height", height)
	return nil
}
