package compositor

import (
	"context"
)

type requestKind int

const (
	requestStop requestKind = iota
	requestResize
)

// request is a control command handed to the loop goroutine, which owns
// the GPU surface.
type request struct {
	kind   requestKind
	width  uint32
	height uint32
	reply  chan error
}

// RequestStop asks the running loop to stop after its current iteration
// and waits until the loop has accepted the request.
func (c *Compositor) RequestStop(ctx context.Context) error {
	return c.send(ctx, request{kind: requestStop})
}

// RequestResize asks the running loop to reconfigure the surface to
// width x height and waits for the result.
func (c *Compositor) RequestResize(ctx context.Context, width, height uint32) error {
	return c.send(ctx, request{kind: requestResize, width: width, height: height})
}

// Done is closed when Run returns.
func (c *Compositor) Done() <-chan struct{} {
	return c.done
}

func (c *Compositor) send(ctx context.Context, req request) error {
	if State(c.state.Load()) == StateStopped {
		return ErrStopped
	}
	req.reply = make(chan error, 1)
	select {
	case c.commands <- req:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-c.done:
		// The loop may have answered right before exiting.
		select {
		case err := <-req.reply:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drainRequests applies every queued request. It reports whether a stop
// was requested.
func (c *Compositor) drainRequests() bool {
	for {
		select {
		case req := <-c.commands:
			switch req.kind {
			case requestStop:
				req.reply <- nil
				return true
			case requestResize:
				req.reply <- c.resize(req.width, req.height)
			}
		default:
			return false
		}
	}
}
