package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// Client sends control requests to a running compositor. Each call opens
// its own connection.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    requestTimeout + 2*time.Second,
	}
}

// call sends one request and decodes the reply data into out, if non-nil.
func (c *Client) call(ctx context.Context, cmd Command, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to compositor: %w (is recomp running?)", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	req := Request{Command: cmd}
	if payload != nil {
		if req.Payload, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encode %s payload: %w", cmd, err)
		}
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("read %s reply: %w", cmd, err)
	}
	if resp.Status != statusOK {
		return errors.New("compositor error: " + resp.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s reply: %w", cmd, err)
	}
	return nil
}

// Status fetches the compositor status.
func (c *Client) Status(ctx context.Context) (*StatusData, error) {
	var st StatusData
	if err := c.call(ctx, CommandGetStatus, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Stop asks the compositor to end its render loop and tear down.
func (c *Client) Stop(ctx context.Context) error {
	return c.call(ctx, CommandStop, nil, nil)
}

// Resize asks the compositor to reconfigure its surface.
func (c *Client) Resize(ctx context.Context, width, height uint32) error {
	return c.call(ctx, CommandResize, ResizePayload{Width: width, Height: height}, nil)
}
