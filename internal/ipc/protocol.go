package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/recomp/internal/x11"
)

// Command names a control operation. One JSON request and one JSON
// response travel per connection, each terminated by a newline.
type Command string

const (
	CommandGetStatus Command = "GET_STATUS"
	CommandStop      Command = "STOP"
	CommandResize    Command = "RESIZE"
)

const (
	statusOK    = "OK"
	statusError = "ERROR"
)

type Request struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData is the GET_STATUS reply.
type StatusData struct {
	State          string       `json:"state"`
	FramesRendered uint64       `json:"frames_rendered"`
	Events         uint64       `json:"events"`
	DamageEvents   uint64       `json:"damage_events"`
	ProtocolErrors uint64       `json:"protocol_errors"`
	Overlay        uint32       `json:"overlay"`
	Root           uint32       `json:"root"`
	Width          uint32       `json:"width"`
	Height         uint32       `json:"height"`
	Format         string       `json:"format"`
	Extensions     x11.Versions `json:"extensions"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
}

// ResizePayload is the RESIZE request body.
type ResizePayload struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

func (p ResizePayload) validate() error {
	if p.Width == 0 || p.Height == 0 {
		return fmt.Errorf("width and height must be > 0, got %dx%d", p.Width, p.Height)
	}
	return nil
}

// reply builds the response for a handler result.
func reply(data any, err error) Response {
	if err != nil {
		return Response{Status: statusError, Error: err.Error()}
	}
	if data == nil {
		return Response{Status: statusOK}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{Status: statusError, Error: fmt.Sprintf("encode reply: %v", err)}
	}
	return Response{Status: statusOK, Data: raw}
}
