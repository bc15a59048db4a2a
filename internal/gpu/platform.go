package gpu

import (
	"github.com/gogpu/gputypes"
)

// Platform is the slice of a GPU backend the surface bridge drives. The
// production implementation wraps gogpu/wgpu's HAL; tests use a fake.
type Platform interface {
	// CreateSurface builds a presentable surface from a native display
	// pointer and window handle. The display must outlive the surface.
	CreateSurface(display, window uintptr) (Surface, error)
	// Adapters lists physical adapters able to present to surface.
	Adapters(surface Surface) []Adapter
	// Release destroys the backend instance.
	Release()
}

// AdapterInfo describes a physical adapter.
type AdapterInfo struct {
	Name       string
	DeviceType gputypes.DeviceType
}

// Adapter is a physical GPU.
type Adapter interface {
	Info() AdapterInfo
	Capabilities(surface Surface) Capabilities
	// RequestDevice opens a logical device and its queue with default
	// features and limits.
	RequestDevice() (Device, Queue, error)
}

// Capabilities lists what a surface supports on an adapter.
type Capabilities struct {
	Formats    []gputypes.TextureFormat
	AlphaModes []AlphaMode
}

// Surface is a GPU presentation target bound to a native window.
type Surface interface {
	Configure(device Device, cfg *SurfaceConfig) error
	// Acquire returns the next presentable frame. Lost or outdated
	// surfaces report ErrSurfaceUnavailable.
	Acquire() (Frame, error)
	Release(device Device)
}

// Frame is a surface image acquired for one presentation.
type Frame interface {
	// View creates the default view of the frame's texture.
	View() (View, error)
	// Discard returns an unpresented frame to the surface.
	Discard()
}

// View is a texture view usable as a render target.
type View interface {
	Release()
}

// Device is a logical GPU device.
type Device interface {
	NewEncoder(label string) (Encoder, error)
	Release()
}

// Encoder records GPU commands.
type Encoder interface {
	// ClearPass records a render pass that clears view to c and stores
	// the result.
	ClearPass(view View, c gputypes.Color)
	Finish() (CommandBuffer, error)
	Discard()
}

// CommandBuffer is a finished command recording.
type CommandBuffer interface {
	Release()
}

// Queue submits recorded work and presents frames.
type Queue interface {
	Submit(cmd CommandBuffer) error
	Present(surface Surface, frame Frame) error
}

// AlphaMode selects how the window system blends the surface with what is
// behind it. Values mirror the backend's composite alpha enumeration.
type AlphaMode uint8

const (
	AlphaModeOpaque AlphaMode = iota
	AlphaModePremultiplied
	AlphaModePostmultiplied
	AlphaModeInherit
)

func (m AlphaMode) String() string {
	switch m {
	case AlphaModeOpaque:
		return "opaque"
	case AlphaModePremultiplied:
		return "premultiplied"
	case AlphaModePostmultiplied:
		return "postmultiplied"
	case AlphaModeInherit:
		return "inherit"
	default:
		return "unknown"
	}
}

// PresentMode selects presentation timing.
type PresentMode uint8

const (
	PresentModeFifo PresentMode = iota
	PresentModeFifoRelaxed
	PresentModeMailbox
	PresentModeImmediate
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo-relaxed"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// SurfaceConfig is the configuration applied to a surface.
type SurfaceConfig struct {
	Usage                      gputypes.TextureUsage
	Format                     gputypes.TextureFormat
	Width                      uint32
	Height                     uint32
	PresentMode                PresentMode
	AlphaMode                  AlphaMode
	ViewFormats                []gputypes.TextureFormat
	DesiredMaximumFrameLatency uint32
}
