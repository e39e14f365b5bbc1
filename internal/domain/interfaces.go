package domain

import (
	"context"
	"image"
	"image/draw"
	"time"
)

// Device is one physical monitor as seen by the platform
type Device interface {
	// Name returns the output name reported by the platform
	Name() string

	// DisplayModes returns every mode the device natively supports
	DisplayModes() []DisplayMode

	// DisplayMode returns the mode the device is currently presenting
	DisplayMode() DisplayMode

	// SetDisplayMode switches the device to the given mode.
	// Only valid while a full-screen window owns the device.
	SetDisplayMode(mode DisplayMode) error

	// Configurations returns the graphics configurations of the device.
	// The slice is empty when the device is currently disconnected.
	Configurations() []Configuration

	// AvailableAcceleratedMemory returns accelerated memory in bytes, negative if unknown
	AvailableAcceleratedMemory() int

	// IsFullScreenSupported reports whether exclusive full-screen mode is supported
	IsFullScreenSupported() bool

	// IsDisplayChangeSupported reports whether SetDisplayMode may succeed
	IsDisplayChangeSupported() bool

	// SetFullScreenWindow gives exclusive ownership of the device to w.
	// A nil window releases the ownership.
	SetFullScreenWindow(w Window) error

	// FullScreenWindow returns the window owning the device, or nil
	FullScreenWindow() Window
}

// Surface is a paintable back buffer obtained from a BufferStrategy.
// It must be disposed after use.
type Surface interface {
	draw.Image

	// Dispose releases the surface back to its buffer chain
	Dispose()
}

// BufferStrategy is a chain of back buffers attached to a drawable
type BufferStrategy interface {
	// DrawSurface returns the current back buffer for painting
	DrawSurface() (Surface, error)

	// ContentsLost reports whether the back buffers were invalidated
	ContentsLost() bool

	// Show publishes the current back buffer and advances the chain
	Show() error

	// Dispose releases the native resources of the chain
	Dispose()
}

// Drawable is anything a buffer strategy can be attached to
type Drawable interface {
	// Name identifies the drawable in diagnostics
	Name() string

	// Size returns the drawable size in pixels
	Size() (width, height int)

	// IgnoreRepaint reports whether platform repaint handling is disabled
	IgnoreRepaint() bool

	// SetIgnoreRepaint disables or restores platform repaint handling
	SetIgnoreRepaint(ignore bool)

	// CreateBufferStrategy replaces the buffer chain with a new one of the given layers
	CreateBufferStrategy(layers int) error

	// BufferStrategy returns the installed buffer chain, or nil
	BufferStrategy() BufferStrategy

	// Configuration returns the configuration of the device the drawable is on
	Configuration() Configuration
}

// Window is a top-level native window
type Window interface {
	Drawable

	// Location returns the top-left corner in virtual screen coordinates
	Location() image.Point

	// Bounds returns the content area in virtual screen coordinates
	Bounds() image.Rectangle

	// SetLocation moves the top-left corner
	SetLocation(x, y int)

	// Visible reports whether the window is mapped
	Visible() bool

	// SetVisible maps or unmaps the window, creating the native surface if needed
	SetVisible(visible bool)

	// Dispose destroys the native surface; SetVisible(true) recreates it
	Dispose()

	// SetUndecorated removes or restores window manager decorations
	SetUndecorated(undecorated bool)

	// SetResizable allows or forbids user resizing
	SetResizable(resizable bool)

	// SetSize resizes the window content area
	SetSize(width, height int)

	// Repaint requests a platform repaint
	Repaint()

	// AddListener subscribes fn to window events and returns the unsubscribe func
	AddListener(fn func(WindowEvent)) (remove func())
}

// Canvas is the drawable used for windowed presentation
type Canvas interface {
	Drawable

	// Window returns the top-level window holding the canvas, or nil
	Window() Window

	// Bounds returns the canvas area in virtual screen coordinates
	Bounds() image.Rectangle
}

// Capturer grabs screen pixels
//
//go:generate mockgen -destination=mocks/capturer_mock.go -package=mocks github.com/genricoloni/screend/internal/domain Capturer
type Capturer interface {
	// Capture returns the pixels of rect in virtual screen coordinates
	Capture(rect image.Rectangle) (*image.RGBA, error)
}

// Dispatcher runs functions on the UI thread
type Dispatcher interface {
	// Invoke runs fn on the UI thread and blocks until it returns
	Invoke(fn func()) error
}

// Syncer flushes pending drawing to the display server
type Syncer interface {
	Sync()
}

// Backend is a platform implementation of devices and windows
type Backend interface {
	Syncer

	// Name returns the backend name, e.g. "x11"
	Name() string

	// Devices enumerates the physical displays
	Devices() ([]Device, error)

	// NewWindow creates an unmapped top-level window
	NewWindow(title string, width, height int) (Window, error)

	// NewCanvas creates a canvas filling the content area of w
	NewCanvas(w Window, name string) (Canvas, error)

	// Close releases the connection to the platform
	Close() error
}

// Config defines the interface for application configuration
type Config interface {
	// GetBackend returns the requested backend name
	GetBackend() string

	// GetBufferLayers returns the number of buffers in a buffer chain
	GetBufferLayers() int

	// GetPreferredModes returns the full-screen candidate modes, highest priority first
	GetPreferredModes() []DisplayMode

	// GetDebounce returns how long a window must stay still before the
	// display device is re-resolved
	GetDebounce() time.Duration

	// GetFullScreen reports whether to start in full-screen mode
	GetFullScreen() bool
}

// Monitor reports display configuration changes
type Monitor interface {
	// Start blocks until ctx is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop terminates monitoring and closes the events channel
	Stop(ctx context.Context) error

	// Events returns the channel of display changes
	Events() <-chan DisplayChange
}

// DisplayRefresher re-enumerates the physical displays
type DisplayRefresher interface {
	// Refresh returns the new number of displays
	Refresh() int
}

// Screen is the presentation target driven by the render loop
type Screen interface {
	AcquireDrawSurface() Surface
	Present()
	Width() int
	Height() int
	IsFullScreen() bool
	DeviceIndex() int
	RebuildBuffers() bool
	RevalidateDevice()
}
