package domain

import (
	"fmt"
	"image"
)

const (
	// BitDepthMulti means the mode is valid at any color depth
	BitDepthMulti = -1
	// RefreshRateUnknown means the driver did not report a refresh rate
	RefreshRateUnknown = 0
)

// DisplayMode is a width/height/depth/refresh combination a device can present
type DisplayMode struct {
	Width       int
	Height      int
	BitDepth    int
	RefreshRate int
}

// String formats the mode as WxH@depth:refresh, omitting unknown parts
func (m DisplayMode) String() string {
	s := fmt.Sprintf("%dx%d", m.Width, m.Height)
	if m.BitDepth != BitDepthMulti {
		s += fmt.Sprintf("@%d", m.BitDepth)
	}
	if m.RefreshRate != RefreshRateUnknown {
		s += fmt.Sprintf(":%d", m.RefreshRate)
	}
	return s
}

// Configuration describes the pixel layout of one device output.
// Bounds are in virtual screen coordinates.
type Configuration struct {
	Device string
	Bounds image.Rectangle
	Depth  int
}

// Transparency selects the alpha capability of a blank surface
type Transparency int

const (
	// Opaque surfaces have no alpha channel in effect
	Opaque Transparency = iota + 1
	// Bitmask surfaces only hold fully opaque or fully transparent pixels
	Bitmask
	// Translucent surfaces carry per-pixel alpha
	Translucent
)

func (t Transparency) String() string {
	switch t {
	case Opaque:
		return "opaque"
	case Bitmask:
		return "bitmask"
	case Translucent:
		return "translucent"
	default:
		return fmt.Sprintf("transparency(%d)", int(t))
	}
}

// WindowEvent is a geometry or visibility change of a top-level window
type WindowEvent int

const (
	// WindowMoved is emitted when the window origin changes
	WindowMoved WindowEvent = iota + 1
	// WindowResized is emitted when the window size changes
	WindowResized
	// WindowShown is emitted when the window becomes visible
	WindowShown
	// WindowHidden is emitted when the window is hidden or minimized
	WindowHidden
)

func (e WindowEvent) String() string {
	switch e {
	case WindowMoved:
		return "moved"
	case WindowResized:
		return "resized"
	case WindowShown:
		return "shown"
	case WindowHidden:
		return "hidden"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// DisplayChange signals that the set of physical displays may have changed
type DisplayChange struct {
	// Source names the notifier, e.g. the DBus sender
	Source string
}
