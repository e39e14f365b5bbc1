package config

import (
	"image"

	"github.com/genricoloni/screend/internal/domain"
)

const (
	minWindowSide = 150
	// a window this close to the combined screen size is maximized instead
	maximizeMargin = 50
)

// DefaultWindowSize is used when no size or a too small one is requested
var DefaultWindowSize = image.Pt(600, 500)

// WindowBounds is the geometry requested for the main window
type WindowBounds struct {
	size     image.Point
	location *image.Point
}

// SetSize requests a window size. Sizes below 150 pixels on either side
// fall back to DefaultWindowSize.
func (b *WindowBounds) SetSize(width, height int) {
	if width < minWindowSide || height < minWindowSide {
		b.size = DefaultWindowSize
		return
	}
	b.size = image.Pt(width, height)
}

// SetLocation requests a window position
func (b *WindowBounds) SetLocation(x, y int) {
	p := image.Pt(x, y)
	b.location = &p
}

// Size returns the requested size; ok is false when none was requested
func (b WindowBounds) Size() (size image.Point, ok bool) {
	return b.size, b.size != image.Point{}
}

// Placement is where and how large a window ends up
type Placement struct {
	Size      image.Point
	Location  image.Point
	Maximized bool
	Centered  bool
}

// Resolve places the window inside maxBounds, the union of every display.
// A position whose window would overflow an axis is reset to 0 on that axis,
// and the position is only kept when both coordinates are positive; otherwise
// the window is centered.
func (b WindowBounds) Resolve(maxBounds image.Rectangle) Placement {
	p := Placement{Size: b.size}
	if p.Size == (image.Point{}) {
		p.Size = DefaultWindowSize
	}
	limit := maxBounds.Size()

	if b.size != (image.Point{}) &&
		(b.size.X > limit.X-maximizeMargin || b.size.Y > limit.Y-maximizeMargin) {
		p.Maximized = true
		p.Size = limit
		p.Location = maxBounds.Min
		return p
	}

	if b.location != nil {
		x, y := b.location.X, b.location.Y
		if x+b.size.X > limit.X {
			x = 0
		}
		if y+b.size.Y > limit.Y {
			y = 0
		}
		if x > 0 && y > 0 {
			p.Location = image.Pt(x, y)
			return p
		}
	}

	p.Centered = true
	p.Location = maxBounds.Min.Add(limit.Sub(p.Size).Div(2))
	return p
}

// Configure applies the resolved placement to w
func (b WindowBounds) Configure(w domain.Window, maxBounds image.Rectangle) Placement {
	p := b.Resolve(maxBounds)
	w.SetSize(p.Size.X, p.Size.Y)
	w.SetLocation(p.Location.X, p.Location.Y)
	return p
}
