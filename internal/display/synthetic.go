package display

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/genricoloni/screend/internal/domain"
)

// ErrModeUnsupported is returned when a device cannot present a display mode
var ErrModeUnsupported = errors.New("display mode not supported")

// SyntheticOptions configures a SyntheticDevice
type SyntheticOptions struct {
	Name   string
	Bounds image.Rectangle
	// Depth defaults to domain.BitDepthMulti
	Depth int
	// Modes defaults to the single mode matching Bounds
	Modes                  []domain.DisplayMode
	FullScreenSupported    bool
	DisplayChangeSupported bool
	// AcceleratedMemory in bytes; zero means unknown
	AcceleratedMemory int
}

// SyntheticDevice is a device emulated in memory. It stands in for the default
// screen when a platform cannot enumerate outputs, and for screens known only
// by their bounds.
type SyntheticDevice struct {
	opts SyntheticOptions

	mu           sync.Mutex
	current      domain.DisplayMode
	bounds       image.Rectangle
	window       domain.Window
	disconnected bool
}

// NewSyntheticDevice creates an emulated device
func NewSyntheticDevice(opts SyntheticOptions) *SyntheticDevice {
	if opts.Depth == 0 {
		opts.Depth = domain.BitDepthMulti
	}

	current := domain.DisplayMode{
		Width:       opts.Bounds.Dx(),
		Height:      opts.Bounds.Dy(),
		BitDepth:    opts.Depth,
		RefreshRate: domain.RefreshRateUnknown,
	}
	if len(opts.Modes) == 0 {
		opts.Modes = []domain.DisplayMode{current}
	}

	return &SyntheticDevice{
		opts:    opts,
		current: current,
		bounds:  opts.Bounds,
	}
}

// Name returns the configured name
func (d *SyntheticDevice) Name() string {
	return d.opts.Name
}

// DisplayModes returns the configured modes
func (d *SyntheticDevice) DisplayModes() []domain.DisplayMode {
	modes := make([]domain.DisplayMode, len(d.opts.Modes))
	copy(modes, d.opts.Modes)
	return modes
}

// DisplayMode returns the current mode
func (d *SyntheticDevice) DisplayMode() domain.DisplayMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// SetDisplayMode switches to mode if it matches one of the configured modes
func (d *SyntheticDevice) SetDisplayMode(mode domain.DisplayMode) error {
	if !d.opts.DisplayChangeSupported {
		return fmt.Errorf("%s: display change: %w", d.opts.Name, ErrModeUnsupported)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.window == nil {
		return fmt.Errorf("%s: display change requires a full-screen window", d.opts.Name)
	}

	for _, supported := range d.opts.Modes {
		if ModesMatch(mode, supported) {
			d.current = supported
			d.bounds = image.Rectangle{
				Min: d.bounds.Min,
				Max: d.bounds.Min.Add(image.Pt(supported.Width, supported.Height)),
			}
			return nil
		}
	}
	return fmt.Errorf("%s: %v: %w", d.opts.Name, mode, ErrModeUnsupported)
}

// Configurations returns one configuration, or none while disconnected
func (d *SyntheticDevice) Configurations() []domain.Configuration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disconnected {
		return nil
	}
	return []domain.Configuration{{
		Device: d.opts.Name,
		Bounds: d.bounds,
		Depth:  d.opts.Depth,
	}}
}

// AvailableAcceleratedMemory returns the configured amount, -1 when unknown
func (d *SyntheticDevice) AvailableAcceleratedMemory() int {
	if d.opts.AcceleratedMemory == 0 {
		return -1
	}
	return d.opts.AcceleratedMemory
}

// IsFullScreenSupported returns the configured flag
func (d *SyntheticDevice) IsFullScreenSupported() bool {
	return d.opts.FullScreenSupported
}

// IsDisplayChangeSupported returns the configured flag
func (d *SyntheticDevice) IsDisplayChangeSupported() bool {
	return d.opts.DisplayChangeSupported
}

// SetFullScreenWindow records w as the owner and stretches it over the device.
// Releasing restores the desktop mode.
func (d *SyntheticDevice) SetFullScreenWindow(w domain.Window) error {
	d.mu.Lock()
	d.window = w
	if w == nil {
		d.current = domain.DisplayMode{
			Width:       d.opts.Bounds.Dx(),
			Height:      d.opts.Bounds.Dy(),
			BitDepth:    d.opts.Depth,
			RefreshRate: domain.RefreshRateUnknown,
		}
		d.bounds = d.opts.Bounds
	}
	size := d.bounds.Size()
	d.mu.Unlock()

	if w != nil {
		w.SetSize(size.X, size.Y)
	}
	return nil
}

// FullScreenWindow returns the owning window
func (d *SyntheticDevice) FullScreenWindow() domain.Window {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.window
}

// Disconnect makes the device report no configurations
func (d *SyntheticDevice) Disconnect() {
	d.mu.Lock()
	d.disconnected = true
	d.mu.Unlock()
}

// Connect reverts Disconnect
func (d *SyntheticDevice) Connect() {
	d.mu.Lock()
	d.disconnected = false
	d.mu.Unlock()
}
