package x11

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/genricoloni/screend/internal/display"
	"github.com/genricoloni/screend/internal/domain"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"
)

// Device is a RandR output driven by a CRTC
type Device struct {
	backend *Backend
	name    string
	output  randr.Output
	crtc    randr.Crtc
	depth   int
	modes   []domain.DisplayMode
	ids     map[domain.DisplayMode]randr.Mode

	mu       sync.Mutex
	bounds   image.Rectangle
	current  domain.DisplayMode
	mode     randr.Mode
	original randr.Mode
	rotation uint16
	outputs  []randr.Output
	owner    domain.Window
	randr    bool
}

// outputs enumerates the connected outputs with an active CRTC
func (b *Backend) outputs() ([]domain.Device, error) {
	res, err := randr.GetScreenResources(b.conn, b.screen.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query screen resources: %w", err)
	}

	infos := make(map[uint32]randr.ModeInfo, len(res.Modes))
	for _, m := range res.Modes {
		infos[m.Id] = m
	}

	var devices []domain.Device
	for _, output := range res.Outputs {
		info, err := randr.GetOutputInfo(b.conn, output, res.ConfigTimestamp).Reply()
		if err != nil {
			b.logger.Debug("Skipping output", zap.Uint32("output", uint32(output)), zap.Error(err))
			continue
		}
		if info.Connection != randr.ConnectionConnected || info.Crtc == 0 {
			continue
		}

		crtc, err := randr.GetCrtcInfo(b.conn, info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil {
			b.logger.Debug("Skipping output without CRTC", zap.String("name", string(info.Name)), zap.Error(err))
			continue
		}

		d := &Device{
			backend:  b,
			name:     string(info.Name),
			output:   output,
			crtc:     info.Crtc,
			depth:    int(b.screen.RootDepth),
			ids:      make(map[domain.DisplayMode]randr.Mode),
			bounds:   image.Rect(int(crtc.X), int(crtc.Y), int(crtc.X)+int(crtc.Width), int(crtc.Y)+int(crtc.Height)),
			mode:     crtc.Mode,
			original: crtc.Mode,
			rotation: crtc.Rotation,
			outputs:  crtc.Outputs,
			randr:    true,
		}
		for _, id := range info.Modes {
			mi, ok := infos[uint32(id)]
			if !ok {
				continue
			}
			m := d.modeOf(mi)
			if _, dup := d.ids[m]; !dup {
				d.ids[m] = id
				d.modes = append(d.modes, m)
			}
			if id == crtc.Mode {
				d.current = m
			}
		}
		if d.current.Width == 0 {
			d.current = domain.DisplayMode{Width: d.bounds.Dx(), Height: d.bounds.Dy(), BitDepth: d.depth}
		}

		b.logger.Info("Output detected",
			zap.String("name", d.name),
			zap.Stringer("mode", d.current),
			zap.Int("x", d.bounds.Min.X),
			zap.Int("y", d.bounds.Min.Y),
			zap.Int("modes", len(d.modes)))
		devices = append(devices, d)
	}
	return devices, nil
}

// rootDevice describes the whole root window when RandR is unavailable
func (b *Backend) rootDevice() *Device {
	w, h := int(b.screen.WidthInPixels), int(b.screen.HeightInPixels)
	mode := domain.DisplayMode{Width: w, Height: h, BitDepth: int(b.screen.RootDepth), RefreshRate: domain.RefreshRateUnknown}
	return &Device{
		backend: b,
		name:    "root",
		depth:   int(b.screen.RootDepth),
		modes:   []domain.DisplayMode{mode},
		ids:     map[domain.DisplayMode]randr.Mode{},
		bounds:  image.Rect(0, 0, w, h),
		current: mode,
	}
}

// modeOf converts a RandR mode; the refresh rate is the rounded dot clock
// over the total frame size
func (d *Device) modeOf(mi randr.ModeInfo) domain.DisplayMode {
	refresh := domain.RefreshRateUnknown
	if total := uint64(mi.Htotal) * uint64(mi.Vtotal); total > 0 {
		refresh = int((uint64(mi.DotClock) + total/2) / total)
	}
	return domain.DisplayMode{
		Width:       int(mi.Width),
		Height:      int(mi.Height),
		BitDepth:    d.depth,
		RefreshRate: refresh,
	}
}

// Name returns the RandR output name, such as "HDMI-1"
func (d *Device) Name() string {
	return d.name
}

// DisplayModes lists the modes the output advertises
func (d *Device) DisplayModes() []domain.DisplayMode {
	modes := make([]domain.DisplayMode, len(d.modes))
	copy(modes, d.modes)
	return modes
}

// DisplayMode returns the mode the CRTC is currently driving
func (d *Device) DisplayMode() domain.DisplayMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// SetDisplayMode reprograms the CRTC. Only valid while a full-screen window
// owns the device.
func (d *Device) SetDisplayMode(mode domain.DisplayMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.randr {
		return display.ErrModeUnsupported
	}
	if d.owner == nil {
		return errors.New("display mode can only change in full-screen mode")
	}

	for _, m := range d.modes {
		if !display.ModesMatch(mode, m) {
			continue
		}
		if err := d.applyLocked(d.ids[m]); err != nil {
			return err
		}
		d.current = m
		d.bounds = image.Rectangle{Min: d.bounds.Min, Max: d.bounds.Min.Add(image.Pt(m.Width, m.Height))}
		return nil
	}
	return fmt.Errorf("%s on %s: %w", mode, d.name, display.ErrModeUnsupported)
}

// applyLocked programs the CRTC with mode id; d.mu must be held
func (d *Device) applyLocked(id randr.Mode) error {
	if id == d.mode {
		return nil
	}
	reply, err := randr.SetCrtcConfig(d.backend.conn, d.crtc,
		xproto.TimeCurrentTime, xproto.TimeCurrentTime,
		int16(d.bounds.Min.X), int16(d.bounds.Min.Y),
		id, d.rotation, d.outputs).Reply()
	if err != nil {
		return fmt.Errorf("failed to set CRTC mode on %s: %w", d.name, err)
	}
	if reply.Status != randr.SetConfigSuccess {
		return fmt.Errorf("server rejected mode on %s (status %d): %w", d.name, reply.Status, display.ErrModeUnsupported)
	}
	d.mode = id
	return nil
}

// Configurations returns the single configuration of the output
func (d *Device) Configurations() []domain.Configuration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return []domain.Configuration{{Device: d.name, Bounds: d.bounds, Depth: d.depth}}
}

// AvailableAcceleratedMemory is unknown on X11
func (d *Device) AvailableAcceleratedMemory() int {
	return -1
}

// IsFullScreenSupported is true: any EWMH window manager honors the fullscreen state
func (d *Device) IsFullScreenSupported() bool {
	return true
}

// IsDisplayChangeSupported reports whether RandR is available and the output
// advertises modes to switch between
func (d *Device) IsDisplayChangeSupported() bool {
	return d.randr && len(d.modes) > 0
}

// SetFullScreenWindow stretches w over the output and marks it fullscreen.
// Releasing restores the mode the output had when it was first taken.
func (d *Device) SetFullScreenWindow(w domain.Window) error {
	d.mu.Lock()
	previous := d.owner

	if w == nil {
		d.owner = nil
		var err error
		if previous != nil {
			err = d.restoreLocked()
		}
		d.mu.Unlock()

		if xw, ok := previous.(*Window); ok {
			xw.setFullScreen(false)
		}
		return err
	}

	if previous != nil && previous != w {
		d.mu.Unlock()
		return display.ErrDeviceBusy
	}
	if previous == nil {
		d.original = d.mode
	}
	d.owner = w
	bounds := d.bounds
	d.mu.Unlock()

	w.SetLocation(bounds.Min.X, bounds.Min.Y)
	w.SetSize(bounds.Dx(), bounds.Dy())
	if xw, ok := w.(*Window); ok {
		xw.setFullScreen(true)
	}
	return nil
}

// restoreLocked reinstates the saved mode; d.mu must be held
func (d *Device) restoreLocked() error {
	if !d.randr || d.mode == d.original {
		return nil
	}
	if err := d.applyLocked(d.original); err != nil {
		return err
	}
	for m, id := range d.ids {
		if id == d.original {
			d.current = m
			d.bounds = image.Rectangle{Min: d.bounds.Min, Max: d.bounds.Min.Add(image.Pt(m.Width, m.Height))}
		}
	}
	return nil
}

// FullScreenWindow returns the window owning the output, or nil
func (d *Device) FullScreenWindow() domain.Window {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner
}
