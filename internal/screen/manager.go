package screen

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/genricoloni/screend/internal/display"
	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultBufferLayers = 2

// Manager owns the rendering target of one logical screen. It presents
// either through a windowed canvas or through a full-screen window holding a
// device exclusively, and keeps track of the device the canvas is on.
type Manager struct {
	logger     *zap.Logger
	registry   *display.Registry
	dispatcher domain.Dispatcher
	backend    domain.Backend
	capturer   domain.Capturer
	layers     int
	tracker    *Tracker

	fullScreen atomic.Bool
	config     atomic.Pointer[domain.Configuration]

	// mu guards the fields below and every device lookup that depends on deviceIndex
	mu             sync.Mutex
	deviceIndex    int
	canvas         domain.Canvas
	removeListener func()
	ownerIndex     int
	ownerWindow    domain.Window
	entering       bool
	closed         bool
}

// NewManager creates a manager in windowed mode on the first device.
// capturer may be nil when screen capture is unavailable.
func NewManager(
	logger *zap.Logger,
	registry *display.Registry,
	dispatcher domain.Dispatcher,
	backend domain.Backend,
	capturer domain.Capturer,
	cfg domain.Config,
) *Manager {
	layers := cfg.GetBufferLayers()
	if layers < 2 {
		layers = defaultBufferLayers
	}

	m := &Manager{
		logger:     logger,
		registry:   registry,
		dispatcher: dispatcher,
		backend:    backend,
		capturer:   capturer,
		layers:     layers,
		ownerIndex: -1,
	}
	m.tracker = NewTracker(logger.Named("tracker"), cfg.GetDebounce(), m.updateDeviceIndex)
	return m
}

// Tracker returns the device tracker fed by the canvas window
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// IsFullScreen reports whether a full-screen window is the render target
func (m *Manager) IsFullScreen() bool {
	return m.fullScreen.Load()
}

// DeviceIndex returns the index of the active device
func (m *Manager) DeviceIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceIndex
}

func (m *Manager) windowed() domain.Canvas {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canvas
}

// currentWindow returns the full-screen window, or the canvas window in windowed mode
func (m *Manager) currentWindow() domain.Window {
	if m.fullScreen.Load() {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.ownerWindow
	}
	if c := m.windowed(); c != nil {
		return c.Window()
	}
	return nil
}

// activeDrawable returns the render target selected by the mode flag, or nil
func (m *Manager) activeDrawable() domain.Drawable {
	if m.fullScreen.Load() {
		if w := m.currentWindow(); w != nil {
			return w
		}
		return nil
	}
	if c := m.windowed(); c != nil {
		return c
	}
	return nil
}

// SetWindowedComponent makes c the windowed render target. With several
// devices the window holding c is tracked to follow it across monitors.
func (m *Manager) SetWindowedComponent(c domain.Canvas) {
	if c == nil {
		return
	}

	m.mu.Lock()
	if m.closed || m.canvas == c {
		m.mu.Unlock()
		return
	}
	m.canvas = c
	remove := m.removeListener
	m.removeListener = nil
	m.mu.Unlock()

	if remove != nil {
		remove()
	}

	m.syncTracking()
	m.installBufferStrategy()
	m.updateDeviceIndex()
}

// syncTracking listens to the canvas window while more than one device
// exists and stops listening otherwise
func (m *Manager) syncTracking() {
	want := m.registry.Len() > 1

	m.mu.Lock()
	c := m.canvas
	remove := m.removeListener
	if m.closed || c == nil || (remove != nil) == want {
		m.mu.Unlock()
		return
	}
	m.removeListener = nil
	m.mu.Unlock()

	if !want {
		remove()
		m.logger.Debug("Single display device, window tracking stopped")
		return
	}

	w := c.Window()
	if w == nil {
		return
	}
	remove = w.AddListener(m.tracker.Notify)

	m.mu.Lock()
	if m.closed || m.canvas != c || m.removeListener != nil {
		m.mu.Unlock()
		remove()
		return
	}
	m.removeListener = remove
	m.mu.Unlock()
	m.logger.Debug("Window tracking started", zap.Int("devices", m.registry.Len()))
}

// updateDeviceIndex adopts the first device containing the canvas window origin.
// Nothing changes in full-screen mode, for hidden windows, or when no device
// contains the origin.
func (m *Manager) updateDeviceIndex() {
	if m.fullScreen.Load() {
		return
	}
	c := m.windowed()
	if c == nil {
		return
	}
	w := c.Window()
	if w == nil || !w.Visible() {
		return
	}

	index, found := m.registry.IndexAt(w.Location())
	if !found {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// an exclusive owner, or one being installed, pins the device
	if m.fullScreen.Load() || m.ownerWindow != nil || m.entering {
		return
	}
	if index != m.deviceIndex {
		m.logger.Debug("Updating display device",
			zap.Int("from", m.deviceIndex),
			zap.Int("to", index))
		m.deviceIndex = index
	}
}

// RevalidateDevice keeps the device index valid after the registry was
// refreshed, starts or stops window tracking as the device count requires,
// then re-resolves the index from the canvas window
func (m *Manager) RevalidateDevice() {
	m.mu.Lock()
	if n := m.registry.Len(); m.deviceIndex >= n {
		m.logger.Info("Active display device disappeared, falling back to the first one",
			zap.Int("device", m.deviceIndex),
			zap.Int("count", n))
		m.deviceIndex = 0
	}
	m.mu.Unlock()

	m.syncTracking()
	m.updateDeviceIndex()
}

// deviceLocked returns the active device; callers hold mu
func (m *Manager) deviceLocked() (domain.Device, error) {
	return m.registry.Device(m.deviceIndex)
}

// Configuration returns the cached graphics configuration used for
// compatible surfaces
func (m *Manager) Configuration() domain.Configuration {
	if cfg := m.config.Load(); cfg != nil {
		return *cfg
	}

	m.mu.Lock()
	index := m.deviceIndex
	m.mu.Unlock()

	if cfg, ok := m.registry.CurrentConfiguration(index); ok {
		return cfg
	}
	return m.registry.DefaultConfiguration()
}

func (m *Manager) setConfiguration(cfg domain.Configuration) {
	if cfg.Bounds.Empty() {
		return
	}
	m.config.Store(&cfg)
}

// CurrentDisplayMode returns the mode of the active device
func (m *Manager) CurrentDisplayMode() domain.DisplayMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.deviceLocked()
	if err != nil {
		return domain.DisplayMode{}
	}
	return d.DisplayMode()
}

// CompatibleDisplayModes returns the modes of the active device
func (m *Manager) CompatibleDisplayModes() []domain.DisplayMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.deviceLocked()
	if err != nil {
		return nil
	}
	return d.DisplayModes()
}

// FindFirstCompatibleMode returns the first candidate the active device can present
func (m *Manager) FindFirstCompatibleMode(candidates []domain.DisplayMode) (domain.DisplayMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.deviceLocked()
	if err != nil {
		return domain.DisplayMode{}, false
	}
	return display.FindFirstCompatible(candidates, d.DisplayMode(), d.DisplayModes())
}

// CurrentBounds returns the bounds of the active device
func (m *Manager) CurrentBounds() image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.CurrentBounds(m.deviceIndex)
}

// AvailableAcceleratedMemoryMB returns the free accelerated memory of the
// active device in MiB, -1 when unknown
func (m *Manager) AvailableAcceleratedMemoryMB() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.deviceLocked()
	if err != nil {
		return -1
	}
	bytes := d.AvailableAcceleratedMemory()
	if bytes < 0 {
		return -1
	}
	return bytes / (1 << 20)
}

// String describes the active device, component and mode
func (m *Manager) String() string {
	component := "null"
	if c := m.windowed(); c != nil {
		component = c.Name()
	}
	state := "Off"
	if m.IsFullScreen() {
		state = "On"
	}
	return fmt.Sprintf("Device=%d Component=%s Fullscreen=%s", m.DeviceIndex(), component, state)
}

// Close stops the tracker, releases exclusive device ownership and drops the
// buffer chains. It is safe to call more than once.
func (m *Manager) Close() error {
	m.tracker.Stop()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	remove := m.removeListener
	m.removeListener = nil
	canvas := m.canvas
	m.mu.Unlock()

	if remove != nil {
		remove()
	}

	var err error
	if m.fullScreen.Load() {
		m.ExitFullScreen()
	}
	err = multierr.Append(err, m.release())

	if canvas != nil {
		err = multierr.Append(err, m.dispatcher.Invoke(func() {
			if s := canvas.BufferStrategy(); s != nil {
				s.Dispose()
			}
		}))
	}

	m.logger.Info("Screen manager closed")
	return err
}
