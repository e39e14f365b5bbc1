package display

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

var (
	// ErrNoSuchDevice is returned for an index outside the registry
	ErrNoSuchDevice = errors.New("no such display device")
	// ErrDeviceBusy is returned when another device already owns a full-screen window
	ErrDeviceBusy = errors.New("another device is already in full-screen mode")
)

// fallbackBounds is the synthetic default screen used when enumeration fails
var fallbackBounds = image.Rect(0, 0, 1920, 1080)

// Enumerator lists the physical displays of a platform
type Enumerator interface {
	Devices() ([]domain.Device, error)
}

// EnumeratorFunc adapts a function to Enumerator
type EnumeratorFunc func() ([]domain.Device, error)

// Devices calls f
func (f EnumeratorFunc) Devices() ([]domain.Device, error) {
	return f()
}

// Registry holds the displays discovered at startup.
// The list is loaded on first access and only changes through Refresh.
type Registry struct {
	logger *zap.Logger
	enum   Enumerator

	once    sync.Once
	mu      sync.RWMutex
	devices []domain.Device

	// serializes full-screen acquisition across devices
	exclusive sync.Mutex
}

// NewRegistry creates a registry backed by enum
func NewRegistry(logger *zap.Logger, enum Enumerator) *Registry {
	return &Registry{
		logger: logger,
		enum:   enum,
	}
}

func (r *Registry) load() {
	r.once.Do(func() {
		devices := r.enumerate()
		r.mu.Lock()
		r.devices = devices
		r.mu.Unlock()
	})
}

// enumerate never returns an empty list
func (r *Registry) enumerate() []domain.Device {
	var devices []domain.Device
	if r.enum != nil {
		found, err := r.enum.Devices()
		if err != nil {
			r.logger.Warn("Display enumeration failed, using default screen", zap.Error(err))
		}
		devices = found
	}

	if len(devices) == 0 {
		r.logger.Warn("No display devices detected, falling back to a synthetic default screen",
			zap.Int("width", fallbackBounds.Dx()),
			zap.Int("height", fallbackBounds.Dy()))
		devices = []domain.Device{NewSyntheticDevice(SyntheticOptions{
			Name:   "default",
			Bounds: fallbackBounds,
		})}
	}

	for i, d := range devices {
		r.logger.Debug("Display device registered",
			zap.Int("index", i),
			zap.String("name", d.Name()),
			zap.Stringer("mode", d.DisplayMode()))
	}
	return devices
}

// Refresh re-enumerates the displays and returns the new device count.
// Devices currently owning a full-screen window are kept when the platform
// still reports a device with the same name.
func (r *Registry) Refresh() int {
	r.load()
	devices := r.enumerate()

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, d := range devices {
		for _, old := range r.devices {
			if old.Name() == d.Name() && old.FullScreenWindow() != nil {
				devices[i] = old
			}
		}
	}

	r.devices = devices
	r.logger.Info("Display devices re-enumerated", zap.Int("count", len(devices)))
	return len(devices)
}

// Devices returns a copy of the device list
func (r *Registry) Devices() []domain.Device {
	r.load()
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]domain.Device, len(r.devices))
	copy(devices, r.devices)
	return devices
}

// Len returns the number of devices
func (r *Registry) Len() int {
	r.load()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Device returns the device at index
func (r *Registry) Device(index int) (domain.Device, error) {
	r.load()
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.devices) {
		return nil, fmt.Errorf("device %d: %w", index, ErrNoSuchDevice)
	}
	return r.devices[index], nil
}

// MaximumBounds returns the union of every configuration of every device
func (r *Registry) MaximumBounds() image.Rectangle {
	var bounds image.Rectangle
	for _, d := range r.Devices() {
		for _, cfg := range d.Configurations() {
			bounds = bounds.Union(cfg.Bounds)
		}
	}
	return bounds
}

// CurrentBounds returns the union of the configurations of the device at index
func (r *Registry) CurrentBounds(index int) image.Rectangle {
	var bounds image.Rectangle
	d, err := r.Device(index)
	if err != nil {
		return bounds
	}
	for _, cfg := range d.Configurations() {
		bounds = bounds.Union(cfg.Bounds)
	}
	return bounds
}

// CurrentConfiguration returns the first configuration of the device at index.
// The bool is false when the device reports none.
func (r *Registry) CurrentConfiguration(index int) (domain.Configuration, bool) {
	d, err := r.Device(index)
	if err != nil {
		return domain.Configuration{}, false
	}
	configs := d.Configurations()
	if len(configs) == 0 {
		return domain.Configuration{}, false
	}
	return configs[0], true
}

// DefaultConfiguration returns the configuration of the first device that has one
func (r *Registry) DefaultConfiguration() domain.Configuration {
	for i := 0; i < r.Len(); i++ {
		if cfg, ok := r.CurrentConfiguration(i); ok {
			return cfg
		}
	}
	return domain.Configuration{Device: "default", Bounds: fallbackBounds, Depth: domain.BitDepthMulti}
}

// IndexAt returns the index of the first device whose first configuration
// contains p. The bool is false when no device does.
func (r *Registry) IndexAt(p image.Point) (int, bool) {
	for i, d := range r.Devices() {
		configs := d.Configurations()
		if len(configs) > 0 && p.In(configs[0].Bounds) {
			return i, true
		}
	}
	return 0, false
}

// AcquireFullScreen hands the device at index to w.
// Only one device may own a full-screen window at a time.
func (r *Registry) AcquireFullScreen(index int, w domain.Window) error {
	r.exclusive.Lock()
	defer r.exclusive.Unlock()

	target, err := r.Device(index)
	if err != nil {
		return err
	}

	for i, d := range r.Devices() {
		if i != index && d.FullScreenWindow() != nil {
			return fmt.Errorf("device %d (%s): %w", i, d.Name(), ErrDeviceBusy)
		}
	}

	if err := target.SetFullScreenWindow(w); err != nil {
		return fmt.Errorf("failed to acquire device %d: %w", index, err)
	}
	return nil
}

// ReleaseFullScreen returns the device at index to windowed use
func (r *Registry) ReleaseFullScreen(index int) error {
	r.exclusive.Lock()
	defer r.exclusive.Unlock()

	d, err := r.Device(index)
	if err != nil {
		return err
	}
	if err := d.SetFullScreenWindow(nil); err != nil {
		return fmt.Errorf("failed to release device %d: %w", index, err)
	}
	return nil
}
