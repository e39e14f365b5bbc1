// Package headless implements windows and buffer chains in memory. It serves
// sessions without a display server and exercises the screen manager in tests.
package headless

import (
	"image"
	"sync"

	"github.com/genricoloni/screend/internal/display"
	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

// Backend is the in-memory platform
type Backend struct {
	logger *zap.Logger
	enum   display.Enumerator

	mu      sync.Mutex
	devices []domain.Device
	syncs   int
}

// New creates a headless backend. Devices come from enum; a nil enum yields
// no devices and the registry falls back to its synthetic default.
func New(logger *zap.Logger, enum display.Enumerator) *Backend {
	return &Backend{logger: logger, enum: enum}
}

// Name returns "headless"
func (b *Backend) Name() string {
	return "headless"
}

// Devices enumerates through the configured enumerator
func (b *Backend) Devices() ([]domain.Device, error) {
	if b.enum == nil {
		return nil, nil
	}
	devices, err := b.enum.Devices()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.devices = devices
	b.mu.Unlock()
	return devices, nil
}

// configFor returns the configuration of the device containing p
func (b *Backend) configFor(p image.Point) domain.Configuration {
	b.mu.Lock()
	devices := b.devices
	b.mu.Unlock()

	for _, d := range devices {
		configs := d.Configurations()
		if len(configs) > 0 && p.In(configs[0].Bounds) {
			return configs[0]
		}
	}
	return domain.Configuration{Device: "headless", Bounds: image.Rect(0, 0, 1920, 1080), Depth: domain.BitDepthMulti}
}

// NewWindow creates an in-memory window
func (b *Backend) NewWindow(title string, width, height int) (domain.Window, error) {
	b.logger.Debug("Creating headless window",
		zap.String("title", title),
		zap.Int("width", width),
		zap.Int("height", height))
	return NewWindow(title, width, height, b.configFor), nil
}

// NewCanvas creates a canvas on w
func (b *Backend) NewCanvas(w domain.Window, name string) (domain.Canvas, error) {
	hw, _ := w.(*Window)
	return NewCanvas(hw, name), nil
}

// Sync counts flushes
func (b *Backend) Sync() {
	b.mu.Lock()
	b.syncs++
	b.mu.Unlock()
}

// Syncs returns the number of Sync calls
func (b *Backend) Syncs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.syncs
}

// Close is a no-op
func (b *Backend) Close() error {
	return nil
}
