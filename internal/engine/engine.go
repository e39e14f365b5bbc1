package engine

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"

	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultFrameInterval = time.Second / 30
	// hot-plug signals arrive in bursts while the compositor reconfigures outputs
	hotplugDebounce = 500 * time.Millisecond
)

// PaintFunc draws one frame into dst
type PaintFunc func(dst draw.Image, frame int)

// Engine drives the render loop: it paints and presents frames at a fixed
// cadence and follows display hot-plug events
type Engine struct {
	logger   *zap.Logger
	screen   domain.Screen
	monitor  domain.Monitor
	displays domain.DisplayRefresher
	paint    PaintFunc
	interval time.Duration
	debounce time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	frames atomic.Int64
}

// NewEngine creates a new render engine painting DefaultPaint
func NewEngine(
	logger *zap.Logger,
	screen domain.Screen,
	mon domain.Monitor,
	displays domain.DisplayRefresher,
) *Engine {
	return &Engine{
		logger:   logger,
		screen:   screen,
		monitor:  mon,
		displays: displays,
		paint:    DefaultPaint,
		interval: defaultFrameInterval,
		debounce: hotplugDebounce,
	}
}

// SetPaint replaces the frame painter; it must be called before Start
func (e *Engine) SetPaint(paint PaintFunc) {
	e.paint = paint
}

// Start launches the monitor and the render loop in goroutines.
// It returns immediately (non-blocking).
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Engine starting...")

	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Unlock()

	go func() {
		if err := e.monitor.Start(loopCtx); err != nil && err != context.Canceled {
			e.logger.Warn("Display hot-plug monitoring unavailable", zap.Error(err))
		}
	}()

	go e.runLoop(loopCtx)
	return nil
}

// runLoop renders frames and debounces display changes
func (e *Engine) runLoop(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	events := e.monitor.Events()

	// wait for a quiet period before re-enumerating
	timer := time.NewTimer(e.debounce)
	timer.Stop()
	pending := false

	var lastSize image.Point
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return

		case change, ok := <-events:
			if !ok {
				e.logger.Info("Monitor events channel closed")
				events = nil
				continue
			}
			e.logger.Debug("Display change received, debouncing...",
				zap.String("source", change.Source))
			pending = true
			timer.Reset(e.debounce)

		case <-timer.C:
			if pending {
				e.reconfigure()
				pending = false
				lastSize = image.Point{}
			}

		case <-ticker.C:
			lastSize = e.renderFrame(lastSize)
		}
	}
}

// reconfigure re-reads the display layout after a hot-plug
func (e *Engine) reconfigure() {
	count := e.displays.Refresh()
	e.screen.RevalidateDevice()
	if !e.screen.RebuildBuffers() {
		e.logger.Warn("Buffer rebuild after display change failed")
	}

	e.logger.Info("Display layout updated",
		zap.Int("displays", count),
		zap.Int("device", e.screen.DeviceIndex()))
}

// renderFrame paints and presents one frame. The buffer chain is rebuilt
// when the drawable changed size or no chain is installed.
func (e *Engine) renderFrame(lastSize image.Point) image.Point {
	size := image.Pt(e.screen.Width(), e.screen.Height())
	if size.X == 0 || size.Y == 0 {
		return lastSize
	}
	if size != lastSize {
		e.logger.Debug("Drawable resized, rebuilding buffers",
			zap.Int("w", size.X),
			zap.Int("h", size.Y))
		if !e.screen.RebuildBuffers() {
			return image.Point{}
		}
	}

	surface := e.screen.AcquireDrawSurface()
	if surface == nil {
		return image.Point{}
	}
	func() {
		defer surface.Dispose()
		e.paint(surface, int(e.frames.Load()))
	}()

	e.screen.Present()
	e.frames.Add(1)
	return size
}

// Frames returns the number of presented frames
func (e *Engine) Frames() int {
	return int(e.frames.Load())
}

// Stop halts the render loop and the monitor
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")

	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := e.monitor.Stop(ctx); err != nil {
		e.logger.Error("Failed to stop display monitor", zap.Error(err))
		return err
	}

	e.logger.Info("Engine stopped", zap.Int("frames", e.Frames()))
	return nil
}

// DefaultPaint draws a slowly cycling background with a sweeping bar
func DefaultPaint(dst draw.Image, frame int) {
	bounds := dst.Bounds()
	shade := uint8(frame % 256)
	draw.Draw(dst, bounds, &image.Uniform{C: color.RGBA{R: shade / 4, G: 32, B: 64, A: 0xff}}, image.Point{}, draw.Src)

	if bounds.Dx() == 0 {
		return
	}
	const barWidth = 16
	x := bounds.Min.X + (frame*4)%bounds.Dx()
	bar := image.Rect(x, bounds.Min.Y, x+barWidth, bounds.Max.Y).Intersect(bounds)
	draw.Draw(dst, bar, &image.Uniform{C: color.RGBA{R: 0xff, G: 0xc0, B: 0x40, A: 0xff}}, image.Point{}, draw.Src)
}
