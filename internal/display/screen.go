package display

import (
	"errors"
	"fmt"
	"image"

	"github.com/genricoloni/screend/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// ErrCaptureUnavailable is returned when the screen cannot be captured
var ErrCaptureUnavailable = errors.New("screen capture unavailable")

// ScreenshotEnumerator detects displays through the screenshot library.
// Devices only know their bounds: they cannot switch modes and do not claim
// full-screen support.
type ScreenshotEnumerator struct {
	logger *zap.Logger
}

// NewScreenshotEnumerator creates a bounds-only enumerator
func NewScreenshotEnumerator(logger *zap.Logger) *ScreenshotEnumerator {
	return &ScreenshotEnumerator{logger: logger}
}

// Devices lists the active displays
func (e *ScreenshotEnumerator) Devices() ([]domain.Device, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, fmt.Errorf("no active displays detected")
	}

	devices := make([]domain.Device, 0, n)
	for i := 0; i < n; i++ {
		bounds := screenshot.GetDisplayBounds(i)
		if bounds.Empty() {
			continue
		}

		e.logger.Info("Screen detected",
			zap.Int("index", i),
			zap.Int("x", bounds.Min.X),
			zap.Int("y", bounds.Min.Y),
			zap.Int("width", bounds.Dx()),
			zap.Int("height", bounds.Dy()))

		devices = append(devices, NewSyntheticDevice(SyntheticOptions{
			Name:   fmt.Sprintf("screen%d", i),
			Bounds: bounds,
		}))
	}
	return devices, nil
}

// ScreenshotCapturer captures screen rectangles through the screenshot library
type ScreenshotCapturer struct{}

// NewScreenshotCapturer creates a capturer
func NewScreenshotCapturer() *ScreenshotCapturer {
	return &ScreenshotCapturer{}
}

// Capture grabs the pixels of rect
func (ScreenshotCapturer) Capture(rect image.Rectangle) (*image.RGBA, error) {
	if rect.Empty() {
		return nil, fmt.Errorf("empty capture area %v: %w", rect, ErrCaptureUnavailable)
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return img, nil
}
