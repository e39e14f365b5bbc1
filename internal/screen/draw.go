package screen

import (
	"image"

	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

func (m *Manager) strategy() domain.BufferStrategy {
	d := m.activeDrawable()
	if d == nil {
		return nil
	}
	return d.BufferStrategy()
}

// AcquireDrawSurface returns the back buffer of the active buffer chain, or
// nil when none is installed. The caller must Dispose the surface.
func (m *Manager) AcquireDrawSurface() domain.Surface {
	s := m.strategy()
	if s == nil {
		return nil
	}
	surface, err := s.DrawSurface()
	if err != nil {
		m.logger.Debug("Draw surface unavailable", zap.Error(err))
		return nil
	}
	return surface
}

// Present publishes the back buffer unless its contents were lost, then
// flushes the display connection
func (m *Manager) Present() {
	if s := m.strategy(); s != nil && !s.ContentsLost() {
		if err := s.Show(); err != nil {
			m.logger.Debug("Skipping frame", zap.Error(err))
		}
	}
	m.backend.Sync()
}

// Width returns the width of the active drawable, 0 when there is none
func (m *Manager) Width() int {
	d := m.activeDrawable()
	if d == nil {
		return 0
	}
	width, _ := d.Size()
	return width
}

// Height returns the height of the active drawable, 0 when there is none
func (m *Manager) Height() int {
	d := m.activeDrawable()
	if d == nil {
		return 0
	}
	_, height := d.Size()
	return height
}

// snapshotRect returns the screen area of the active drawable
func (m *Manager) snapshotRect() image.Rectangle {
	if m.fullScreen.Load() {
		if w := m.currentWindow(); w != nil {
			return w.Bounds()
		}
		return image.Rectangle{}
	}
	if c := m.windowed(); c != nil {
		return c.Bounds()
	}
	return image.Rectangle{}
}

// CaptureSnapshot grabs the pixels under the active drawable. It returns nil
// when there is nothing to capture or capturing fails.
func (m *Manager) CaptureSnapshot() *image.RGBA {
	if m.capturer == nil {
		m.logger.Error("Screen capture unavailable")
		return nil
	}
	rect := m.snapshotRect()
	if rect.Empty() {
		m.logger.Warn("Nothing to capture, no active drawable")
		return nil
	}

	img, err := m.capturer.Capture(rect)
	if err != nil {
		m.logger.Error("Failed to capture snapshot",
			zap.Stringer("rect", rect),
			zap.Error(err))
		return nil
	}
	return img
}
