package screen

import (
	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

// EnterFullScreen makes w the exclusive owner of the active device and its
// render target. A nil mode keeps the mode the device settles on; a mode the
// device rejects still leaves w sized to it. A nil w is ignored.
//
// The native window is reworked on the UI thread, so EnterFullScreen must not
// be called from it.
func (m *Manager) EnterFullScreen(mode *domain.DisplayMode, w domain.Window) {
	if w == nil {
		m.logger.Warn("Ignoring full-screen request without a window")
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	index := m.deviceIndex
	previous := m.ownerWindow
	// pins index until the owner is recorded or the attempt ends
	m.entering = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.entering = false
		m.mu.Unlock()
	}()

	if previous != nil && previous != w {
		if err := m.release(); err != nil {
			m.logger.Warn("Failed to release previous full-screen window", zap.Error(err))
		}
	}

	device, err := m.registry.Device(index)
	if err != nil {
		m.logger.Error("Cannot enter full-screen mode", zap.Int("device", index), zap.Error(err))
		return
	}

	acquired := false
	if err := m.dispatcher.Invoke(func() {
		acquired = m.takeOver(index, device, mode, w)
	}); err != nil {
		m.logger.Error("Failed to prepare full-screen window", zap.Error(err))
	}

	active := device.IsFullScreenSupported() && acquired
	m.fullScreen.Store(active)
	if active {
		m.tracker.Suspend()
	}

	m.installBufferStrategy()

	m.logger.Info("Entered full-screen mode",
		zap.Int("device", index),
		zap.Bool("active", active),
		zap.Stringer("mode", device.DisplayMode()))
}

// takeOver turns w into a bare full-screen window and hands it the device at
// index. It runs on the UI thread and reports whether the device was acquired.
func (m *Manager) takeOver(index int, device domain.Device, mode *domain.DisplayMode, w domain.Window) bool {
	// buffer contents do not survive the native surface
	w.SetVisible(false)
	w.Dispose()

	w.SetUndecorated(true)
	w.SetResizable(false)
	w.SetIgnoreRepaint(true)

	w.SetVisible(true)
	acquired := true
	if err := m.registry.AcquireFullScreen(index, w); err != nil {
		acquired = false
		m.logger.Warn("Exclusive full-screen acquisition failed",
			zap.Int("device", index),
			zap.String("name", device.Name()),
			zap.Error(err))
	}

	if acquired {
		m.mu.Lock()
		m.ownerIndex = index
		m.ownerWindow = w
		m.mu.Unlock()
	}

	if mode != nil {
		if acquired && device.IsDisplayChangeSupported() {
			if res := applyMode(device, *mode); res.err != nil {
				m.logger.Warn("Display mode rejected, keeping the current one",
					zap.Stringer("requested", *mode),
					zap.Stringer("current", res.mode),
					zap.Error(res.err))
			}
		}
		w.SetSize(mode.Width, mode.Height)
	}
	return acquired
}

// EnterFullScreenDefault creates an untitled window covering the active
// device and enters full-screen mode with it, using the first candidate the
// device can present. It returns nil when no window could be created.
func (m *Manager) EnterFullScreenDefault(candidates []domain.DisplayMode) domain.Window {
	bounds := m.CurrentBounds()
	var (
		w   domain.Window
		err error
	)
	if ierr := m.dispatcher.Invoke(func() {
		w, err = m.backend.NewWindow("", bounds.Dx(), bounds.Dy())
	}); ierr != nil {
		err = ierr
	}
	if err != nil {
		m.logger.Error("Failed to create full-screen window", zap.Error(err))
		return nil
	}

	if mode, ok := m.FindFirstCompatibleMode(candidates); ok {
		m.EnterFullScreen(&mode, w)
		return w
	}
	m.logger.Info("No preferred display mode available, keeping the current one",
		zap.Int("candidates", len(candidates)))
	m.EnterFullScreen(nil, w)
	return w
}

// ExitFullScreen returns to the windowed component. It is a no-op in
// windowed mode. Like EnterFullScreen it must not be called from the UI thread.
func (m *Manager) ExitFullScreen() {
	if !m.fullScreen.Load() {
		return
	}

	m.mu.Lock()
	w := m.ownerWindow
	m.mu.Unlock()

	if err := m.dispatcher.Invoke(func() {
		m.handBack(w)
	}); err != nil {
		m.logger.Error("Failed to restore windowed mode", zap.Error(err))
	}

	// the canvas may live in the window just disposed, so the flag is
	// cleared before the windowed chain is rebuilt
	m.fullScreen.Store(false)
	m.installBufferStrategy()
	m.tracker.Resume()

	m.logger.Info("Exited full-screen mode", zap.Int("device", m.DeviceIndex()))
}

// handBack releases the device and restores the decorations of w, which may
// be nil. It runs on the UI thread.
func (m *Manager) handBack(w domain.Window) {
	if w != nil {
		w.SetVisible(false)
		w.Dispose()
	}

	if err := m.release(); err != nil {
		m.logger.Warn("Failed to release full-screen device", zap.Error(err))
	}

	if w != nil {
		w.SetUndecorated(false)
		w.SetResizable(true)
		w.SetIgnoreRepaint(false)
		w.SetVisible(true)
		w.Repaint()
	}
}

// modeResult is the outcome of a display mode switch
type modeResult struct {
	mode domain.DisplayMode
	err  error
}

func applyMode(device domain.Device, mode domain.DisplayMode) modeResult {
	err := device.SetDisplayMode(mode)
	return modeResult{mode: device.DisplayMode(), err: err}
}

// release hands the owned device back to windowed use
func (m *Manager) release() error {
	m.mu.Lock()
	index := m.ownerIndex
	owner := m.ownerWindow
	m.ownerIndex = -1
	m.ownerWindow = nil
	m.mu.Unlock()

	if owner == nil {
		return nil
	}
	return m.registry.ReleaseFullScreen(index)
}
