// Package x11 implements devices, windows and buffer chains on an X server.
// Outputs and mode switches go through RandR; full-screen windows use the
// EWMH _NET_WM_STATE_FULLSCREEN hint.
package x11

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/genricoloni/screend/internal/domain"
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"
)

// ErrUnsupportedDepth is returned when the root visual is not a 24 or 32 bit TrueColor visual
var ErrUnsupportedDepth = errors.New("unsupported root window depth")

// Backend is a connection to one X screen
type Backend struct {
	logger *zap.Logger
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	randr  bool
	atoms  *atoms

	// maxRequest is the largest request the server accepts, in bytes
	maxRequest int

	mu      sync.Mutex
	windows map[xproto.Window]*Window
	devices []domain.Device
	closed  bool
	done    chan struct{}
}

// Open connects to the X server named by $DISPLAY
func Open(logger *zap.Logger) (*Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)
	if screen.RootDepth != 24 && screen.RootDepth != 32 {
		conn.Close()
		return nil, fmt.Errorf("depth %d: %w", screen.RootDepth, ErrUnsupportedDepth)
	}

	b := &Backend{
		logger:     logger,
		conn:       conn,
		screen:     screen,
		maxRequest: int(setup.MaximumRequestLength) * 4,
		windows:    make(map[xproto.Window]*Window),
		done:       make(chan struct{}),
	}

	if err := randr.Init(conn); err != nil {
		logger.Warn("RandR extension unavailable, display modes cannot change", zap.Error(err))
	} else {
		b.randr = true
		if err := randr.SelectInputChecked(conn, screen.Root, randr.NotifyMaskScreenChange).Check(); err != nil {
			logger.Debug("Failed to subscribe to RandR notifications", zap.Error(err))
		}
	}

	b.atoms, err = internAtoms(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	go b.dispatch()

	logger.Info("Connected to X server",
		zap.Int("width", int(screen.WidthInPixels)),
		zap.Int("height", int(screen.HeightInPixels)),
		zap.Int("depth", int(screen.RootDepth)),
		zap.Bool("randr", b.randr))
	return b, nil
}

// Name returns "x11"
func (b *Backend) Name() string {
	return "x11"
}

// Devices lists the connected RandR outputs driving a CRTC. Without RandR the
// root window is reported as a single device.
func (b *Backend) Devices() ([]domain.Device, error) {
	var devices []domain.Device
	if b.randr {
		found, err := b.outputs()
		if err != nil {
			return nil, err
		}
		devices = found
	}
	if len(devices) == 0 {
		devices = []domain.Device{b.rootDevice()}
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
	return domain.Configuration{
		Device: "root",
		Bounds: image.Rect(0, 0, int(b.screen.WidthInPixels), int(b.screen.HeightInPixels)),
		Depth:  int(b.screen.RootDepth),
	}
}

// NewWindow creates an unmapped top-level window
func (b *Backend) NewWindow(title string, width, height int) (domain.Window, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", width, height)
	}
	b.logger.Debug("Creating X11 window",
		zap.String("title", title),
		zap.Int("width", width),
		zap.Int("height", height))
	return newWindow(b, title, width, height), nil
}

// NewCanvas creates a canvas filling the content area of w
func (b *Backend) NewCanvas(w domain.Window, name string) (domain.Canvas, error) {
	xw, ok := w.(*Window)
	if !ok {
		return nil, fmt.Errorf("window %q does not belong to the X11 backend", w.Name())
	}
	return &Canvas{target: target{backend: b, name: name}, window: xw}, nil
}

// Sync waits until the server processed every pending request
func (b *Backend) Sync() {
	if _, err := xproto.GetInputFocus(b.conn).Reply(); err != nil {
		b.logger.Debug("X11 sync failed", zap.Error(err))
	}
}

// Close destroys the remaining windows and closes the connection
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	windows := make([]*Window, 0, len(b.windows))
	for _, w := range b.windows {
		windows = append(windows, w)
	}
	b.mu.Unlock()

	for _, w := range windows {
		w.Dispose()
	}
	b.conn.Close()
	<-b.done

	b.logger.Info("X11 connection closed")
	return nil
}

func (b *Backend) register(w *Window) {
	b.mu.Lock()
	b.windows[w.id] = w
	b.mu.Unlock()
}

func (b *Backend) unregister(id xproto.Window) {
	b.mu.Lock()
	delete(b.windows, id)
	b.mu.Unlock()
}

func (b *Backend) lookup(id xproto.Window) *Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.windows[id]
}

// dispatch routes server events to their windows until the connection closes
func (b *Backend) dispatch() {
	defer close(b.done)

	for {
		ev, xerr := b.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			b.logger.Debug("X11 error", zap.String("error", xerr.Error()))
			continue
		}

		switch e := ev.(type) {
		case xproto.ConfigureNotifyEvent:
			if w := b.lookup(e.Window); w != nil {
				w.configured(b.rootOrigin(e.Window), int(e.Width), int(e.Height))
			}
		case xproto.MapNotifyEvent:
			if w := b.lookup(e.Window); w != nil {
				w.emit(domain.WindowShown)
			}
		case xproto.UnmapNotifyEvent:
			if w := b.lookup(e.Window); w != nil {
				w.emit(domain.WindowHidden)
			}
		case randr.ScreenChangeNotifyEvent:
			b.logger.Debug("RandR screen change",
				zap.Int("width", int(e.Width)),
				zap.Int("height", int(e.Height)))
		}
	}
}

// rootOrigin translates the window origin to root coordinates; reparenting
// window managers report ConfigureNotify relative to their frame
func (b *Backend) rootOrigin(id xproto.Window) image.Point {
	reply, err := xproto.TranslateCoordinates(b.conn, id, b.screen.Root, 0, 0).Reply()
	if err != nil {
		return image.Point{}
	}
	return image.Pt(int(reply.DstX), int(reply.DstY))
}
