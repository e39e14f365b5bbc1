package x11

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/genricoloni/screend/internal/domain"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"
)

// ErrNotDisplayable is returned when a buffer chain is requested for a
// drawable without a native window
var ErrNotDisplayable = errors.New("drawable has no native window")

const (
	motifHintsDecorations = 1 << 1

	sizeHintPPosition = 1 << 2
	sizeHintPMinSize  = 1 << 4
	sizeHintPMaxSize  = 1 << 5

	netWMStateRemove = 0
	netWMStateAdd    = 1
)

// target is the state shared by windows and canvases
type target struct {
	backend *Backend

	mu            sync.Mutex
	name          string
	ignoreRepaint bool
	buffers       *Buffers
}

func (t *target) Name() string {
	return t.name
}

func (t *target) IgnoreRepaint() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ignoreRepaint
}

func (t *target) SetIgnoreRepaint(ignore bool) {
	t.mu.Lock()
	t.ignoreRepaint = ignore
	t.mu.Unlock()
}

func (t *target) BufferStrategy() domain.BufferStrategy {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.buffers == nil {
		return nil
	}
	return t.buffers
}

// swapBuffers installs b and disposes the previous chain
func (t *target) swapBuffers(b *Buffers) {
	t.mu.Lock()
	old := t.buffers
	t.buffers = b
	t.mu.Unlock()

	if old != nil {
		old.Dispose()
	}
}

// Window is a top-level X window. The native window is created on the first
// SetVisible(true) and destroyed by Dispose.
type Window struct {
	target

	// guarded by target.mu
	id          xproto.Window
	gc          xproto.Gcontext
	bounds      image.Rectangle
	visible     bool
	undecorated bool
	resizable   bool
	fullScreen  bool
	listeners   map[int]func(domain.WindowEvent)
	nextID      int
}

func newWindow(b *Backend, title string, width, height int) *Window {
	return &Window{
		target:    target{backend: b, name: title},
		bounds:    image.Rect(0, 0, width, height),
		resizable: true,
		listeners: make(map[int]func(domain.WindowEvent)),
	}
}

func (w *Window) emit(ev domain.WindowEvent) {
	w.mu.Lock()
	fns := make([]func(domain.WindowEvent), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// configured records a geometry change reported by the server
func (w *Window) configured(origin image.Point, width, height int) {
	w.mu.Lock()
	old := w.bounds
	w.bounds = image.Rectangle{Min: origin, Max: origin.Add(image.Pt(width, height))}
	w.mu.Unlock()

	if old.Min != origin {
		w.emit(domain.WindowMoved)
	}
	if old.Dx() != width || old.Dy() != height {
		w.emit(domain.WindowResized)
	}
}

// AddListener subscribes fn to window events
func (w *Window) AddListener(fn func(domain.WindowEvent)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

func (w *Window) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds.Dx(), w.bounds.Dy()
}

func (w *Window) sizePoint() image.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds.Size()
}

func (w *Window) Location() image.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds.Min
}

func (w *Window) Bounds() image.Rectangle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}

func (w *Window) Configuration() domain.Configuration {
	return w.backend.configFor(w.Location())
}

func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// native returns the X window and its graphics context; ok is false when the
// window was never shown or was disposed
func (w *Window) native() (xproto.Window, xproto.Gcontext, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.id, w.gc, w.id != 0
}

// SetVisible maps or unmaps the window, creating the native window first if needed
func (w *Window) SetVisible(visible bool) {
	conn := w.backend.conn

	if !visible {
		w.mu.Lock()
		id := w.id
		w.visible = false
		w.mu.Unlock()
		if id != 0 {
			xproto.UnmapWindow(conn, id)
		}
		return
	}

	id, _, ok := w.native()
	if !ok {
		var err error
		if id, err = w.create(); err != nil {
			w.backend.logger.Error("Failed to create X11 window",
				zap.String("title", w.name),
				zap.Error(err))
			return
		}
	}

	if err := xproto.MapWindowChecked(conn, id).Check(); err != nil {
		w.backend.logger.Error("Failed to map X11 window", zap.String("title", w.name), zap.Error(err))
		return
	}
	w.mu.Lock()
	w.visible = true
	w.mu.Unlock()
}

func (w *Window) create() (xproto.Window, error) {
	b := w.backend
	conn := b.conn

	id, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return 0, err
	}

	bounds := w.Bounds()
	err = xproto.CreateWindowChecked(conn, b.screen.RootDepth, id, b.screen.Root,
		int16(bounds.Min.X), int16(bounds.Min.Y), uint16(bounds.Dx()), uint16(bounds.Dy()), 0,
		xproto.WindowClassInputOutput, b.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{
			b.screen.BlackPixel,
			xproto.EventMaskStructureNotify | xproto.EventMaskExposure,
		}).Check()
	if err != nil {
		return 0, err
	}
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(id), 0, nil).Check(); err != nil {
		xproto.DestroyWindow(conn, id)
		return 0, fmt.Errorf("failed to create graphics context: %w", err)
	}

	w.mu.Lock()
	w.id = id
	w.gc = gc
	undecorated, fullScreen := w.undecorated, w.fullScreen
	w.mu.Unlock()

	title := []byte(w.name)
	xproto.ChangeProperty(conn, xproto.PropModeReplace, id, xproto.AtomWmName, xproto.AtomString, 8, uint32(len(title)), title)
	xproto.ChangeProperty(conn, xproto.PropModeReplace, id, b.atoms.netWMName, b.atoms.utf8String, 8, uint32(len(title)), title)
	w.applyDecorations(id, undecorated)
	w.applySizeHints(id)
	if fullScreen {
		state := uint32s(uint32(b.atoms.wmStateFullScreen))
		xproto.ChangeProperty(conn, xproto.PropModeReplace, id, b.atoms.wmState, xproto.AtomAtom, 32, 1, state)
	}

	b.register(w)
	return id, nil
}

// Dispose destroys the native window and its buffer chain
func (w *Window) Dispose() {
	w.swapBuffers(nil)

	w.mu.Lock()
	id, gc := w.id, w.gc
	w.id = 0
	w.gc = 0
	w.visible = false
	w.mu.Unlock()

	if id == 0 {
		return
	}
	w.backend.unregister(id)
	xproto.FreeGC(w.backend.conn, gc)
	xproto.DestroyWindow(w.backend.conn, id)
}

// SetUndecorated toggles the Motif decoration hint
func (w *Window) SetUndecorated(undecorated bool) {
	w.mu.Lock()
	w.undecorated = undecorated
	id := w.id
	w.mu.Unlock()

	if id != 0 {
		w.applyDecorations(id, undecorated)
	}
}

func (w *Window) applyDecorations(id xproto.Window, undecorated bool) {
	decorations := uint32(1)
	if undecorated {
		decorations = 0
	}
	hints := uint32s(motifHintsDecorations, 0, decorations, 0, 0)
	a := w.backend.atoms.motifHints
	xproto.ChangeProperty(w.backend.conn, xproto.PropModeReplace, id, a, a, 32, 5, hints)
}

// SetResizable pins the minimum and maximum size hints to the current size
// when resizing is forbidden
func (w *Window) SetResizable(resizable bool) {
	w.mu.Lock()
	w.resizable = resizable
	id := w.id
	w.mu.Unlock()

	if id != 0 {
		w.applySizeHints(id)
	}
}

func (w *Window) applySizeHints(id xproto.Window) {
	w.mu.Lock()
	resizable := w.resizable
	size := w.bounds.Size()
	w.mu.Unlock()

	flags := uint32(sizeHintPPosition)
	var minW, minH, maxW, maxH uint32
	if !resizable {
		flags |= sizeHintPMinSize | sizeHintPMaxSize
		minW, minH = uint32(size.X), uint32(size.Y)
		maxW, maxH = minW, minH
	}

	// WM_SIZE_HINTS is 18 CARD32 fields; the unused aspect, base and gravity fields stay 0
	fields := make([]uint32, 18)
	fields[0] = flags
	fields[5], fields[6] = minW, minH
	fields[7], fields[8] = maxW, maxH
	xproto.ChangeProperty(w.backend.conn, xproto.PropModeReplace, id,
		xproto.AtomWmNormalHints, xproto.AtomWmSizeHints, 32, 18, uint32s(fields...))
}

func (w *Window) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	w.mu.Lock()
	w.bounds.Max = w.bounds.Min.Add(image.Pt(width, height))
	id := w.id
	resizable := w.resizable
	w.mu.Unlock()

	if id == 0 {
		return
	}
	if !resizable {
		w.applySizeHints(id)
	}
	xproto.ConfigureWindow(w.backend.conn, id,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(width), uint32(height)})
}

func (w *Window) SetLocation(x, y int) {
	w.mu.Lock()
	size := w.bounds.Size()
	w.bounds = image.Rectangle{Min: image.Pt(x, y), Max: image.Pt(x, y).Add(size)}
	id := w.id
	w.mu.Unlock()

	if id == 0 {
		return
	}
	xproto.ConfigureWindow(w.backend.conn, id,
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		[]uint32{uint32(int32(x)), uint32(int32(y))})
}

// setFullScreen asks the window manager to add or remove the fullscreen state
func (w *Window) setFullScreen(on bool) {
	w.mu.Lock()
	w.fullScreen = on
	id := w.id
	w.mu.Unlock()

	if id == 0 {
		return
	}

	b := w.backend
	action := uint32(netWMStateRemove)
	if on {
		action = netWMStateAdd
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: id,
		Type:   b.atoms.wmState,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{action, uint32(b.atoms.wmStateFullScreen), 0, 1, 0}),
	}
	xproto.SendEvent(b.conn, false, b.screen.Root,
		xproto.EventMaskSubstructureNotify|xproto.EventMaskSubstructureRedirect,
		string(ev.Bytes()))
}

// Repaint clears the window and lets the server generate Expose events
func (w *Window) Repaint() {
	id, _, ok := w.native()
	if !ok || w.IgnoreRepaint() {
		return
	}
	xproto.ClearArea(w.backend.conn, true, id, 0, 0, 0, 0)
}

// CreateBufferStrategy replaces the window buffer chain
func (w *Window) CreateBufferStrategy(layers int) error {
	id, gc, ok := w.native()
	if !ok {
		return fmt.Errorf("%s: %w", w.name, ErrNotDisplayable)
	}
	w.swapBuffers(newBuffers(w.backend, layers, xproto.Drawable(id), gc, w.sizePoint))
	return nil
}

// Canvas presents into the content area of its window
type Canvas struct {
	target
	window *Window
}

func (c *Canvas) Window() domain.Window {
	return c.window
}

func (c *Canvas) Size() (int, int) {
	return c.window.Size()
}

func (c *Canvas) Bounds() image.Rectangle {
	return c.window.Bounds()
}

func (c *Canvas) Configuration() domain.Configuration {
	return c.window.Configuration()
}

// CreateBufferStrategy replaces the canvas buffer chain
func (c *Canvas) CreateBufferStrategy(layers int) error {
	id, gc, ok := c.window.native()
	if !ok {
		return fmt.Errorf("%s: %w", c.name, ErrNotDisplayable)
	}
	c.swapBuffers(newBuffers(c.backend, layers, xproto.Drawable(id), gc, c.window.sizePoint))
	return nil
}
