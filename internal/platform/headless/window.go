package headless

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/genricoloni/screend/internal/domain"
)

// ErrNotDisplayable is returned when a buffer chain is requested for a
// drawable without a native surface
var ErrNotDisplayable = errors.New("drawable has no native surface")

// target is the state shared by windows and canvases
type target struct {
	mu            sync.Mutex
	name          string
	ignoreRepaint bool
	buffers       *Buffers
	failBuffers   error
	created       int
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

// Buffers returns the concrete buffer chain, or nil
func (t *target) Buffers() *Buffers {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buffers
}

// BuffersCreated returns how many buffer chains were created
func (t *target) BuffersCreated() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.created
}

// FailBuffers makes the next buffer chain creations fail with err; nil clears it
func (t *target) FailBuffers(err error) {
	t.mu.Lock()
	t.failBuffers = err
	t.mu.Unlock()
}

func (t *target) createBuffers(layers int, displayable bool, size func() image.Point) error {
	if layers < 2 {
		return fmt.Errorf("%s: buffer chain needs at least 2 layers, got %d", t.name, layers)
	}
	initial := size()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failBuffers != nil {
		return t.failBuffers
	}
	if !displayable {
		return fmt.Errorf("%s: %w", t.name, ErrNotDisplayable)
	}
	if t.buffers != nil {
		t.buffers.Dispose()
	}
	t.buffers = newBuffers(layers, initial, size)
	t.created++
	return nil
}

func (t *target) disposeBuffers() {
	t.mu.Lock()
	if t.buffers != nil {
		t.buffers.Dispose()
		t.buffers = nil
	}
	t.mu.Unlock()
}

// Window is an in-memory top-level window
type Window struct {
	target

	configFor func(image.Point) domain.Configuration

	bounds      image.Rectangle
	visible     bool
	native      bool
	undecorated bool
	resizable   bool
	repaints    int

	listeners map[int]func(domain.WindowEvent)
	nextID    int
}

// NewWindow creates an unmapped window at the origin
func NewWindow(name string, width, height int, configFor func(image.Point) domain.Configuration) *Window {
	return &Window{
		target:    target{name: name},
		configFor: configFor,
		bounds:    image.Rect(0, 0, width, height),
		resizable: true,
		listeners: make(map[int]func(domain.WindowEvent)),
	}
}

func (w *Window) emit(ev domain.WindowEvent) {
	w.mu.Lock()
	listeners := make([]func(domain.WindowEvent), 0, len(w.listeners))
	for _, fn := range w.listeners {
		listeners = append(listeners, fn)
	}
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
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

// Listeners returns the number of subscribers
func (w *Window) Listeners() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

// Size returns the content size
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

// Location returns the top-left corner
func (w *Window) Location() image.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds.Min
}

// Bounds returns the content area
func (w *Window) Bounds() image.Rectangle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}

// Configuration returns the configuration of the device under the window
func (w *Window) Configuration() domain.Configuration {
	if w.configFor == nil {
		return domain.Configuration{}
	}
	return w.configFor(w.Location())
}

// Visible reports whether the window is mapped
func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Displayable reports whether the native surface exists
func (w *Window) Displayable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.native
}

// SetVisible maps or unmaps the window
func (w *Window) SetVisible(visible bool) {
	w.mu.Lock()
	changed := w.visible != visible
	w.visible = visible
	if visible {
		w.native = true
	}
	w.mu.Unlock()

	if !changed {
		return
	}
	if visible {
		w.emit(domain.WindowShown)
	} else {
		w.emit(domain.WindowHidden)
	}
}

// Dispose destroys the native surface and its buffer chain
func (w *Window) Dispose() {
	w.disposeBuffers()
	w.mu.Lock()
	wasVisible := w.visible
	w.native = false
	w.visible = false
	w.mu.Unlock()

	if wasVisible {
		w.emit(domain.WindowHidden)
	}
}

// SetUndecorated toggles decorations
func (w *Window) SetUndecorated(undecorated bool) {
	w.mu.Lock()
	w.undecorated = undecorated
	w.mu.Unlock()
}

// Undecorated reports the decoration state
func (w *Window) Undecorated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.undecorated
}

// SetResizable toggles user resizing
func (w *Window) SetResizable(resizable bool) {
	w.mu.Lock()
	w.resizable = resizable
	w.mu.Unlock()
}

// Resizable reports whether user resizing is allowed
func (w *Window) Resizable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resizable
}

// SetSize resizes the content area
func (w *Window) SetSize(width, height int) {
	w.mu.Lock()
	old := w.bounds
	w.bounds = image.Rectangle{Min: old.Min, Max: old.Min.Add(image.Pt(width, height))}
	changed := old != w.bounds
	w.mu.Unlock()

	if changed {
		w.emit(domain.WindowResized)
	}
}

// SetLocation moves the top-left corner
func (w *Window) SetLocation(x, y int) {
	w.Move(x, y)
}

// Move sets the top-left corner, as a user drag would
func (w *Window) Move(x, y int) {
	w.mu.Lock()
	old := w.bounds
	w.bounds = old.Add(image.Pt(x, y).Sub(old.Min))
	changed := old != w.bounds
	w.mu.Unlock()

	if changed {
		w.emit(domain.WindowMoved)
	}
}

// Repaint counts a repaint request
func (w *Window) Repaint() {
	w.mu.Lock()
	w.repaints++
	w.mu.Unlock()
}

// Repaints returns the number of repaint requests
func (w *Window) Repaints() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.repaints
}

// CreateBufferStrategy installs a new buffer chain
func (w *Window) CreateBufferStrategy(layers int) error {
	return w.createBuffers(layers, w.Displayable(), w.sizePoint)
}

// Canvas is an in-memory canvas filling the content area of a Window
type Canvas struct {
	target
	window *Window
}

// NewCanvas creates a canvas on w; w may be nil for a detached canvas
func NewCanvas(w *Window, name string) *Canvas {
	return &Canvas{target: target{name: name}, window: w}
}

// Window returns the holding window
func (c *Canvas) Window() domain.Window {
	if c.window == nil {
		return nil
	}
	return c.window
}

// Size returns the size of the holding window, zero when detached
func (c *Canvas) Size() (int, int) {
	if c.window == nil {
		return 0, 0
	}
	return c.window.Size()
}

func (c *Canvas) sizePoint() image.Point {
	width, height := c.Size()
	return image.Pt(width, height)
}

// Bounds returns the canvas area in screen coordinates
func (c *Canvas) Bounds() image.Rectangle {
	if c.window == nil {
		return image.Rectangle{}
	}
	return c.window.Bounds()
}

// Configuration returns the configuration of the holding window
func (c *Canvas) Configuration() domain.Configuration {
	if c.window == nil {
		return domain.Configuration{}
	}
	return c.window.Configuration()
}

// CreateBufferStrategy installs a new buffer chain
func (c *Canvas) CreateBufferStrategy(layers int) error {
	displayable := c.window != nil && c.window.Displayable()
	return c.createBuffers(layers, displayable, c.sizePoint)
}
