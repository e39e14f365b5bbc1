package headless

import (
	"errors"
	"image"
	"image/draw"
	"sync"

	"github.com/genricoloni/screend/internal/domain"
)

// ErrContentsLost is returned by Show when the buffers were invalidated
var ErrContentsLost = errors.New("buffer contents lost")

// Buffers is an in-memory buffer chain. The front buffer receives a copy of
// the back buffer on every Show.
type Buffers struct {
	mu      sync.Mutex
	layers  []*image.RGBA
	back    int
	front   *image.RGBA
	size    func() image.Point
	created image.Point
	lost    bool
	shown   int
	open    int
}

func newBuffers(layers int, s image.Point, size func() image.Point) *Buffers {
	b := &Buffers{
		size:    size,
		created: s,
		front:   image.NewRGBA(image.Rect(0, 0, s.X, s.Y)),
	}
	for i := 0; i < layers-1; i++ {
		b.layers = append(b.layers, image.NewRGBA(image.Rect(0, 0, s.X, s.Y)))
	}
	return b
}

type surface struct {
	*image.RGBA
	release func()
	once    sync.Once
}

func (s *surface) Dispose() {
	s.once.Do(s.release)
}

// DrawSurface returns the current back buffer
func (b *Buffers) DrawSurface() (domain.Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.layers) == 0 {
		return nil, errors.New("buffer chain disposed")
	}
	b.open++
	return &surface{
		RGBA: b.layers[b.back],
		release: func() {
			b.mu.Lock()
			b.open--
			b.mu.Unlock()
		},
	}, nil
}

// ContentsLost reports invalidation or a size change since creation
func (b *Buffers) ContentsLost() bool {
	current := b.size()

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lost || len(b.layers) == 0 || current != b.created
}

// Show copies the back buffer to the front and advances the chain
func (b *Buffers) Show() error {
	if b.ContentsLost() {
		return ErrContentsLost
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.layers) == 0 {
		return ErrContentsLost
	}
	back := b.layers[b.back]
	draw.Draw(b.front, b.front.Bounds(), back, image.Point{}, draw.Src)
	b.back = (b.back + 1) % len(b.layers)
	b.shown++
	return nil
}

// Dispose drops the buffers
func (b *Buffers) Dispose() {
	b.mu.Lock()
	b.layers = nil
	b.mu.Unlock()
}

// Invalidate marks the contents lost, as a display server does on device loss
func (b *Buffers) Invalidate() {
	b.mu.Lock()
	b.lost = true
	b.mu.Unlock()
}

// Shown returns the number of successful Show calls
func (b *Buffers) Shown() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shown
}

// Outstanding returns the number of surfaces not yet disposed
func (b *Buffers) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Layers returns the total number of buffers including the front one
func (b *Buffers) Layers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.layers) == 0 {
		return 0
	}
	return len(b.layers) + 1
}

// Front returns the last presented frame
func (b *Buffers) Front() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.front
}
