package x11

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/genricoloni/screend/internal/domain"
	"github.com/jezek/xgb/xproto"
)

// ErrContentsLost is returned by Show when the drawable changed size or the
// chain was disposed
var ErrContentsLost = errors.New("buffer contents lost")

// putImageHeader is the fixed size of a PutImage request
const putImageHeader = 24

// Buffers is a chain of client-side back buffers presented with PutImage.
// The X server keeps the front buffer.
type Buffers struct {
	backend  *Backend
	drawable xproto.Drawable
	gc       xproto.Gcontext
	size     func() image.Point

	mu      sync.Mutex
	layers  []*image.RGBA
	back    int
	created image.Point
	scratch []byte
}

func newBuffers(b *Backend, layers int, drawable xproto.Drawable, gc xproto.Gcontext, size func() image.Point) *Buffers {
	s := size()
	buf := &Buffers{
		backend:  b,
		drawable: drawable,
		gc:       gc,
		size:     size,
		created:  s,
	}
	if layers < 2 {
		layers = 2
	}
	for i := 0; i < layers-1; i++ {
		buf.layers = append(buf.layers, image.NewRGBA(image.Rect(0, 0, s.X, s.Y)))
	}
	return buf
}

type surface struct {
	*image.RGBA
}

// Dispose is a no-op; the back buffer stays owned by the chain
func (surface) Dispose() {}

// DrawSurface returns the current back buffer
func (b *Buffers) DrawSurface() (domain.Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.layers) == 0 {
		return nil, errors.New("buffer chain disposed")
	}
	return surface{RGBA: b.layers[b.back]}, nil
}

// ContentsLost reports a disposed chain or a size change since creation
func (b *Buffers) ContentsLost() bool {
	current := b.size()

	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.layers) == 0 || current != b.created
}

// Show uploads the back buffer to the drawable and advances the chain
func (b *Buffers) Show() error {
	if b.ContentsLost() {
		return ErrContentsLost
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.layers) == 0 {
		return ErrContentsLost
	}
	if err := b.putLocked(b.layers[b.back]); err != nil {
		return err
	}
	b.back = (b.back + 1) % len(b.layers)
	return nil
}

// putLocked sends img as ZPixmap rows, split to respect the request size limit
func (b *Buffers) putLocked(img *image.RGBA) error {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	stride := w * 4
	rows := (b.backend.maxRequest - putImageHeader) / stride
	if rows < 1 {
		return fmt.Errorf("row of %d pixels exceeds the X request size", w)
	}
	if need := stride * h; cap(b.scratch) < need {
		b.scratch = make([]byte, need)
	}
	data := b.scratch[:stride*h]
	toBGRX(data, img)

	depth := b.backend.screen.RootDepth
	for y := 0; y < h; y += rows {
		n := rows
		if y+n > h {
			n = h - y
		}
		xproto.PutImage(b.backend.conn, xproto.ImageFormatZPixmap, b.drawable, b.gc,
			uint16(w), uint16(n), 0, int16(y), 0, depth, data[y*stride:(y+n)*stride])
	}
	return nil
}

// toBGRX converts RGBA to the little-endian 32 bpp layout of TrueColor visuals
func toBGRX(dst []byte, img *image.RGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w*4]
		row := dst[y*w*4 : (y+1)*w*4]
		for x := 0; x < len(src); x += 4 {
			row[x] = src[x+2]
			row[x+1] = src[x+1]
			row[x+2] = src[x]
			row[x+3] = src[x+3]
		}
	}
}

// Dispose drops the buffers
func (b *Buffers) Dispose() {
	b.mu.Lock()
	b.layers = nil
	b.scratch = nil
	b.mu.Unlock()
}
