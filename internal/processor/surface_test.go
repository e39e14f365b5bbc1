package processor

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

// fixedSource is a static display configuration
type fixedSource struct {
	cfg domain.Configuration
}

func (s fixedSource) Configuration() domain.Configuration {
	return s.cfg
}

func newTestFactory() *SurfaceFactory {
	return NewSurfaceFactory(zap.NewNop(), fixedSource{cfg: domain.Configuration{
		Device: "test",
		Bounds: image.Rect(0, 0, 320, 200),
		Depth:  32,
	}})
}

// createTestImage generates a uniformly filled image
func createTestImage(width, height int, col color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, col)
		}
	}
	return img
}

// hasAlpha reports whether any pixel of img is not fully opaque
func hasAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return true
		}
	}
	return false
}

func TestSurfaceFactory_CreateCompatibleSurface(t *testing.T) {
	tests := []struct {
		name         string
		width        int
		height       int
		transparency domain.Transparency
		wantSize     image.Point
		wantAlpha    bool
	}{
		{"Opaque", 64, 48, domain.Opaque, image.Pt(64, 48), false},
		{"Translucent", 64, 48, domain.Translucent, image.Pt(64, 48), true},
		{"Bitmask", 10, 10, domain.Bitmask, image.Pt(10, 10), true},
		{"Display size when unspecified", 0, 0, domain.Opaque, image.Pt(320, 200), false},
		{"Display size when negative", -1, 100, domain.Translucent, image.Pt(320, 200), true},
	}

	factory := newTestFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := factory.CreateCompatibleSurface(tt.width, tt.height, tt.transparency)

			if got := surface.Bounds().Size(); got != tt.wantSize {
				t.Errorf("size = %v, want %v", got, tt.wantSize)
			}
			if got := hasAlpha(surface); got != tt.wantAlpha {
				t.Errorf("hasAlpha = %v, want %v", got, tt.wantAlpha)
			}
		})
	}
}

func TestSurfaceFactory_Convert(t *testing.T) {
	factory := newTestFactory()
	half := createTestImage(4, 4, color.NRGBA{R: 255, A: 0x40})

	opaque := factory.Convert(half, domain.Opaque)
	if hasAlpha(opaque) {
		t.Error("opaque conversion should drop transparency")
	}

	bitmask := factory.Convert(half, domain.Bitmask)
	if got := bitmask.NRGBAAt(0, 0); got != (color.NRGBA{}) {
		t.Errorf("low alpha should become transparent, got %v", got)
	}

	translucent := factory.Convert(half, domain.Translucent)
	if got := translucent.NRGBAAt(1, 1).A; got != 0x40 {
		t.Errorf("translucent alpha = %#x, want 0x40", got)
	}
}

func TestApplyBitmask(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{G: 200, A: 0x7f})
	img.SetNRGBA(1, 0, color.NRGBA{G: 200, A: 0x80})

	got := ApplyBitmask(img)

	if c := got.NRGBAAt(0, 0); c.A != 0 {
		t.Errorf("pixel below threshold: %v", c)
	}
	if c := got.NRGBAAt(1, 0); c.A != 0xff || c.G != 200 {
		t.Errorf("pixel at threshold: %v", c)
	}
}

func TestScaleMax(t *testing.T) {
	src := createTestImage(200, 100, color.NRGBA{B: 255, A: 255})

	tests := []struct {
		name          string
		width, height int
		want          image.Point
	}{
		{"Width bound", 100, 100, image.Pt(100, 50)},
		{"Height bound", 1000, 300, image.Pt(600, 300)},
		{"Invalid limit", 0, 300, image.Pt(200, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaleMax(src, tt.width, tt.height).Bounds().Size(); got != tt.want {
				t.Errorf("size = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSurfaceFactory_PrepareSnapshot(t *testing.T) {
	tests := []struct {
		name     string
		size     image.Point
		wantSize image.Point
	}{
		{"Fits the display", image.Pt(160, 100), image.Pt(160, 100)},
		{"Larger than the display", image.Pt(640, 200), image.Pt(320, 100)},
	}

	factory := newTestFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture := createTestImage(tt.size.X, tt.size.Y, color.NRGBA{G: 255, A: 0x40})

			got := factory.PrepareSnapshot(capture)

			if size := got.Bounds().Size(); size != tt.wantSize {
				t.Errorf("size = %v, want %v", size, tt.wantSize)
			}
			if hasAlpha(got) {
				t.Error("snapshot should be opaque")
			}
		})
	}
}

func TestSurfaceFactory_SaveSnapshot(t *testing.T) {
	factory := newTestFactory()
	path := filepath.Join(t.TempDir(), "shots", "frame.png")
	img := createTestImage(8, 6, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	if err := factory.SaveSnapshot(img, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}

	loaded, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := loaded.Bounds().Size(); got != image.Pt(8, 6) {
		t.Errorf("loaded size = %v, want 8x6", got)
	}

	if err := factory.SaveSnapshot(img, filepath.Join(t.TempDir(), "frame.unknown")); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}
