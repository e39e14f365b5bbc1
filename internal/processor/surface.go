package processor

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

// bitmaskThreshold splits alpha into fully transparent and fully opaque
const bitmaskThreshold = 0x80

// ConfigurationSource provides the graphics configuration of the active display
type ConfigurationSource interface {
	Configuration() domain.Configuration
}

// SurfaceFactory creates off-screen images compatible with the active display
type SurfaceFactory struct {
	logger *zap.Logger
	source ConfigurationSource
}

// NewSurfaceFactory creates a factory bound to source
func NewSurfaceFactory(logger *zap.Logger, source ConfigurationSource) *SurfaceFactory {
	return &SurfaceFactory{
		logger: logger,
		source: source,
	}
}

// CreateCompatibleSurface returns a blank image of the given size. A
// non-positive size uses the bounds of the active display. Opaque surfaces
// start black, the others fully transparent.
func (f *SurfaceFactory) CreateCompatibleSurface(width, height int, t domain.Transparency) *image.NRGBA {
	if width <= 0 || height <= 0 {
		cfg := f.source.Configuration()
		width, height = cfg.Bounds.Dx(), cfg.Bounds.Dy()
	}

	fill := color.NRGBA{}
	if t == domain.Opaque {
		fill = color.NRGBA{A: 0xff}
	}

	f.logger.Debug("Creating compatible surface",
		zap.Int("w", width),
		zap.Int("h", height),
		zap.Stringer("transparency", t))
	return imaging.New(width, height, fill)
}

// Convert returns a copy of img with the given transparency applied
func (f *SurfaceFactory) Convert(img image.Image, t domain.Transparency) *image.NRGBA {
	switch t {
	case domain.Opaque:
		bounds := img.Bounds()
		background := imaging.New(bounds.Dx(), bounds.Dy(), color.NRGBA{A: 0xff})
		return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
	case domain.Bitmask:
		return ApplyBitmask(img)
	default:
		return imaging.Clone(img)
	}
}

// ApplyBitmask snaps every pixel to fully opaque or fully transparent
func ApplyBitmask(img image.Image) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		if c.A >= bitmaskThreshold {
			c.A = 0xff
		} else {
			c = color.NRGBA{}
		}
		return c
	})
}

// ScaleMax resizes img to the largest size fitting maxWidth x maxHeight while
// keeping its aspect ratio. Unlike imaging.Fit it also enlarges. A
// non-positive limit returns a plain copy.
func ScaleMax(img image.Image, maxWidth, maxHeight int) *image.NRGBA {
	if maxWidth <= 0 || maxHeight <= 0 {
		return imaging.Clone(img)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return imaging.Clone(img)
	}

	scale := float64(maxWidth) / float64(bounds.Dx())
	if sy := float64(maxHeight) / float64(bounds.Dy()); sy < scale {
		scale = sy
	}
	return imaging.Resize(img,
		int(float64(bounds.Dx())*scale),
		int(float64(bounds.Dy())*scale),
		imaging.CatmullRom)
}

// PrepareSnapshot flattens a capture onto black and shrinks it to fit the
// active display when it is larger
func (f *SurfaceFactory) PrepareSnapshot(img image.Image) *image.NRGBA {
	out := f.Convert(img, domain.Opaque)

	limit := f.source.Configuration().Bounds.Size()
	size := out.Bounds().Size()
	if limit.X > 0 && limit.Y > 0 && (size.X > limit.X || size.Y > limit.Y) {
		out = ScaleMax(out, limit.X, limit.Y)
		f.logger.Debug("Snapshot scaled to display",
			zap.Stringer("from", size),
			zap.Stringer("to", out.Bounds().Size()))
	}
	return out
}

// SaveSnapshot writes img to path; the format follows the file extension
func (f *SurfaceFactory) SaveSnapshot(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	f.logger.Info("Snapshot saved",
		zap.String("path", path),
		zap.Int("w", img.Bounds().Dx()),
		zap.Int("h", img.Bounds().Dy()))
	return nil
}
