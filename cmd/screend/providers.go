package main

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/genricoloni/screend/internal/config"
	"github.com/genricoloni/screend/internal/display"
	"github.com/genricoloni/screend/internal/domain"
	"github.com/genricoloni/screend/internal/engine"
	"github.com/genricoloni/screend/internal/monitor"
	"github.com/genricoloni/screend/internal/processor"
	"github.com/genricoloni/screend/internal/screen"
	"github.com/genricoloni/screend/internal/uithread"
	"go.uber.org/zap"
)

const badgeSize = 48

func newAppConfig(logger *zap.Logger, level zap.AtomicLevel) (*config.AppConfig, domain.Config) {
	cfg := config.NewAppConfig(logger.Named("config"))
	level.SetLevel(cfg.GetLogLevel())
	return cfg, cfg
}

func newRegistry(logger *zap.Logger, backend domain.Backend) *display.Registry {
	return display.NewRegistry(logger.Named("registry"), backend)
}

func newLoop(logger *zap.Logger) (*uithread.Loop, domain.Dispatcher) {
	loop := uithread.NewLoop(logger.Named("ui"))
	return loop, loop
}

func newCapturer() domain.Capturer {
	return display.NewScreenshotCapturer()
}

func newManager(
	logger *zap.Logger,
	registry *display.Registry,
	dispatcher domain.Dispatcher,
	backend domain.Backend,
	capturer domain.Capturer,
	cfg domain.Config,
) (*screen.Manager, domain.Screen) {
	m := screen.NewManager(logger.Named("screen"), registry, dispatcher, backend, capturer, cfg)
	return m, m
}

func newSurfaceFactory(logger *zap.Logger, m *screen.Manager) *processor.SurfaceFactory {
	return processor.NewSurfaceFactory(logger.Named("surfaces"), m)
}

func newMonitor(logger *zap.Logger) domain.Monitor {
	return monitor.NewHotplugMonitor(logger.Named("monitor"))
}

func newEngine(
	logger *zap.Logger,
	scr domain.Screen,
	mon domain.Monitor,
	registry *display.Registry,
	factory *processor.SurfaceFactory,
) *engine.Engine {
	e := engine.NewEngine(logger.Named("engine"), scr, mon, registry)
	e.SetPaint(newDemoPainter(factory))
	return e
}

// newDemoPainter draws the default pattern with a translucent badge in the
// bottom right corner
func newDemoPainter(factory *processor.SurfaceFactory) engine.PaintFunc {
	badge := factory.CreateCompatibleSurface(badgeSize, badgeSize, domain.Translucent)
	inner := badge.Bounds().Inset(badgeSize / 6)
	draw.Draw(badge, inner, &image.Uniform{C: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xa0}}, image.Point{}, draw.Src)

	return func(dst draw.Image, frame int) {
		engine.DefaultPaint(dst, frame)

		b := dst.Bounds()
		at := image.Pt(b.Max.X-badgeSize-8, b.Max.Y-badgeSize-8)
		r := image.Rectangle{Min: at, Max: at.Add(badge.Bounds().Size())}.Intersect(b)
		draw.Draw(dst, r, badge, r.Min.Sub(at), draw.Over)
	}
}
