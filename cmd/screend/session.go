package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/genricoloni/screend/internal/config"
	"github.com/genricoloni/screend/internal/display"
	"github.com/genricoloni/screend/internal/domain"
	"github.com/genricoloni/screend/internal/engine"
	"github.com/genricoloni/screend/internal/processor"
	"github.com/genricoloni/screend/internal/screen"
	"github.com/genricoloni/screend/internal/uithread"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const windowTitle = "screend"

type hookParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Config    *config.AppConfig
	Backend   domain.Backend
	Registry  *display.Registry
	Loop      *uithread.Loop
	Manager   *screen.Manager
	Engine    *engine.Engine
	Factory   *processor.SurfaceFactory
}

// session is the main window and everything started for it
type session struct {
	hookParams

	window    domain.Window
	cancel    context.CancelFunc
	loopDone  chan error
	snapshots chan os.Signal
}

// registerHooks sets up application lifecycle hooks
func registerHooks(p hookParams) {
	s := &session{hookParams: p}
	p.Lifecycle.Append(fx.Hook{
		OnStart: s.start,
		OnStop:  s.stop,
	})
}

func (s *session) start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan error, 1)
	go func() { s.loopDone <- s.Loop.Run(runCtx) }()

	state, restored := s.loadState()
	canvas, err := s.openWindow(state, restored)
	if err != nil {
		cancel()
		return err
	}
	s.Manager.SetWindowedComponent(canvas)

	if s.Config.GetFullScreen() || (restored && state.FullScreen) {
		mode, ok := s.Manager.FindFirstCompatibleMode(s.Config.GetPreferredModes())
		if ok {
			s.Manager.EnterFullScreen(&mode, s.window)
		} else {
			s.Manager.EnterFullScreen(nil, s.window)
		}
	}

	if err := s.Engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	s.snapshots = make(chan os.Signal, 1)
	if len(snapshotSignals) > 0 {
		signal.Notify(s.snapshots, snapshotSignals...)
		go s.snapshotLoop()
	}

	s.Logger.Info("screend started",
		zap.String("backend", s.Backend.Name()),
		zap.Int("displays", s.Registry.Len()),
		zap.Stringer("screen", s.Manager))
	return nil
}

func (s *session) loadState() (config.WindowState, bool) {
	state, ok, err := config.LoadWindowState(s.Config.GetStatePath())
	if err != nil {
		s.Logger.Warn("Ignoring saved window state", zap.Error(err))
		return config.WindowState{}, false
	}
	return state, ok
}

// openWindow creates the main window on the UI thread and places it
func (s *session) openWindow(state config.WindowState, restored bool) (domain.Canvas, error) {
	bounds := s.Config.GetWindowBounds()
	if restored {
		bounds = state.Bounds()
	}

	var (
		canvas    domain.Canvas
		placement config.Placement
		err       error
	)
	invokeErr := s.Loop.Invoke(func() {
		var w domain.Window
		w, err = s.Backend.NewWindow(windowTitle, config.DefaultWindowSize.X, config.DefaultWindowSize.Y)
		if err != nil {
			return
		}
		placement = bounds.Configure(w, s.Registry.MaximumBounds())
		canvas, err = s.Backend.NewCanvas(w, "canvas")
		if err != nil {
			w.Dispose()
			return
		}
		w.SetVisible(true)
		s.window = w
	})
	if err = multierr.Append(invokeErr, err); err != nil {
		return nil, fmt.Errorf("failed to open main window: %w", err)
	}

	s.Logger.Debug("Main window placed",
		zap.Int("x", placement.Location.X),
		zap.Int("y", placement.Location.Y),
		zap.Int("width", placement.Size.X),
		zap.Int("height", placement.Size.Y),
		zap.Bool("maximized", placement.Maximized),
		zap.Bool("centered", placement.Centered))
	return canvas, nil
}

// snapshotLoop saves a capture of the render target next to the window state
// every time a snapshot signal arrives
func (s *session) snapshotLoop() {
	for range s.snapshots {
		img := s.Manager.CaptureSnapshot()
		if img == nil {
			continue
		}
		name := fmt.Sprintf("snapshot-%s.png", time.Now().Format("20060102-150405"))
		path := filepath.Join(filepath.Dir(s.Config.GetStatePath()), name)
		if err := s.Factory.SaveSnapshot(s.Factory.PrepareSnapshot(img), path); err != nil {
			s.Logger.Error("Failed to save snapshot", zap.Error(err))
			continue
		}
		s.Logger.Info("Snapshot saved", zap.String("path", path))
	}
}

// saveState leaves full-screen mode and records the windowed geometry
func (s *session) saveState() error {
	if s.window == nil {
		return nil
	}
	fullScreen := s.Manager.IsFullScreen()
	s.Manager.ExitFullScreen()

	w, h := s.window.Size()
	loc := s.window.Location()
	state := config.WindowState{
		X:          loc.X,
		Y:          loc.Y,
		Width:      w,
		Height:     h,
		Device:     s.Manager.DeviceIndex(),
		FullScreen: fullScreen,
	}
	return config.SaveWindowState(s.Config.GetStatePath(), state)
}

func (s *session) stop(ctx context.Context) error {
	s.Logger.Info("Shutting down")

	if s.snapshots != nil {
		signal.Stop(s.snapshots)
		close(s.snapshots)
	}

	var err error
	err = multierr.Append(err, s.Engine.Stop(ctx))
	err = multierr.Append(err, s.saveState())
	err = multierr.Append(err, s.Manager.Close())
	if s.window != nil {
		err = multierr.Append(err, s.Loop.Invoke(s.window.Dispose))
	}
	err = multierr.Append(err, s.Backend.Close())

	if s.cancel != nil {
		s.cancel()
		select {
		case <-s.loopDone:
		case <-ctx.Done():
			err = multierr.Append(err, ctx.Err())
		}
	}
	return err
}
