// Package platform selects the display backend for the current session.
package platform

import (
	"fmt"

	"github.com/genricoloni/screend/internal/display"
	"github.com/genricoloni/screend/internal/domain"
	"github.com/genricoloni/screend/internal/platform/headless"
	"github.com/genricoloni/screend/internal/platform/x11"
	"go.uber.org/zap"
)

// Backend names accepted by the configuration
const (
	Auto     = "auto"
	X11      = "x11"
	Headless = "headless"
)

// Environment is the subset of the session environment used for detection
type Environment struct {
	Display   string
	Wayland   string
	Session   string
	Desktop   string
	Hyprland  string
	Requested string
}

// NewBackend opens the backend chosen by Detect. An automatically chosen X11
// backend that cannot connect falls back to headless; an explicitly requested
// one fails.
func NewBackend(logger *zap.Logger, cfg domain.Config) (domain.Backend, error) {
	env := environment(cfg.GetBackend())
	name := Detect(logger, env)

	switch name {
	case X11:
		b, err := x11.Open(logger.Named("x11"))
		if err == nil {
			return b, nil
		}
		if env.Requested == X11 {
			return nil, fmt.Errorf("x11 backend requested: %w", err)
		}
		logger.Warn("X11 unavailable, falling back to headless backend", zap.Error(err))
		fallthrough
	case Headless:
		return headless.New(logger.Named("headless"), display.NewScreenshotEnumerator(logger.Named("screens"))), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

// Detect returns the backend name for env. An explicit request other than
// "auto" always wins.
func Detect(logger *zap.Logger, env Environment) string {
	logger.Debug("Detecting display backend",
		zap.String("requested", env.Requested),
		zap.String("display", env.Display),
		zap.String("wayland", env.Wayland),
		zap.String("session", env.Session),
		zap.String("desktop", env.Desktop))

	if env.Requested != "" && env.Requested != Auto {
		return env.Requested
	}
	return detectSession(logger, env)
}
