//go:build linux
// +build linux

package platform

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

func environment(requested string) Environment {
	return Environment{
		Display:   os.Getenv("DISPLAY"),
		Wayland:   os.Getenv("WAYLAND_DISPLAY"),
		Session:   os.Getenv("XDG_SESSION_TYPE"),
		Desktop:   os.Getenv("XDG_CURRENT_DESKTOP"),
		Hyprland:  os.Getenv("HYPRLAND_INSTANCE_SIGNATURE"),
		Requested: strings.ToLower(requested),
	}
}

// detectSession picks X11 whenever an X server is reachable, including
// XWayland on Wayland compositors
func detectSession(logger *zap.Logger, env Environment) string {
	wayland := env.Wayland != "" || env.Session == "wayland"

	if env.Display != "" {
		if wayland {
			logger.Info("Wayland session detected, presenting through XWayland",
				zap.String("desktop", env.Desktop),
				zap.Bool("hyprland", env.Hyprland != ""))
		}
		return X11
	}

	if wayland {
		logger.Warn("Wayland session without XWayland, no native backend available")
	} else {
		logger.Info("No display server detected")
	}
	return Headless
}
