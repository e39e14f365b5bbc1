//go:build !linux
// +build !linux

package platform

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

func environment(requested string) Environment {
	return Environment{
		Display:   os.Getenv("DISPLAY"),
		Requested: strings.ToLower(requested),
	}
}

// detectSession only uses X11 when a server was set up explicitly, e.g. XQuartz
func detectSession(logger *zap.Logger, env Environment) string {
	if env.Display != "" {
		return X11
	}
	logger.Info("Native windowing is not implemented for this platform, using headless backend")
	return Headless
}
