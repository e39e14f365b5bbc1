//go:build !linux

package monitor

import (
	"context"
	"fmt"

	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

// HotplugMonitor stub for non-Linux platforms
type HotplugMonitor struct {
	logger *zap.Logger
	events chan domain.DisplayChange
}

// NewHotplugMonitor creates a stub monitor whose event channel never fires
func NewHotplugMonitor(logger *zap.Logger) *HotplugMonitor {
	return &HotplugMonitor{
		logger: logger,
		events: make(chan domain.DisplayChange),
	}
}

// Start returns an error indicating hot-plug monitoring is not supported on this platform
func (m *HotplugMonitor) Start(ctx context.Context) error {
	return fmt.Errorf("display hot-plug monitoring is only supported on Linux systems")
}

// Events returns a channel that never delivers
func (m *HotplugMonitor) Events() <-chan domain.DisplayChange {
	return m.events
}

// Stop is a no-op on non-Linux platforms
func (m *HotplugMonitor) Stop(ctx context.Context) error {
	return nil
}
