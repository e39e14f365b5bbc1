//go:build linux

package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/screend/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	mutterService   = "org.gnome.Mutter.DisplayConfig"
	mutterPath      = "/org/gnome/Mutter/DisplayConfig"
	mutterInterface = "org.gnome.Mutter.DisplayConfig"
	kscreenService  = "org.kde.KScreen"
	kscreenPath     = "/backend"
	kscreenIface    = "org.kde.kscreen.Backend"

	propertiesChanged = "org.freedesktop.DBus.Properties.PropertiesChanged"
	nameOwnerChanged  = "org.freedesktop.DBus.NameOwnerChanged"
)

// Change sources reported in domain.DisplayChange
const (
	SourceMonitors   = "monitors"
	SourcePowerSave  = "power-save"
	SourceCompositor = "compositor"
)

// watchedServices are the display configuration services whose lifecycle is tracked
var watchedServices = map[string]bool{
	mutterService:  true,
	kscreenService: true,
}

// HotplugMonitor reports display configuration changes announced on the
// session bus by the compositor
type HotplugMonitor struct {
	logger          *zap.Logger
	events          chan domain.DisplayChange
	mu              sync.RWMutex
	running         bool
	cancel          context.CancelFunc
	conn            DBusClient
	dial            func() (DBusClient, error)
	lastDropWarning time.Time
	wg              sync.WaitGroup
	services        map[string]string // unique bus name -> well-known name
}

// NewHotplugMonitor creates a monitor connecting to the session bus on Start
func NewHotplugMonitor(logger *zap.Logger) *HotplugMonitor {
	return &HotplugMonitor{
		logger: logger,
		events: make(chan domain.DisplayChange, 10),
		dial: func() (DBusClient, error) {
			return NewStdDBusClient()
		},
		services: make(map[string]string),
	}
}

// Start begins monitoring and blocks until ctx is cancelled or Stop is called
func (m *HotplugMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true

	monitorCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	conn, err := m.dial()
	if err != nil {
		m.logger.Error("Failed to connect to session bus", zap.Error(err))
		m.mu.Lock()
		defer m.mu.Unlock()
		m.running = false
		m.cancel = nil
		cancel()
		return fmt.Errorf("session bus connection failed: %w", err)
	}

	select {
	case <-monitorCtx.Done():
		m.logger.Info("Monitor stopped during D-Bus connection")
		if err := conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		return monitorCtx.Err()
	default:
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	m.wg.Add(1)
	func() {
		defer m.wg.Done()
		if err := m.detectServices(); err != nil {
			m.logger.Warn("Failed to detect display configuration services", zap.Error(err))
		}
	}()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(mutterPath),
		dbus.WithMatchInterface(mutterInterface),
		dbus.WithMatchMember("MonitorsChanged"),
	); err != nil {
		m.logger.Error("Failed to add match signal", zap.Error(err))
		return fmt.Errorf("failed to add match signal: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(mutterPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		m.logger.Warn("Failed to add power save match signal", zap.Error(err))
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(kscreenPath),
		dbus.WithMatchInterface(kscreenIface),
		dbus.WithMatchMember("configChanged"),
	); err != nil {
		m.logger.Warn("Failed to add KScreen match signal", zap.Error(err))
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		m.logger.Warn("Failed to add NameOwnerChanged match signal", zap.Error(err))
	}

	m.wg.Add(1)
	go m.monitorSignals(monitorCtx)

	m.logger.Info("Display hot-plug monitor started")
	<-monitorCtx.Done()

	m.logger.Info("Display hot-plug monitor stopped")
	return monitorCtx.Err()
}

// Stop gracefully stops the monitor and closes the events channel
func (m *HotplugMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.mu.Unlock()

	m.logger.Debug("Waiting for monitoring goroutines to finish")
	m.wg.Wait()

	close(m.events)

	m.mu.Lock()
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
	}
	m.mu.Unlock()

	m.logger.Info("Display hot-plug monitor shutdown complete")
	return nil
}

// Events returns a read-only channel of display configuration changes
func (m *HotplugMonitor) Events() <-chan domain.DisplayChange {
	return m.events
}

// detectServices records the display configuration services already on the bus
func (m *HotplugMonitor) detectServices() error {
	names, err := m.conn.ListNames()
	if err != nil {
		return fmt.Errorf("failed to list bus names: %w", err)
	}

	found := 0
	for _, name := range names {
		if !watchedServices[name] {
			continue
		}
		found++

		unique, err := m.conn.GetNameOwner(name)
		if err == nil {
			m.mu.Lock()
			m.services[unique] = name
			m.mu.Unlock()
		}
		m.logger.Info("Display configuration service detected",
			zap.String("name", name),
			zap.String("unique", unique))

		if name == mutterService {
			m.logPowerSaveMode()
		}
	}

	if found == 0 {
		m.logger.Warn("No display configuration service on the session bus, hot-plug events unavailable")
	}
	return nil
}

func (m *HotplugMonitor) logPowerSaveMode() {
	variant, err := m.conn.GetProperty(mutterService, mutterPath, mutterInterface+".PowerSaveMode")
	if err != nil {
		m.logger.Debug("Power save mode unavailable", zap.Error(err))
		return
	}
	mode, ok := variant.Value().(int32)
	if !ok {
		m.logger.Debug("Unexpected power save mode type",
			zap.String("type", fmt.Sprintf("%T", variant.Value())))
		return
	}
	m.logger.Info("Display power save mode", zap.Int32("mode", mode))
}

// monitorSignals listens for D-Bus signals and processes them
func (m *HotplugMonitor) monitorSignals(ctx context.Context) {
	defer m.wg.Done()

	signals := make(chan *dbus.Signal, 10)
	m.conn.Signal(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			if sig == nil {
				continue
			}
			m.handleSignal(sig)
		}
	}
}

// handleSignal turns a bus signal into a display change event
func (m *HotplugMonitor) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case mutterInterface + ".MonitorsChanged", kscreenIface + ".configChanged":
		m.emit(domain.DisplayChange{Source: SourceMonitors}, sig.Sender)
	case propertiesChanged:
		m.handlePropertiesChanged(sig)
	case nameOwnerChanged:
		m.handleNameOwnerChanged(sig)
	}
}

func (m *HotplugMonitor) handlePropertiesChanged(sig *dbus.Signal) {
	if sig.Path != mutterPath || len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != mutterInterface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	if _, ok := changed["PowerSaveMode"]; ok {
		m.emit(domain.DisplayChange{Source: SourcePowerSave}, sig.Sender)
	}
}

// handleNameOwnerChanged tracks compositor restarts; a new owner re-announces
// its monitors, so a change is emitted when a service appears
func (m *HotplugMonitor) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}
	name, ok := sig.Body[0].(string)
	if !ok || !watchedServices[name] {
		return
	}
	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	m.mu.Lock()
	if oldOwner != "" {
		delete(m.services, oldOwner)
	}
	if newOwner != "" {
		m.services[newOwner] = name
	}
	m.mu.Unlock()

	switch {
	case newOwner != "" && oldOwner == "":
		m.logger.Info("Display configuration service appeared", zap.String("name", name))
		m.emit(domain.DisplayChange{Source: SourceCompositor}, newOwner)
	case newOwner == "" && oldOwner != "":
		m.logger.Info("Display configuration service vanished", zap.String("name", name))
	default:
		m.logger.Debug("Display configuration service ownership changed",
			zap.String("name", name),
			zap.String("oldUnique", oldOwner),
			zap.String("newUnique", newOwner))
		m.emit(domain.DisplayChange{Source: SourceCompositor}, newOwner)
	}
}

// emit sends without blocking; bursts collapse since consumers re-read the whole layout
func (m *HotplugMonitor) emit(change domain.DisplayChange, sender string) {
	select {
	case m.events <- change:
		m.logger.Debug("Display change detected",
			zap.String("source", change.Source),
			zap.String("service", m.serviceName(sender)))
	default:
		m.logChannelFullWarning()
	}
}

// serviceName returns the well-known name for a unique bus name
func (m *HotplugMonitor) serviceName(unique string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name, ok := m.services[unique]; ok {
		return name
	}
	return unique
}

// logChannelFullWarning is rate-limited to one warning per 5 seconds
func (m *HotplugMonitor) logChannelFullWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()

	if now.Sub(m.lastDropWarning) >= warningInterval {
		m.logger.Warn("Events channel full, dropping display change")
		m.lastDropWarning = now
	}
}
