package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultBackend      = "auto"
	defaultDebounce     = 500 * time.Millisecond
	defaultBufferLayers = 2
	defaultConfigPath   = "~/.config/screend/config.yaml"
	defaultStatePath    = "~/.local/state/screend/window.yaml"
)

// AppConfig holds application configuration
type AppConfig struct {
	logger     *zap.Logger
	backend    string
	debounce   time.Duration
	layers     int
	fullScreen bool
	modes      []domain.DisplayMode
	window     WindowBounds
	configPath string
	statePath  string
	logLevel   zapcore.Level
}

// NewAppConfig creates a new application configuration instance.
// Environment variables win over the YAML file, which wins over defaults.
func NewAppConfig(logger *zap.Logger) *AppConfig {
	c := &AppConfig{
		logger:     logger,
		backend:    defaultBackend,
		debounce:   defaultDebounce,
		layers:     defaultBufferLayers,
		configPath: expandPath(envOr("SCREEND_CONFIG", defaultConfigPath)),
		statePath:  expandPath(envOr("SCREEND_STATE", defaultStatePath)),
		logLevel:   zapcore.InfoLevel,
	}

	file, err := loadFile(c.configPath)
	if err != nil {
		logger.Warn("Ignoring configuration file", zap.String("path", c.configPath), zap.Error(err))
	} else if file != nil {
		c.applyFile(file)
	}

	c.applyEnv()

	logger.Info("Configuration loaded",
		zap.String("backend", c.backend),
		zap.Duration("debounce", c.debounce),
		zap.Int("bufferLayers", c.layers),
		zap.Bool("fullScreen", c.fullScreen),
		zap.Int("preferredModes", len(c.modes)),
		zap.String("state", c.statePath))

	return c
}

func (c *AppConfig) applyFile(f *fileConfig) {
	if f.Backend != "" {
		c.backend = f.Backend
	}
	if f.DebounceMS > 0 {
		c.debounce = time.Duration(f.DebounceMS) * time.Millisecond
	}
	if f.BufferLayers != 0 {
		c.setLayers(f.BufferLayers)
	}
	if f.FullScreen != nil {
		c.fullScreen = *f.FullScreen
	}
	if len(f.Modes) > 0 {
		c.modes = c.parseModes(f.Modes)
	}
	if f.Window != nil {
		c.window.SetSize(f.Window.Width, f.Window.Height)
		if f.Window.X != nil && f.Window.Y != nil {
			c.window.SetLocation(*f.Window.X, *f.Window.Y)
		}
	}
	if f.LogLevel != "" {
		c.setLogLevel(f.LogLevel)
	}
}

func (c *AppConfig) applyEnv() {
	if v := os.Getenv("SCREEND_BACKEND"); v != "" {
		c.backend = strings.ToLower(v)
	}
	if v := os.Getenv("SCREEND_DEBOUNCE_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			c.logger.Warn("Invalid SCREEND_DEBOUNCE_MS, keeping default", zap.String("value", v))
		} else {
			c.debounce = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("SCREEND_BUFFER_LAYERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.logger.Warn("Invalid SCREEND_BUFFER_LAYERS, keeping default", zap.String("value", v))
		} else {
			c.setLayers(n)
		}
	}
	if v := os.Getenv("SCREEND_FULLSCREEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.logger.Warn("Invalid SCREEND_FULLSCREEN, keeping default", zap.String("value", v))
		} else {
			c.fullScreen = b
		}
	}
	if v := os.Getenv("SCREEND_MODE"); v != "" {
		c.modes = c.parseModes(strings.Split(v, ","))
	}
	if v := os.Getenv("SCREEND_LOG_LEVEL"); v != "" {
		c.setLogLevel(v)
	}
}

func (c *AppConfig) setLayers(n int) {
	if n != 2 && n != 3 {
		c.logger.Warn("Buffer layers must be 2 or 3, keeping current value",
			zap.Int("requested", n),
			zap.Int("current", c.layers))
		return
	}
	c.layers = n
}

func (c *AppConfig) setLogLevel(v string) {
	level, err := zapcore.ParseLevel(v)
	if err != nil {
		c.logger.Warn("Invalid log level, keeping current one", zap.String("value", v))
		return
	}
	c.logLevel = level
}

func (c *AppConfig) parseModes(values []string) []domain.DisplayMode {
	modes := make([]domain.DisplayMode, 0, len(values))
	for _, v := range values {
		mode, err := ParseMode(v)
		if err != nil {
			c.logger.Warn("Skipping display mode", zap.Error(err))
			continue
		}
		modes = append(modes, mode)
	}
	return modes
}

// ParseMode parses WxH[@depth][:refresh]. Omitted depth and refresh rate
// match any value.
func ParseMode(s string) (domain.DisplayMode, error) {
	mode := domain.DisplayMode{BitDepth: domain.BitDepthMulti, RefreshRate: domain.RefreshRateUnknown}
	rest := strings.TrimSpace(s)

	if i := strings.IndexByte(rest, ':'); i >= 0 {
		hz, err := strconv.Atoi(rest[i+1:])
		if err != nil || hz <= 0 {
			return domain.DisplayMode{}, fmt.Errorf("invalid refresh rate in %q", s)
		}
		mode.RefreshRate = hz
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '@'); i >= 0 {
		depth, err := strconv.Atoi(rest[i+1:])
		if err != nil || depth <= 0 {
			return domain.DisplayMode{}, fmt.Errorf("invalid bit depth in %q", s)
		}
		mode.BitDepth = depth
		rest = rest[:i]
	}

	w, h, ok := strings.Cut(rest, "x")
	if !ok {
		return domain.DisplayMode{}, fmt.Errorf("invalid display mode %q, want WxH", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return domain.DisplayMode{}, fmt.Errorf("invalid width in %q", s)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return domain.DisplayMode{}, fmt.Errorf("invalid height in %q", s)
	}
	mode.Width = width
	mode.Height = height
	return mode, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// expandPath expands environment variables and a leading ~
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

// GetBackend returns the requested backend name
func (c *AppConfig) GetBackend() string {
	return c.backend
}

// GetBufferLayers returns the number of buffers in a buffer chain
func (c *AppConfig) GetBufferLayers() int {
	return c.layers
}

// GetPreferredModes returns the full-screen candidate modes
func (c *AppConfig) GetPreferredModes() []domain.DisplayMode {
	modes := make([]domain.DisplayMode, len(c.modes))
	copy(modes, c.modes)
	return modes
}

// GetDebounce returns the device tracking quiet period
func (c *AppConfig) GetDebounce() time.Duration {
	return c.debounce
}

// GetFullScreen reports whether to start in full-screen mode
func (c *AppConfig) GetFullScreen() bool {
	return c.fullScreen
}

// GetWindowBounds returns the requested window geometry
func (c *AppConfig) GetWindowBounds() WindowBounds {
	return c.window
}

// GetStatePath returns where the window geometry is persisted
func (c *AppConfig) GetStatePath() string {
	return c.statePath
}

// GetLogLevel returns the configured log level
func (c *AppConfig) GetLogLevel() zapcore.Level {
	return c.logLevel
}
