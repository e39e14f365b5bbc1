package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type fileWindow struct {
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	X      *int `yaml:"x"`
	Y      *int `yaml:"y"`
}

// fileConfig mirrors config.yaml
type fileConfig struct {
	Backend      string      `yaml:"backend"`
	DebounceMS   int         `yaml:"debounce_ms"`
	BufferLayers int         `yaml:"buffer_layers"`
	FullScreen   *bool       `yaml:"fullscreen"`
	Modes        []string    `yaml:"modes"`
	Window       *fileWindow `yaml:"window"`
	LogLevel     string      `yaml:"log_level"`
}

// loadFile returns nil without error when the file does not exist
func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// WindowState is the window geometry remembered between runs
type WindowState struct {
	X          int  `yaml:"x"`
	Y          int  `yaml:"y"`
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Device     int  `yaml:"device"`
	FullScreen bool `yaml:"fullscreen"`
}

// Bounds converts the state into a window request
func (s WindowState) Bounds() WindowBounds {
	var b WindowBounds
	b.SetSize(s.Width, s.Height)
	b.SetLocation(s.X, s.Y)
	return b
}

// LoadWindowState reads the persisted geometry. ok is false when nothing was saved.
func LoadWindowState(path string) (state WindowState, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return WindowState{}, false, nil
	}
	if err != nil {
		return WindowState{}, false, fmt.Errorf("failed to read window state: %w", err)
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return WindowState{}, false, fmt.Errorf("failed to parse window state: %w", err)
	}
	return state, true, nil
}

// SaveWindowState writes the geometry atomically, creating parent directories
func SaveWindowState(path string, state WindowState) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode window state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write window state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace window state: %w", err)
	}
	return nil
}
