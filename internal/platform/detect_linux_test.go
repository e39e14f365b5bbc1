//go:build linux
// +build linux

package platform

import (
	"testing"
	"time"

	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		env  Environment
		want string
	}{
		{"Explicit headless", Environment{Display: ":0", Requested: Headless}, Headless},
		{"Explicit x11", Environment{Requested: X11}, X11},
		{"Auto with X", Environment{Display: ":0", Requested: Auto}, X11},
		{"Empty request with X", Environment{Display: ":1"}, X11},
		{"XWayland", Environment{Display: ":0", Wayland: "wayland-0", Session: "wayland"}, X11},
		{"Hyprland with XWayland", Environment{Display: ":0", Wayland: "wayland-1", Hyprland: "abc"}, X11},
		{"Pure Wayland", Environment{Wayland: "wayland-0"}, Headless},
		{"Wayland session type only", Environment{Session: "wayland"}, Headless},
		{"Nothing", Environment{}, Headless},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(zap.NewNop(), tt.env); got != tt.want {
				t.Errorf("Detect = %q, want %q", got, tt.want)
			}
		})
	}
}

type testConfig struct{ backend string }

func (c testConfig) GetBackend() string                      { return c.backend }
func (c testConfig) GetBufferLayers() int                    { return 2 }
func (c testConfig) GetPreferredModes() []domain.DisplayMode { return nil }
func (c testConfig) GetDebounce() time.Duration              { return time.Millisecond }
func (c testConfig) GetFullScreen() bool                     { return false }

func TestNewBackend(t *testing.T) {
	t.Run("Headless", func(t *testing.T) {
		b, err := NewBackend(zap.NewNop(), testConfig{backend: Headless})
		if err != nil {
			t.Fatalf("NewBackend: %v", err)
		}
		defer b.Close()
		if b.Name() != Headless {
			t.Errorf("Name = %q", b.Name())
		}
	})

	t.Run("Auto without display", func(t *testing.T) {
		t.Setenv("DISPLAY", "")
		t.Setenv("WAYLAND_DISPLAY", "")
		t.Setenv("XDG_SESSION_TYPE", "")
		b, err := NewBackend(zap.NewNop(), testConfig{backend: Auto})
		if err != nil {
			t.Fatalf("NewBackend: %v", err)
		}
		defer b.Close()
		if b.Name() != Headless {
			t.Errorf("Name = %q", b.Name())
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, err := NewBackend(zap.NewNop(), testConfig{backend: "wayland"}); err == nil {
			t.Error("expected an error for an unknown backend")
		}
	})

	t.Run("Explicit x11 without server", func(t *testing.T) {
		t.Setenv("DISPLAY", ":4242")
		if _, err := NewBackend(zap.NewNop(), testConfig{backend: X11}); err == nil {
			t.Error("expected an error when the requested X server is unreachable")
		}
	})
}
