package display

import (
	"errors"
	"image"
	"testing"

	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

// stubWindow is the minimal window needed to take device ownership
type stubWindow struct {
	domain.Window
	w, h int
}

func (s *stubWindow) SetSize(w, h int) { s.w, s.h = w, h }

func twoScreens() (*SyntheticDevice, *SyntheticDevice, Enumerator) {
	left := NewSyntheticDevice(SyntheticOptions{Name: "left", Bounds: image.Rect(0, 0, 1920, 1080), FullScreenSupported: true})
	right := NewSyntheticDevice(SyntheticOptions{Name: "right", Bounds: image.Rect(1920, 0, 3840, 1080), FullScreenSupported: true})
	enum := EnumeratorFunc(func() ([]domain.Device, error) {
		return []domain.Device{left, right}, nil
	})
	return left, right, enum
}

func TestRegistry_FallbackToSyntheticDefault(t *testing.T) {
	tests := []struct {
		name string
		enum Enumerator
	}{
		{"Nil enumerator", nil},
		{"Enumeration error", EnumeratorFunc(func() ([]domain.Device, error) { return nil, errors.New("headless") })},
		{"Empty list", EnumeratorFunc(func() ([]domain.Device, error) { return nil, nil })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(zap.NewNop(), tt.enum)
			if reg.Len() != 1 {
				t.Fatalf("expected 1 synthetic device, got %d", reg.Len())
			}
			d, err := reg.Device(0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.IsFullScreenSupported() {
				t.Error("synthetic default should not claim full-screen support")
			}
			if got := reg.MaximumBounds(); got != fallbackBounds {
				t.Errorf("MaximumBounds = %v, want %v", got, fallbackBounds)
			}
		})
	}
}

func TestRegistry_EnumeratesOnce(t *testing.T) {
	calls := 0
	reg := NewRegistry(zap.NewNop(), EnumeratorFunc(func() ([]domain.Device, error) {
		calls++
		return []domain.Device{NewSyntheticDevice(SyntheticOptions{Name: "a", Bounds: image.Rect(0, 0, 10, 10)})}, nil
	}))

	reg.Devices()
	reg.Len()
	reg.MaximumBounds()
	if calls != 1 {
		t.Errorf("expected a single enumeration, got %d", calls)
	}

	reg.Refresh()
	if calls != 2 {
		t.Errorf("expected Refresh to enumerate again, got %d calls", calls)
	}
}

func TestRegistry_Bounds(t *testing.T) {
	_, _, enum := twoScreens()
	reg := NewRegistry(zap.NewNop(), enum)

	if got, want := reg.MaximumBounds(), image.Rect(0, 0, 3840, 1080); got != want {
		t.Errorf("MaximumBounds = %v, want %v", got, want)
	}
	if got, want := reg.CurrentBounds(1), image.Rect(1920, 0, 3840, 1080); got != want {
		t.Errorf("CurrentBounds(1) = %v, want %v", got, want)
	}
	if got := reg.CurrentBounds(7); !got.Empty() {
		t.Errorf("CurrentBounds(7) = %v, want empty", got)
	}
}

func TestRegistry_CurrentConfiguration(t *testing.T) {
	left, _, enum := twoScreens()
	reg := NewRegistry(zap.NewNop(), enum)

	cfg, ok := reg.CurrentConfiguration(0)
	if !ok || cfg.Device != "left" {
		t.Fatalf("CurrentConfiguration(0) = %+v, %v", cfg, ok)
	}

	left.Disconnect()
	if _, ok := reg.CurrentConfiguration(0); ok {
		t.Error("expected no configuration for a disconnected device")
	}
	if got := reg.DefaultConfiguration(); got.Device != "right" {
		t.Errorf("DefaultConfiguration should skip disconnected devices, got %q", got.Device)
	}

	if _, ok := reg.CurrentConfiguration(-1); ok {
		t.Error("expected no configuration for an invalid index")
	}
}

func TestRegistry_IndexAt(t *testing.T) {
	_, _, enum := twoScreens()
	reg := NewRegistry(zap.NewNop(), enum)

	tests := []struct {
		point  image.Point
		want   int
		wantOK bool
	}{
		{image.Pt(100, 100), 0, true},
		{image.Pt(2000, 100), 1, true},
		{image.Pt(1920, 0), 1, true},
		{image.Pt(5000, 100), 0, false},
		{image.Pt(-10, 100), 0, false},
	}

	for _, tt := range tests {
		got, ok := reg.IndexAt(tt.point)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("IndexAt(%v) = %d, %v; want %d, %v", tt.point, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRegistry_ExclusiveFullScreen(t *testing.T) {
	left, right, enum := twoScreens()
	reg := NewRegistry(zap.NewNop(), enum)
	w := &stubWindow{}

	if err := reg.AcquireFullScreen(0, w); err != nil {
		t.Fatalf("first acquisition failed: %v", err)
	}
	if left.FullScreenWindow() != w {
		t.Error("left device should own the window")
	}
	if w.w != 1920 || w.h != 1080 {
		t.Errorf("window not stretched over the device: %dx%d", w.w, w.h)
	}

	err := reg.AcquireFullScreen(1, &stubWindow{})
	if !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("expected ErrDeviceBusy, got %v", err)
	}
	if right.FullScreenWindow() != nil {
		t.Error("right device must stay windowed")
	}

	if err := reg.ReleaseFullScreen(0); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := reg.AcquireFullScreen(1, w); err != nil {
		t.Fatalf("acquisition after release failed: %v", err)
	}

	if err := reg.AcquireFullScreen(3, w); !errors.Is(err, ErrNoSuchDevice) {
		t.Errorf("expected ErrNoSuchDevice, got %v", err)
	}
}

func TestRegistry_RefreshKeepsOwnedDevice(t *testing.T) {
	owned := NewSyntheticDevice(SyntheticOptions{Name: "main", Bounds: image.Rect(0, 0, 800, 600)})
	first := true
	reg := NewRegistry(zap.NewNop(), EnumeratorFunc(func() ([]domain.Device, error) {
		if first {
			first = false
			return []domain.Device{owned}, nil
		}
		return []domain.Device{
			NewSyntheticDevice(SyntheticOptions{Name: "main", Bounds: image.Rect(0, 0, 800, 600)}),
			NewSyntheticDevice(SyntheticOptions{Name: "extra", Bounds: image.Rect(800, 0, 1600, 600)}),
		}, nil
	}))

	if err := reg.AcquireFullScreen(0, &stubWindow{}); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if n := reg.Refresh(); n != 2 {
		t.Fatalf("Refresh = %d, want 2", n)
	}
	d, _ := reg.Device(0)
	if d != owned {
		t.Error("device owning a full-screen window should survive re-enumeration")
	}
}

func TestSyntheticDevice_SetDisplayMode(t *testing.T) {
	modes := []domain.DisplayMode{mode(1920, 1080, 32, 60), mode(1280, 720, 32, 60)}

	t.Run("Unsupported", func(t *testing.T) {
		d := NewSyntheticDevice(SyntheticOptions{Name: "d", Bounds: image.Rect(0, 0, 1920, 1080), Modes: modes})
		_ = d.SetFullScreenWindow(&stubWindow{})
		if err := d.SetDisplayMode(modes[1]); !errors.Is(err, ErrModeUnsupported) {
			t.Errorf("expected ErrModeUnsupported, got %v", err)
		}
	})

	t.Run("Requires full-screen window", func(t *testing.T) {
		d := NewSyntheticDevice(SyntheticOptions{Name: "d", Bounds: image.Rect(0, 0, 1920, 1080), Modes: modes, DisplayChangeSupported: true})
		if err := d.SetDisplayMode(modes[1]); err == nil {
			t.Error("expected an error without a full-screen window")
		}
	})

	t.Run("Switches and restores", func(t *testing.T) {
		d := NewSyntheticDevice(SyntheticOptions{Name: "d", Bounds: image.Rect(0, 0, 1920, 1080), Modes: modes, DisplayChangeSupported: true})
		_ = d.SetFullScreenWindow(&stubWindow{})
		if err := d.SetDisplayMode(mode(1280, 720, domain.BitDepthMulti, domain.RefreshRateUnknown)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := d.DisplayMode(); got != modes[1] {
			t.Errorf("DisplayMode = %v, want %v", got, modes[1])
		}
		if got := d.Configurations()[0].Bounds; got != image.Rect(0, 0, 1280, 720) {
			t.Errorf("bounds = %v", got)
		}
		_ = d.SetFullScreenWindow(nil)
		if got := d.Configurations()[0].Bounds; got != image.Rect(0, 0, 1920, 1080) {
			t.Errorf("bounds after release = %v", got)
		}
	})

	t.Run("Unknown mode rejected", func(t *testing.T) {
		d := NewSyntheticDevice(SyntheticOptions{Name: "d", Bounds: image.Rect(0, 0, 1920, 1080), Modes: modes, DisplayChangeSupported: true})
		_ = d.SetFullScreenWindow(&stubWindow{})
		if err := d.SetDisplayMode(mode(640, 480, 8, 60)); !errors.Is(err, ErrModeUnsupported) {
			t.Errorf("expected ErrModeUnsupported, got %v", err)
		}
	})
}
