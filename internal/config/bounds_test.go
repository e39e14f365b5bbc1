package config

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/genricoloni/screend/internal/domain"
)

// placedWindow records the geometry applied by Configure
type placedWindow struct {
	domain.Window
	size     image.Point
	location image.Point
}

func (w *placedWindow) SetSize(width, height int) { w.size = image.Pt(width, height) }
func (w *placedWindow) SetLocation(x, y int)      { w.location = image.Pt(x, y) }

func TestWindowBounds_Resolve(t *testing.T) {
	screen := image.Rect(0, 0, 1920, 1080)

	tests := []struct {
		name  string
		setup func(b *WindowBounds)
		want  Placement
	}{
		{
			name:  "Nothing requested",
			setup: func(b *WindowBounds) {},
			want:  Placement{Size: DefaultWindowSize, Location: image.Pt(660, 290), Centered: true},
		},
		{
			name:  "Too small falls back to default",
			setup: func(b *WindowBounds) { b.SetSize(100, 800) },
			want:  Placement{Size: DefaultWindowSize, Location: image.Pt(660, 290), Centered: true},
		},
		{
			name: "Kept location",
			setup: func(b *WindowBounds) {
				b.SetSize(800, 600)
				b.SetLocation(100, 50)
			},
			want: Placement{Size: image.Pt(800, 600), Location: image.Pt(100, 50)},
		},
		{
			name: "Overflowing axis resets and centers",
			setup: func(b *WindowBounds) {
				b.SetSize(800, 600)
				b.SetLocation(1500, 50)
			},
			want: Placement{Size: image.Pt(800, 600), Location: image.Pt(560, 240), Centered: true},
		},
		{
			name: "Zero coordinate centers",
			setup: func(b *WindowBounds) {
				b.SetSize(800, 600)
				b.SetLocation(0, 200)
			},
			want: Placement{Size: image.Pt(800, 600), Location: image.Pt(560, 240), Centered: true},
		},
		{
			name:  "Close to the screen size maximizes",
			setup: func(b *WindowBounds) { b.SetSize(1900, 700) },
			want:  Placement{Size: image.Pt(1920, 1080), Location: image.Pt(0, 0), Maximized: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b WindowBounds
			tt.setup(&b)
			if got := b.Resolve(screen); got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWindowBounds_Configure(t *testing.T) {
	var b WindowBounds
	b.SetSize(640, 480)
	b.SetLocation(2000, 100)

	w := &placedWindow{}
	p := b.Configure(w, image.Rect(0, 0, 3840, 1080))

	if w.size != image.Pt(640, 480) || w.location != image.Pt(2000, 100) {
		t.Errorf("window placed at %v size %v", w.location, w.size)
	}
	if p.Centered || p.Maximized {
		t.Errorf("unexpected placement %+v", p)
	}
}

func TestWindowState_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "window.yaml")

	if _, ok, err := LoadWindowState(path); err != nil || ok {
		t.Fatalf("missing state: ok=%v err=%v", ok, err)
	}

	want := WindowState{X: 120, Y: 80, Width: 1024, Height: 768, Device: 1, FullScreen: true}
	if err := SaveWindowState(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := LoadWindowState(path)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("loaded %+v, want %+v", got, want)
	}

	size, _ := got.Bounds().Size()
	if size != image.Pt(1024, 768) {
		t.Errorf("bounds size = %v", size)
	}
}

func TestLoadWindowState_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window.yaml")
	if err := os.WriteFile(path, []byte("x: [1, 2\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := LoadWindowState(path); err == nil {
		t.Error("expected a parse error")
	}
}
