package display

import (
	"testing"

	"github.com/genricoloni/screend/internal/domain"
)

func mode(w, h, depth, refresh int) domain.DisplayMode {
	return domain.DisplayMode{Width: w, Height: h, BitDepth: depth, RefreshRate: refresh}
}

func TestModesMatch(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.DisplayMode
		want bool
	}{
		{"Identical", mode(1920, 1080, 32, 60), mode(1920, 1080, 32, 60), true},
		{"Width differs", mode(1920, 1080, 32, 60), mode(1280, 1080, 32, 60), false},
		{"Height differs", mode(1920, 1080, 32, 60), mode(1920, 1200, 32, 60), false},
		{"Size differs with sentinels", mode(800, 600, domain.BitDepthMulti, domain.RefreshRateUnknown), mode(1024, 768, domain.BitDepthMulti, domain.RefreshRateUnknown), false},
		{"Depth differs", mode(1920, 1080, 16, 60), mode(1920, 1080, 32, 60), false},
		{"Depth sentinel left", mode(1920, 1080, domain.BitDepthMulti, 60), mode(1920, 1080, 32, 60), true},
		{"Depth sentinel right", mode(1920, 1080, 24, 60), mode(1920, 1080, domain.BitDepthMulti, 60), true},
		{"Refresh differs", mode(1920, 1080, 32, 60), mode(1920, 1080, 32, 144), false},
		{"Refresh unknown left", mode(1920, 1080, 32, domain.RefreshRateUnknown), mode(1920, 1080, 32, 75), true},
		{"Refresh unknown right", mode(1920, 1080, 32, 75), mode(1920, 1080, 32, domain.RefreshRateUnknown), true},
		{"Depth ok refresh differs", mode(1920, 1080, domain.BitDepthMulti, 60), mode(1920, 1080, 32, 50), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ModesMatch(tt.a, tt.b); got != tt.want {
				t.Errorf("ModesMatch(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := ModesMatch(tt.b, tt.a); got != tt.want {
				t.Errorf("ModesMatch(%v, %v) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestModesMatch_Reflexive(t *testing.T) {
	modes := []domain.DisplayMode{
		mode(640, 480, 8, 60),
		mode(1920, 1080, domain.BitDepthMulti, domain.RefreshRateUnknown),
		mode(3840, 2160, 32, 144),
		mode(0, 0, 0, 0),
	}
	for _, m := range modes {
		if !ModesMatch(m, m) {
			t.Errorf("mode %v does not match itself", m)
		}
	}
}

func TestFindFirstCompatible(t *testing.T) {
	current := mode(1920, 1080, 32, 60)
	deviceModes := []domain.DisplayMode{
		mode(1920, 1080, 32, 60),
		mode(1280, 720, 32, 60),
		mode(800, 600, 16, 75),
	}

	tests := []struct {
		name       string
		candidates []domain.DisplayMode
		want       domain.DisplayMode
		wantOK     bool
	}{
		{
			name:       "Current mode preferred when listed",
			candidates: []domain.DisplayMode{mode(1920, 1080, 32, 60)},
			want:       mode(1920, 1080, 32, 60),
			wantOK:     true,
		},
		{
			name:       "First candidate wins over better later ones",
			candidates: []domain.DisplayMode{mode(800, 600, domain.BitDepthMulti, domain.RefreshRateUnknown), mode(1920, 1080, 32, 60)},
			want:       mode(800, 600, domain.BitDepthMulti, domain.RefreshRateUnknown),
			wantOK:     true,
		},
		{
			name:       "Unsupported candidates skipped",
			candidates: []domain.DisplayMode{mode(2560, 1440, 32, 60), mode(1280, 720, 32, domain.RefreshRateUnknown)},
			want:       mode(1280, 720, 32, domain.RefreshRateUnknown),
			wantOK:     true,
		},
		{
			name:       "Nothing matches",
			candidates: []domain.DisplayMode{mode(2560, 1440, 32, 60), mode(800, 600, 32, 75)},
			wantOK:     false,
		},
		{
			name:       "Empty candidate list",
			candidates: nil,
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindFirstCompatible(tt.candidates, current, deviceModes)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindFirstCompatible_CurrentOnlyMatch(t *testing.T) {
	// current mode is not part of the device list
	current := mode(1366, 768, domain.BitDepthMulti, domain.RefreshRateUnknown)
	got, ok := FindFirstCompatible([]domain.DisplayMode{mode(1366, 768, 24, 60)}, current, nil)
	if !ok {
		t.Fatal("expected the candidate to match the current mode")
	}
	if got != mode(1366, 768, 24, 60) {
		t.Errorf("got %v", got)
	}
}
