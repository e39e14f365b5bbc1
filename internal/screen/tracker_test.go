package screen

import (
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

// resolveRecorder counts resolutions and remembers when they happened
type resolveRecorder struct {
	mu    sync.Mutex
	times []time.Time
}

func (r *resolveRecorder) resolve() {
	r.mu.Lock()
	r.times = append(r.times, time.Now())
	r.mu.Unlock()
}

func (r *resolveRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.times)
}

func (r *resolveRecorder) last() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.times[len(r.times)-1]
}

func TestTracker_SingleEventResolvesOnce(t *testing.T) {
	quiet := 40 * time.Millisecond
	rec := &resolveRecorder{}
	tr := NewTracker(zap.NewNop(), quiet, rec.resolve)
	defer tr.Stop()

	start := time.Now()
	tr.Notify(domain.WindowMoved)
	if !tr.Pending() {
		t.Fatal("expected a pending re-association after a move")
	}

	time.Sleep(4 * quiet)

	if got := rec.count(); got != 1 {
		t.Fatalf("expected 1 resolution, got %d", got)
	}
	if elapsed := rec.last().Sub(start); elapsed < quiet {
		t.Errorf("resolved after %v, before the quiet period %v", elapsed, quiet)
	}
	if tr.Pending() {
		t.Error("nothing should be pending after resolution")
	}
}

func TestTracker_EventStreamResolvesOnceAfterLastEvent(t *testing.T) {
	quiet := 50 * time.Millisecond
	rec := &resolveRecorder{}
	tr := NewTracker(zap.NewNop(), quiet, rec.resolve)
	defer tr.Stop()

	var lastEvent time.Time
	for i := 0; i < 20; i++ {
		ev := domain.WindowMoved
		if i%2 == 1 {
			ev = domain.WindowResized
		}
		tr.Notify(ev)
		lastEvent = time.Now()
		time.Sleep(quiet / 5)
	}
	if got := rec.count(); got != 0 {
		t.Fatalf("expected no resolution while events keep coming, got %d", got)
	}

	time.Sleep(4 * quiet)

	if got := rec.count(); got != 1 {
		t.Fatalf("expected exactly 1 resolution, got %d", got)
	}
	if delay := rec.last().Sub(lastEvent); delay < quiet {
		t.Errorf("resolved %v after the last event, want at least %v", delay, quiet)
	}
}

// TestTracker_DefaultQuietPeriod replays the canonical scenario with real timings:
// moves every 100ms for 2s settle into one resolution about 500ms after the last move.
func TestTracker_DefaultQuietPeriod(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time scenario")
	}

	rec := &resolveRecorder{}
	tr := NewTracker(zap.NewNop(), 0, rec.resolve)
	defer tr.Stop()

	deadline := time.Now().Add(2 * time.Second)
	var lastEvent time.Time
	for time.Now().Before(deadline) {
		tr.Notify(domain.WindowMoved)
		lastEvent = time.Now()
		time.Sleep(100 * time.Millisecond)
	}

	time.Sleep(time.Second)

	if got := rec.count(); got != 1 {
		t.Fatalf("expected exactly 1 resolution, got %d", got)
	}
	delay := rec.last().Sub(lastEvent)
	if delay < DefaultQuietPeriod || delay > DefaultQuietPeriod+250*time.Millisecond {
		t.Errorf("resolved %v after the last event, want about %v", delay, DefaultQuietPeriod)
	}
}

func TestTracker_IgnoredEvents(t *testing.T) {
	quiet := 20 * time.Millisecond

	tests := []struct {
		name  string
		setup func(tr *Tracker)
	}{
		{
			name:  "Shown does not arm",
			setup: func(tr *Tracker) { tr.Notify(domain.WindowShown) },
		},
		{
			name: "Hidden cancels a pending move",
			setup: func(tr *Tracker) {
				tr.Notify(domain.WindowMoved)
				tr.Notify(domain.WindowHidden)
			},
		},
		{
			name: "Moves while hidden are ignored",
			setup: func(tr *Tracker) {
				tr.Notify(domain.WindowHidden)
				tr.Notify(domain.WindowMoved)
			},
		},
		{
			name: "Stop cancels a pending move",
			setup: func(tr *Tracker) {
				tr.Notify(domain.WindowMoved)
				tr.Stop()
			},
		},
		{
			name: "Moves after Stop are ignored",
			setup: func(tr *Tracker) {
				tr.Stop()
				tr.Stop()
				tr.Notify(domain.WindowResized)
			},
		},
		{
			name: "Suspend cancels and ignores moves",
			setup: func(tr *Tracker) {
				tr.Notify(domain.WindowMoved)
				tr.Suspend()
				tr.Notify(domain.WindowMoved)
				tr.Notify(domain.WindowShown)
				tr.Notify(domain.WindowMoved)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &resolveRecorder{}
			tr := NewTracker(zap.NewNop(), quiet, rec.resolve)
			defer tr.Stop()

			tt.setup(tr)
			if tr.Pending() {
				t.Error("expected nothing pending")
			}

			time.Sleep(5 * quiet)
			if got := rec.count(); got != 0 {
				t.Errorf("expected no resolution, got %d", got)
			}
		})
	}
}

func TestTracker_ShownAndResumeRearm(t *testing.T) {
	quiet := 20 * time.Millisecond
	rec := &resolveRecorder{}
	tr := NewTracker(zap.NewNop(), quiet, rec.resolve)
	defer tr.Stop()

	tr.Notify(domain.WindowHidden)
	tr.Notify(domain.WindowShown)
	tr.Notify(domain.WindowMoved)
	time.Sleep(5 * quiet)
	if got := rec.count(); got != 1 {
		t.Fatalf("after Shown: expected 1 resolution, got %d", got)
	}

	tr.Suspend()
	tr.Resume()
	tr.Notify(domain.WindowMoved)
	time.Sleep(5 * quiet)
	if got := rec.count(); got != 2 {
		t.Fatalf("after Resume: expected 2 resolutions, got %d", got)
	}
}
