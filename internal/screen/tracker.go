package screen

import (
	"sync"
	"time"

	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

// DefaultQuietPeriod is how long a window must stay still before its display
// device is re-resolved
const DefaultQuietPeriod = 500 * time.Millisecond

// Tracker debounces window move/resize events and calls resolve once the
// window has been quiet for the whole quiet period. Every new event pushes
// the deadline back.
type Tracker struct {
	logger  *zap.Logger
	quiet   time.Duration
	resolve func()

	mu         sync.Mutex
	timer      *time.Timer
	deadline   time.Time
	pending    bool
	suppressed bool
	suspended  bool
	stopped    bool
	// bumped on every cancellation so stale timers become no-ops
	generation uint64
}

// NewTracker creates a tracker; a non-positive quiet uses DefaultQuietPeriod
func NewTracker(logger *zap.Logger, quiet time.Duration, resolve func()) *Tracker {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Tracker{
		logger:  logger,
		quiet:   quiet,
		resolve: resolve,
	}
}

// Notify feeds a window event into the tracker
func (t *Tracker) Notify(ev domain.WindowEvent) {
	switch ev {
	case domain.WindowMoved, domain.WindowResized:
		t.touch()
	case domain.WindowHidden:
		t.mu.Lock()
		t.suppressed = true
		t.cancelLocked()
		t.mu.Unlock()
	case domain.WindowShown:
		t.mu.Lock()
		t.suppressed = false
		t.mu.Unlock()
	}
}

func (t *Tracker) touch() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.suppressed || t.suspended {
		return
	}

	t.deadline = time.Now().Add(t.quiet)
	if t.pending {
		// the running timer reschedules itself up to the new deadline
		return
	}
	t.pending = true
	t.scheduleLocked(t.quiet)
}

func (t *Tracker) scheduleLocked(d time.Duration) {
	gen := t.generation
	t.timer = time.AfterFunc(d, func() {
		t.fire(gen)
	})
}

func (t *Tracker) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.generation || !t.pending {
		t.mu.Unlock()
		return
	}
	if remaining := time.Until(t.deadline); remaining > 0 {
		t.scheduleLocked(remaining)
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.mu.Unlock()

	t.logger.Debug("Window settled, resolving display device")
	t.resolve()
}

func (t *Tracker) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.generation++
	t.pending = false
}

// Suspend cancels any scheduled re-association and ignores events until Resume
func (t *Tracker) Suspend() {
	t.mu.Lock()
	t.suspended = true
	t.cancelLocked()
	t.mu.Unlock()
}

// Resume reverts Suspend
func (t *Tracker) Resume() {
	t.mu.Lock()
	t.suspended = false
	t.mu.Unlock()
}

// Pending reports whether a re-association is scheduled
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// Stop cancels any scheduled re-association and ignores later events
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true
	t.cancelLocked()
	t.logger.Debug("Device tracker stopped")
}
