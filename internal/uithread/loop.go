package uithread

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned by Invoke once the loop has exited
var ErrStopped = errors.New("ui thread stopped")

type call struct {
	fn   func()
	done chan error
}

// Loop runs functions one at a time on a single locked OS thread.
// Native surfaces are created and swapped only from inside the loop.
type Loop struct {
	logger *zap.Logger
	calls  chan call

	mu      sync.Mutex
	running bool
	stopped chan struct{}
}

// NewLoop creates a loop; Run must be called for Invoke to make progress
func NewLoop(logger *zap.Logger) *Loop {
	return &Loop{
		logger:  logger,
		calls:   make(chan call),
		stopped: make(chan struct{}),
	}
}

// Run executes queued calls until ctx is cancelled. It blocks.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("ui thread already running")
	}
	l.running = true
	l.mu.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.stopped)

	l.logger.Debug("UI thread started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("UI thread stopped")
			return ctx.Err()
		case c := <-l.calls:
			c.done <- l.exec(c.fn)
		}
	}
}

func (l *Loop) exec(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("UI thread call panicked", zap.Any("panic", r))
			err = fmt.Errorf("ui thread call panicked: %v", r)
		}
	}()
	fn()
	return nil
}

// Invoke runs fn on the loop and waits for it. It must not be called from
// inside the loop.
func (l *Loop) Invoke(fn func()) error {
	c := call{fn: fn, done: make(chan error, 1)}
	select {
	case l.calls <- c:
	case <-l.stopped:
		return ErrStopped
	}

	select {
	case err := <-c.done:
		return err
	case <-l.stopped:
		// the call may have completed just before the loop exited
		select {
		case err := <-c.done:
			return err
		default:
			return ErrStopped
		}
	}
}

// Inline runs calls on the caller's goroutine. It suits callers that already
// are the UI thread.
type Inline struct{}

// Invoke runs fn immediately, converting a panic into an error
func (Inline) Invoke(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ui call panicked: %v", r)
		}
	}()
	fn()
	return nil
}
