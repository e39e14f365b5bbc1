package uithread

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc, <-chan error) {
	t.Helper()
	loop := NewLoop(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	return loop, cancel, errCh
}

func TestLoop_InvokeBlocksUntilDone(t *testing.T) {
	loop, cancel, _ := startLoop(t)
	defer cancel()

	done := false
	if err := loop.Invoke(func() {
		time.Sleep(20 * time.Millisecond)
		done = true
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Error("Invoke returned before the call finished")
	}
}

func TestLoop_SerializesCalls(t *testing.T) {
	loop, cancel, _ := startLoop(t)
	defer cancel()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = loop.Invoke(func() {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
			})
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("calls overlapped: max concurrency %d", maxActive)
	}
}

func TestLoop_RecoversPanics(t *testing.T) {
	loop, cancel, _ := startLoop(t)
	defer cancel()

	err := loop.Invoke(func() { panic("boom") })
	if err == nil {
		t.Fatal("expected the panic to surface as an error")
	}

	// loop must still be usable
	if err := loop.Invoke(func() {}); err != nil {
		t.Errorf("loop unusable after panic: %v", err)
	}
}

func TestLoop_InvokeAfterStop(t *testing.T) {
	loop, cancel, errCh := startLoop(t)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if err := loop.Invoke(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestLoop_RunTwice(t *testing.T) {
	loop, cancel, _ := startLoop(t)
	defer cancel()

	// make sure the first Run owns the loop
	_ = loop.Invoke(func() {})
	if err := loop.Run(context.Background()); err == nil {
		t.Error("expected an error when running the loop twice")
	}
}

func TestInline(t *testing.T) {
	ran := false
	if err := (Inline{}).Invoke(func() { ran = true }); err != nil || !ran {
		t.Errorf("Inline.Invoke: ran=%v err=%v", ran, err)
	}
	if err := (Inline{}).Invoke(func() { panic("x") }); err == nil {
		t.Error("expected panic converted to error")
	}
}
