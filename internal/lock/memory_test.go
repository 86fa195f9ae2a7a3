package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryLockExcludesSameKey(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, VideoKey("v1"))
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			defer unlock()
			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxActive)
	}
	if m.held() != 0 {
		t.Errorf("held() = %d after all unlocks, want 0", m.held())
	}
}

func TestMemoryLockDifferentKeysIndependent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	unlockA, err := m.Lock(ctx, VideoKey("a"))
	if err != nil {
		t.Fatalf("Lock(a) error = %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := m.Lock(ctx, VideoKey("b"))
	if err != nil {
		t.Fatalf("Lock(b) blocked by a: %v", err)
	}
	unlockB()
}

func TestMemoryLockHonoursContext(t *testing.T) {
	m := NewMemory()
	unlock, err := m.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lock() on held key error = %v, want DeadlineExceeded", err)
	}

	unlock()
	unlock()
	if m.held() != 0 {
		t.Errorf("held() = %d, want 0", m.held())
	}
}
