package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"teammatcher/apperr"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	release, ok, err := l.TryAcquire(ctx, "team:1")
	if err != nil || !ok {
		t.Fatalf("first TryAcquire: ok=%v err=%v", ok, err)
	}

	if _, ok, _ := l.TryAcquire(ctx, "team:1"); ok {
		t.Fatal("second TryAcquire on held lock succeeded")
	}

	// Unrelated keys are independent.
	release2, ok, _ := l.TryAcquire(ctx, "team:2")
	if !ok {
		t.Fatal("TryAcquire on unrelated key failed")
	}
	release2()

	release()
	if _, ok, _ := l.TryAcquire(ctx, "team:1"); !ok {
		t.Fatal("TryAcquire after release failed")
	}
}

func TestMemoryLockerAcquireTimesOut(t *testing.T) {
	l := NewMemoryLocker()
	release, err := l.Acquire(context.Background(), "team:9")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "team:9"); apperr.CodeOf(err) != apperr.CodeUnavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}

func TestMemoryLockerAcquireHandsOff(t *testing.T) {
	l := NewMemoryLocker()
	release, err := l.Acquire(context.Background(), "team:3")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		r, err := l.Acquire(ctx, "team:3")
		if err != nil {
			t.Errorf("waiter Acquire: %v", err)
			return
		}
		r()
	}()

	time.Sleep(10 * time.Millisecond)
	release()
	wg.Wait()
}
