package rate

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketBurst(t *testing.T) {
	tb := NewTokenBucket(1, 3)
	defer tb.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := tb.Wait(ctx); err != nil {
			t.Fatalf("burst wait %d: %v", i, err)
		}
	}
}

func TestTokenBucketStopReturns(t *testing.T) {
	tb := NewTokenBucket(1000, 1)

	stopped := make(chan struct{})
	go func() {
		tb.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the refill loop was signaled")
	}
}

func TestTokenBucketWaitCanceled(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	defer tb.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	cancel()
	if err := tb.Wait(ctx); err == nil {
		t.Fatal("expected error after cancel")
	}
}
