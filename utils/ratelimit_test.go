package utils

import (
	"context"
	"testing"
	"time"
)

func TestLocalLimiterBurst(t *testing.T) {
	l := NewLocalLimiter(0.001, 3)
	defer l.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, "u1"); !ok {
			t.Fatalf("request %d rejected inside burst", i)
		}
	}
	if ok, _ := l.Allow(ctx, "u1"); ok {
		t.Error("request past burst allowed")
	}
	if ok, _ := l.Allow(ctx, "u2"); !ok {
		t.Error("other user throttled by u1")
	}
}

func TestLocalLimiterPrune(t *testing.T) {
	l := NewLocalLimiter(1, 1)
	defer l.Close()
	_, _ = l.Allow(context.Background(), "u1")

	if n := l.prune(time.Now()); n != 0 {
		t.Errorf("pruned %d fresh buckets", n)
	}
	if n := l.prune(time.Now().Add(time.Hour)); n != 1 {
		t.Errorf("pruned %d idle buckets, want 1", n)
	}
}

func TestRedisLimiterKey(t *testing.T) {
	l := NewRedisLimiter(nil, 2, 4)
	if l.maxHits != 4 {
		t.Errorf("maxHits = %d, want 4", l.maxHits)
	}
	got := l.key("42", time.Unix(1700000000, 0))
	if got != "skyrush:ratelimit:42:1700000000" {
		t.Errorf("key = %q", got)
	}
}
