package tower

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionLocksHonourContext(t *testing.T) {
	locks := newSessionLocks()
	unlock, err := locks.lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locks.lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) || KindOf(err) != KindPersistence {
		t.Fatalf("waiting on a held lock = %v, want deadline exceeded", err)
	}

	// other ids are independent
	unlockB, err := locks.lock(ctx, "b")
	if err != nil {
		t.Fatalf("lock b: %v", err)
	}
	unlockB()

	unlock()
	if len(locks.entries) != 0 {
		t.Errorf("entries = %d after all unlocks, want 0", len(locks.entries))
	}
}

func TestSessionLocksHandOver(t *testing.T) {
	locks := newSessionLocks()
	unlock, err := locks.lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		next, err := locks.lock(context.Background(), "a")
		if err != nil {
			t.Errorf("second lock: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		next()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}
