package tower

import (
	"context"
	"sync"
)

// sessionLocks serializes work on one session id inside this process. Entries are
// reference counted and dropped once nobody holds or waits on them.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// lockEntry is a one-slot semaphore so waiters can give up when ctx ends.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[string]*lockEntry)}
}

// lock waits until id is free or ctx is done and returns the matching unlock.
func (l *sessionLocks) lock(ctx context.Context, id string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, Persistence("lock session", err)
	}
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(id, e)
		return nil, Persistence("lock session", ctx.Err())
	}
	return func() {
		<-e.sem
		l.release(id, e)
	}, nil
}

func (l *sessionLocks) release(id string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}
