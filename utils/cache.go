package utils

import (
	"sync"
	"time"

	"skyrush/models"
)

// LeaderboardCache holds the last leaderboard query so a busy channel does not hit
// the database on every request.
type LeaderboardCache struct {
	mutex     sync.RWMutex
	entries   []models.Account
	limit     int
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func NewLeaderboardCache(ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{ttl: ttl, now: time.Now}
}

// Get returns a copy of the cached board when it was stored for the same limit and
// has not expired.
func (c *LeaderboardCache) Get(limit int) ([]models.Account, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.entries == nil || c.limit != limit || c.now().After(c.expiresAt) {
		return nil, false
	}
	// Return a copy to prevent external modifications
	out := make([]models.Account, len(c.entries))
	copy(out, c.entries)
	return out, true
}

// Set stores entries for limit
func (c *LeaderboardCache) Set(limit int, entries []models.Account) {
	stored := make([]models.Account, len(entries))
	copy(stored, entries)

	c.mutex.Lock()
	c.entries = stored
	c.limit = limit
	c.expiresAt = c.now().Add(c.ttl)
	c.mutex.Unlock()
}

// Invalidate drops the cached board
func (c *LeaderboardCache) Invalidate() {
	c.mutex.Lock()
	c.entries = nil
	c.mutex.Unlock()
}
