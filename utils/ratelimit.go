package utils

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether a user may trigger another interaction now.
type Limiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

// LocalLimiter keeps one token bucket per user in memory. Idle buckets are pruned
// by a background ticker until Close is called.
type LocalLimiter struct {
	limit   rate.Limit
	burst   int
	idle    time.Duration
	mu      sync.Mutex
	buckets map[string]*bucket
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(perSecond float64, burst int) *LocalLimiter {
	l := &LocalLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    10 * time.Minute,
		buckets: make(map[string]*bucket),
		ticker:  time.NewTicker(time.Minute),
		done:    make(chan struct{}),
	}
	go l.cleanupRoutine()
	return l
}

func (l *LocalLimiter) Allow(_ context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow(), nil
}

func (l *LocalLimiter) Close() {
	l.once.Do(func() {
		l.ticker.Stop()
		close(l.done)
	})
}

func (l *LocalLimiter) cleanupRoutine() {
	for {
		select {
		case <-l.ticker.C:
			l.prune(time.Now())
		case <-l.done:
			return
		}
	}
}

func (l *LocalLimiter) prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.buckets, id)
			removed++
		}
	}
	return removed
}

// RedisLimiter shares a fixed one-second window per user across bot replicas.
type RedisLimiter struct {
	client  *redis.Client
	maxHits int64
	prefix  string
}

func NewRedisLimiter(client *redis.Client, perSecond float64, burst int) *RedisLimiter {
	hits := int64(math.Ceil(perSecond))
	if int64(burst) > hits {
		hits = int64(burst)
	}
	return &RedisLimiter{client: client, maxHits: hits, prefix: "skyrush:ratelimit"}
}

func (l *RedisLimiter) key(userID string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%d", l.prefix, userID, now.Unix())
}

func (l *RedisLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := l.key(userID, time.Now())
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", userID, err)
	}
	return incr.Val() <= l.maxHits, nil
}

// ConnectRedis parses url and checks the server answers.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}
