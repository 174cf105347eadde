// Package ratelimit throttles login-link requests so the mail sender cannot
// be used to flood an inbox.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key is allowed. When it is
// not, the returned duration says how long the caller should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

// NewMemoryLimiter allows requests events per window per key.
func NewMemoryLimiter(requests int, window time.Duration) *MemoryLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		idleTTL:  2 * window,
		now:      time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if key == "" {
		key = "unknown"
	}
	now := m.now()

	m.mu.Lock()
	v, exists := m.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = now
	m.cleanupLocked(now)
	m.mu.Unlock()

	reservation := v.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Second, nil
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// cleanupLocked drops visitors idle for longer than idleTTL.
func (m *MemoryLimiter) cleanupLocked(now time.Time) {
	cutoff := now.Add(-m.idleTTL)
	for key, v := range m.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(m.visitors, key)
		}
	}
}

// RedisLimiter is a fixed-window counter shared by every server instance.
type RedisLimiter struct {
	client   redis.UniversalClient
	prefix   string
	requests int64
	window   time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, requests int, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{
		client:   client,
		prefix:   prefix,
		requests: int64(requests),
		window:   window,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", r.prefix, key)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit increment failed: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit expire failed: %w", err)
		}
	}
	if count <= r.requests {
		return true, 0, nil
	}

	ttl, err := r.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit ttl failed: %w", err)
	}
	if ttl < 0 {
		// Key lost its expiry; restore it so the window can close.
		_ = r.client.Expire(ctx, redisKey, r.window).Err()
		ttl = r.window
	}
	return false, ttl, nil
}
