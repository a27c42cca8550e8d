// Package ratelimit throttles requests per client key, in memory or through Redis.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"medious/internal/common"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type MemoryLimiter struct {
	limiters map[string]*entry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(requestsPerSecond, burst int) *MemoryLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &MemoryLimiter{
		limiters: make(map[string]*entry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Cleanup drops limiters that have not been used for the idle period.
func (rl *MemoryLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	removed := 0
	for key, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

func (rl *MemoryLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RedisLimiter is a fixed-window counter shared by every API instance.
type RedisLimiter struct {
	rdb    redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb redis.Cmdable, limit int64, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, prefix: "medious:rl:", now: time.Now}
}

// windowKey buckets the counter by window so each key expires on its own.
func (l *RedisLimiter) windowKey(key string) string {
	slot := l.now().UnixNano() / int64(l.window)
	return l.prefix + key + ":" + strconv.FormatInt(slot, 10)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.windowKey(key)
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= l.limit, nil
}

// ClientKey is the remote IP without the port.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware answers 429 when the limiter refuses. Limiter errors let the request through.
func Middleware(l Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			ok, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				logger.Info("rate limit exceeded",
					zap.String("key", key),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method))
				common.WriteError(w, logger, common.NewHTTPError(http.StatusTooManyRequests, "Too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
