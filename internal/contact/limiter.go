package contact

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/crestline/perf/pkg/logger"
	"github.com/crestline/perf/pkg/redis"
)

// Limiter throttles submissions per client key. The in-process token bucket
// always applies; the Redis sliding window applies when Redis is enabled so
// the limit holds across instances.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	every   rate.Limit
	burst   int

	shared *redis.RateLimiter
	limit  int
	window time.Duration

	logger *logger.Logger
	now    func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter allows limit submissions per window per client
func NewLimiter(limit int, window time.Duration, shared *redis.RateLimiter, log *logger.Logger) *Limiter {
	return &Limiter{
		clients: make(map[string]*clientLimiter),
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		shared:  shared,
		limit:   limit,
		window:  window,
		logger:  log,
		now:     time.Now,
	}
}

// Allow consumes one submission for key
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if !l.local(key).AllowN(l.now(), 1) {
		return false
	}

	if l.shared == nil {
		return true
	}

	d, err := l.shared.Allow(ctx, redis.ContactRule(key, l.limit, l.window))
	if err != nil {
		// Redis outage: the local bucket already applied
		l.logger.WithError(err).Warn("Shared rate limit unavailable")
		return true
	}
	if !d.Allowed {
		l.logger.WithFields(map[string]interface{}{
			"client":      key,
			"retry_after": d.RetryAfter.Round(time.Second).String(),
		}).Info("Shared rate limit reached")
	}
	return d.Allowed
}

func (l *Limiter) local(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = l.now()
	return c.limiter
}

// Cleanup forgets clients idle for longer than the window
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.window {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Clients returns how many client buckets are tracked
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.clients)
}
