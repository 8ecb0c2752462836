package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a sliding-window limiter shared by every instance
// ⭐ SSOT: shared rate limiting lives here
type RateLimiter struct {
	client *Client
	prefix string
	seq    atomic.Uint64
	now    func() time.Time
}

// Rule is one limit: at most Limit hits per Window for Key
type Rule struct {
	Key    string // e.g. "contact:203.0.113.7"
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a single check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// slidingWindow drops expired hits, then records this one if there is room.
// Returns {allowed, remaining, oldest hit in ms}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local member = ARGV[4]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window_ms)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, 0, tonumber(oldest[2])}
`)

// Allow records one hit against rule. With Redis disabled every hit passes.
func (r *RateLimiter) Allow(ctx context.Context, rule Rule) (Decision, error) {
	if !r.client.Enabled() {
		return Decision{Allowed: true, Remaining: rule.Limit}, nil
	}

	now := r.now().UnixMilli()
	windowMs := rule.Window.Milliseconds()
	// Unique member so hits in the same millisecond are counted separately
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatUint(r.seq.Add(1), 10)

	res, err := slidingWindow.Run(ctx, r.client.Redis(), []string{r.key(rule.Key)},
		now, windowMs, rule.Limit, member,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}

	d := Decision{
		Allowed:   res[0] == 1,
		Remaining: int(res[1]),
	}
	if !d.Allowed && res[2] > 0 {
		d.RetryAfter = time.Duration(res[2]+windowMs-now) * time.Millisecond
	}
	return d, nil
}

func (r *RateLimiter) key(k string) string {
	return fmt.Sprintf("%s:ratelimit:%s", r.prefix, k)
}

// ContactRule builds the per-client rule for contact submissions
func ContactRule(clientKey string, limit int, window time.Duration) Rule {
	return Rule{
		Key:    "contact:" + clientKey,
		Limit:  limit,
		Window: window,
	}
}
