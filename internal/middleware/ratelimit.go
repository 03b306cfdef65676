package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tripbook/internal/config"
	"github.com/iliyamo/tripbook/internal/metrics"
)

// bucketScript refills and spends one token atomically.  Tokens are stored
// fractionally so refill is continuous rather than stepwise.
//
// KEYS[1] bucket key
// ARGV    now_ms, burst, refill_every_ms, ttl_ms
// returns {allowed (0|1), whole tokens left, ms until next token}
var bucketScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local every = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
if now > ts then
  tokens = math.min(burst, tokens + (now - ts) / every)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) * every)
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', tostring(math.max(now, ts)))
redis.call('PEXPIRE', KEYS[1], ttl)
return {allowed, math.floor(tokens), wait}
`)

// RateLimiter throttles credential endpoints per client address and route.
// Buckets live in Redis so every instance shares one budget.  Redis errors
// let the request through.
type RateLimiter struct {
	cfg    config.RateLimitConfig
	rdb    *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{cfg: cfg, rdb: rdb, logger: logger, now: time.Now}
}

type bucketDecision struct {
	allowed    bool
	remaining  int64
	retryAfter time.Duration
}

func (l *RateLimiter) take(ctx context.Context, key string) (bucketDecision, error) {
	every := l.cfg.RefillEvery.Milliseconds()
	ttl := every * int64(l.cfg.Burst+1)
	vals, err := bucketScript.Run(ctx, l.rdb, []string{key},
		l.now().UnixMilli(), l.cfg.Burst, every, ttl).Int64Slice()
	if err != nil {
		return bucketDecision{}, err
	}
	return decodeBucketReply(vals)
}

func decodeBucketReply(vals []int64) (bucketDecision, error) {
	if len(vals) != 3 {
		return bucketDecision{}, fmt.Errorf("rate limit: unexpected reply %v", vals)
	}
	return bucketDecision{
		allowed:    vals[0] == 1,
		remaining:  max(vals[1], 0),
		retryAfter: time.Duration(max(vals[2], 0)) * time.Millisecond,
	}, nil
}

// Middleware returns the echo middleware.  It is a pass-through when the
// limiter is disabled or has no Redis client.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	if l == nil || !l.cfg.Enabled || l.rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(l.cfg.Prefix, c.RealIP(), c.Request().Method+" "+c.Path())

			d, err := l.take(ctx, key)
			if err != nil {
				l.logger.WarnContext(ctx, "rate limiter unavailable, allowing request", slog.Any("error", err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Burst))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if d.allowed {
				return next(c)
			}

			secs := max(int(math.Ceil(d.retryAfter.Seconds())), 1)
			h.Set("Retry-After", strconv.Itoa(secs))
			metrics.ObserveRateLimited(c.Path())
			l.logger.InfoContext(ctx, "rate limited", slog.String("key", key), slog.Int("retry_after", secs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too many attempts, try again later",
				"retry_after": secs,
			})
		}
	}
}

func rateKey(prefix, ip, route string) string {
	if ip == "" {
		ip = "unknown"
	}
	return prefix + ":" + ip + ":" + route
}
