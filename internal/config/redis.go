package config

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server shared by the auth rate limiter and
// the search cache.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// RateLimitConfig sizes the per-client token bucket in front of
// /api/auth.  A client may spend Burst attempts at once and regains one
// every RefillEvery.
type RateLimitConfig struct {
	Enabled     bool
	Burst       int
	RefillEvery time.Duration
	Prefix      string
}

// SearchCacheConfig controls caching of provider search documents.
type SearchCacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

func loadRedis() RedisConfig {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = net.JoinHostPort(host, port)
	}
	return RedisConfig{
		Enabled:  envBool("REDIS_ENABLED", true),
		Addr:     addr,
		Password: envStr("REDIS_PASSWORD", ""),
		DB:       envInt("REDIS_DB", 0),
		TLS:      envBool("REDIS_TLS", false),
	}
}

func loadRateLimit() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:     envBool("RATE_LIMIT_ENABLED", true),
		Burst:       envInt("RATE_LIMIT_BURST", 20),
		RefillEvery: envDur("RATE_LIMIT_REFILL_EVERY", 3*time.Second),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "tripbook:rl"),
	}
	if rl.Burst < 1 {
		rl.Burst = 1
	}
	if rl.RefillEvery <= 0 {
		rl.RefillEvery = time.Second
	}
	return rl
}

func loadSearchCache() SearchCacheConfig {
	sc := SearchCacheConfig{
		Enabled:      envBool("SEARCH_CACHE_ENABLED", true),
		TTL:          envDur("SEARCH_CACHE_TTL", 60*time.Second),
		Prefix:       envStr("SEARCH_CACHE_PREFIX", "tripbook:search"),
		MaxBodyBytes: envInt("SEARCH_CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if sc.TTL <= 0 {
		sc.Enabled = false
	}
	return sc
}

// NewRedisClient connects to Redis and pings it.  It returns nil when Redis
// is disabled or unreachable; every consumer treats a nil client as
// "feature off" and keeps serving.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger *slog.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}
	client := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		logger.Warn("redis unavailable; auth rate limiting and search cache disabled",
			slog.String("addr", cfg.Addr), slog.Any("error", err))
		_ = client.Close()
		return nil
	}
	return client
}
