package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tripbook/internal/config"
	"github.com/iliyamo/tripbook/internal/metrics"
)

// SearchCache keeps successful provider documents in Redis for a short TTL.
// Identical searches, whatever the order of their query parameters, are
// served from one entry.  Only 200 JSON bodies are stored.
type SearchCache struct {
	cfg    config.SearchCacheConfig
	rdb    *redis.Client
	logger *slog.Logger
}

func NewSearchCache(cfg config.SearchCacheConfig, rdb *redis.Client, logger *slog.Logger) *SearchCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchCache{cfg: cfg, rdb: rdb, logger: logger}
}

// searchKey is prefix:route:sha256(sorted query).
func searchKey(prefix, route string, q url.Values) string {
	sum := sha256.Sum256([]byte(q.Encode()))
	return prefix + ":" + route + ":" + hex.EncodeToString(sum[:])
}

// bodyRecorder tees the response body into buf until limit bytes.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.overflow = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// Middleware returns the echo middleware; a pass-through when the cache is
// disabled or Redis is absent.
func (s *SearchCache) Middleware() echo.MiddlewareFunc {
	if s == nil || !s.cfg.Enabled || s.rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet || req.Header.Get(echo.HeaderAuthorization) != "" {
				return next(c)
			}
			ctx := req.Context()
			key := searchKey(s.cfg.Prefix, c.Path(), req.URL.Query())

			body, err := s.rdb.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				metrics.ObserveSearchCache("hit")
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			case !errors.Is(err, redis.Nil):
				s.logger.WarnContext(ctx, "search cache read failed", slog.Any("error", err))
			}
			metrics.ObserveSearchCache("miss")

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: s.cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow || rec.buf.Len() == 0 {
				return nil
			}
			if err := s.rdb.Set(context.WithoutCancel(ctx), key, rec.buf.Bytes(), s.cfg.TTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "search cache write failed", slog.Any("error", err))
			}
			return nil
		}
	}
}
