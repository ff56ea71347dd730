package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/doorcalc/internal/config"
	obsmetrics "github.com/smallbiznis/doorcalc/internal/observability/metrics"
	"go.uber.org/zap"
)

var ErrRateLimited = errors.New("rate_limited")

const documentKeyPrefix = "doorcalc:ratelimit:documents:"

// Limiter decides whether a client may render another document.
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (Result, error)
}

// DocumentLimiter throttles PDF and spreadsheet rendering per client. A nil
// or unconfigured limiter allows everything.
type DocumentLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewDocumentLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *DocumentLimiter {
	return &DocumentLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.DocumentRateLimit,
		burst:  cfg.DocumentRateBurst,
		log:    log.Named("ratelimit.documents"),
	}
}

func (d *DocumentLimiter) Allow(ctx context.Context, clientKey string) (Result, error) {
	if d == nil || d.bucket == nil || d.rate <= 0 || d.burst <= 0 {
		return Result{Allowed: true}, nil
	}
	return d.bucket.Allow(ctx, documentKeyPrefix+clientKey, d.rate, d.burst)
}

// GinMiddleware aborts over-limit requests with ErrRateLimited for the error
// middleware to render.
// Limiter failures let the request through.
func GinMiddleware(l Limiter, m *obsmetrics.RateLimitMetrics, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		route := c.FullPath()
		res, err := l.Allow(ctx, c.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
			m.RecordDenied(ctx, route, "error")
			c.Next()
			return
		}
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			m.RecordDenied(ctx, route, "limited")
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(res)))
			_ = c.Error(ErrRateLimited)
			c.Abort()
			return
		}
		m.RecordAllowed(ctx, route)
		c.Next()
	}
}

func retryAfterSeconds(res Result) int {
	seconds := int(math.Ceil(res.RetryAfter.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
