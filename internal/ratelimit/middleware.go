package ratelimit

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/observability"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// MiddlewareConfig tunes the fiber handler.
type MiddlewareConfig struct {
	// FailOpen admits requests when Redis is unreachable.
	FailOpen bool
	Message  string
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	// KeyFunc defaults to the client IP.
	KeyFunc func(*fiber.Ctx) string
}

// Middleware rejects requests over the limit with RATE_LIMITED.
func Middleware(l *Limiter, cfg MiddlewareConfig) fiber.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *fiber.Ctx) string { return c.IP() }
	}
	if cfg.Message == "" {
		cfg.Message = "too many requests, please try again later"
	}

	return func(c *fiber.Ctx) error {
		result, err := l.Allow(c.UserContext(), cfg.KeyFunc(c))
		if err != nil {
			if cfg.FailOpen {
				cfg.Logger.Warn("rate limiter unavailable; admitting request",
					zap.String("limiter", l.Name()), zap.Error(err))
				return c.Next()
			}
			cfg.Logger.Error("rate limiter unavailable; rejecting request",
				zap.String("limiter", l.Name()), zap.Error(err))
			return apperrors.NewStoreUnavailable(err)
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			cfg.Metrics.RecordRateLimited(l.Name())
			return apperrors.NewRateLimited(cfg.Message, map[string]any{"retry_after_seconds": retryAfter})
		}
		return c.Next()
	}
}
