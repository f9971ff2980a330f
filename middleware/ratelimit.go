package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig stores the request rate limit configuration
type RateLimitConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RedisAddr string `yaml:"redis_addr"`
	Max       int64  `yaml:"max"`
	WindowSec int64  `yaml:"window_seconds"`
}

// RateLimit limits the number of requests one client IP can make inside a
// fixed window, counted in redis. With the limiter disabled, or without a
// redis client, requests pass through untouched. When redis is unreachable
// the request is allowed, the limiter must not take the API down with it.
func (m *GoMiddleware) RateLimit(cfg RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}

	window := time.Duration(cfg.WindowSec) * time.Second

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := fmt.Sprintf("ratelimit:%s", c.RealIP())

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				m.logger.Warn("rate limiter unavailable", zap.Error(err))
				return next(c)
			}
			if count == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					m.logger.Warn("rate limiter expire failed", zap.Error(err))
				}
			}

			remaining := cfg.Max - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatInt(cfg.Max, 10))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > cfg.Max {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests from this IP, please try again in an hour")
			}

			return next(c)
		}
	}
}
