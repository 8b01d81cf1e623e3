package ratelimit

import (
	"fmt"
	"log"
	"strconv"

	"github.com/example/roomchat/domain/ratelimit"
	"github.com/gofiber/fiber/v2"
)

// KeyFunc extracts the rate limit key from a request. An empty key lets
// the request through unlimited.
type KeyFunc func(c *fiber.Ctx) string

// Handler returns middleware that limits requests per key. Requests pass
// through while no limiter is installed and when the limiter fails.
func Handler(source func() ratelimit.Limiter, limit int, keyFn KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limiter := source()
		if limiter == nil {
			return c.Next()
		}

		key := keyFn(c)
		if key == "" {
			return c.Next()
		}

		result, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			log.Printf("[ratelimit] Check failed for %s, allowing request: %v", key, err)
			c.Set("X-RateLimit-Error", "unavailable")
			return c.Next()
		}

		setRateLimitHeaders(c, result, limit)

		if !result.Allowed {
			return sendRateLimitExceeded(c, result)
		}
		return c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(c *fiber.Ctx, result *ratelimit.Result, limit int) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// sendRateLimitExceeded sends a 429 Too Many Requests response.
func sendRateLimitExceeded(c *fiber.Ctx, result *ratelimit.Result) error {
	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	c.Set("Retry-After", strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":       "rate_limited",
		"message":     fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", retryAfter),
		"retry_after": retryAfter,
	})
}
