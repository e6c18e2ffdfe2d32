package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
)

// HttpCacheInMemory memoizes GET responses for a few seconds. The CRM
// frontend polls connection status and QR reads aggressively while a session
// pairs; a short reuse window absorbs those bursts without visible staleness
// against the five minute health sweep. Mutating verbs and the swagger assets
// bypass the cache.
func HttpCacheInMemory(ttl int) fiber.Handler {
	if ttl <= 0 {
		ttl = 5
	}
	return cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || strings.HasPrefix(c.Path(), BaseURL+"/docs")
		},
		Expiration:   time.Duration(ttl) * time.Second,
		CacheControl: true,
	})
}
