package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/veltacrm/whatsapp-bridge/pkg/env"
	"github.com/veltacrm/whatsapp-bridge/pkg/router"
)

// ServiceAPIKey authenticates job/scheduler invocations (X-API-Key header).
// Empty means service auth is disabled, e.g. behind a trusted proxy.
var ServiceAPIKey string

func init() {
	ServiceAPIKey, _ = env.GetEnvString("SERVICE_API_KEY")
}

// ServiceAuth guards routes invoked by internal jobs (sweeps, campaign sender).
func ServiceAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ServiceAPIKey == "" {
			return c.Next()
		}
		provided := strings.TrimSpace(c.Get("X-API-Key"))
		if provided == "" {
			return router.ResponseUnauthorized(c, "Missing X-API-Key header")
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(ServiceAPIKey)) != 1 {
			return router.ResponseForbidden(c, "Invalid API key")
		}
		return c.Next()
	}
}

// TenantAuth validates the tenant bearer token and stores tenant context in
// locals for the handlers below it.
func TenantAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get("Authorization"))
		if header == "" {
			return router.ResponseUnauthorized(c, "Missing Authorization header")
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return router.ResponseUnauthorized(c, "Authorization header must be a Bearer token")
		}

		claims, err := ValidateTenantToken(strings.TrimSpace(parts[1]))
		if err != nil {
			return router.ResponseUnauthorized(c, "Invalid token: "+err.Error())
		}

		c.Locals("tenant_id", claims.TenantID)
		c.Locals("tenant_role", claims.Role)
		return c.Next()
	}
}

// TenantID extracts the authenticated tenant from locals.
func TenantID(c *fiber.Ctx) string {
	if v := c.Locals("tenant_id"); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
