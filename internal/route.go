package internal

import (
	"github.com/gofiber/fiber/v2"
	swagger "github.com/gofiber/swagger"

	"github.com/veltacrm/whatsapp-bridge/pkg/auth"
	"github.com/veltacrm/whatsapp-bridge/pkg/router"

	ctlIndex "github.com/veltacrm/whatsapp-bridge/internal/index"
)

func Routes(app *fiber.App, a *App) {
	// Configure OpenAPI / Swagger
	specURL := router.BaseURL + "/docs/swagger.json"
	swaggerHandler := swagger.New(swagger.Config{
		URL: specURL,
	})

	// Route for Index
	// ---------------------------------------------
	if router.BaseURL == "" {
		app.Get("/", ctlIndex.Index)
	} else {
		app.Get(router.BaseURL, ctlIndex.Index)
		app.Get(router.BaseURL+"/", ctlIndex.Index)
	}

	// Route for OpenAPI / Swagger
	// ---------------------------------------------
	app.Get(router.BaseURL+"/docs/swagger.json", func(c *fiber.Ctx) error {
		return c.SendFile("docs/swagger.json")
	})
	app.Get(router.BaseURL+"/docs/*", swaggerHandler)

	// ============================================================
	// TENANT ROUTES (JWT Bearer authentication)
	// ============================================================
	tenant := auth.TenantAuth()

	// Connection lifecycle
	app.Post(router.BaseURL+"/connections", tenant, a.Connections.Create)
	app.Get(router.BaseURL+"/connections", tenant, a.Connections.List)
	app.Get(router.BaseURL+"/connections/:connection_id/qr", tenant, a.Connections.QRCode)
	app.Get(router.BaseURL+"/connections/:connection_id/status", tenant, a.Connections.CheckStatus)
	app.Post(router.BaseURL+"/connections/:connection_id/disconnect", tenant, a.Connections.Disconnect)
	app.Post(router.BaseURL+"/connections/:connection_id/recreate", tenant, a.Connections.Recreate)
	app.Delete(router.BaseURL+"/connections/:connection_id", tenant, a.Connections.Delete)

	// Outbound messaging
	app.Post(router.BaseURL+"/messages", tenant, a.Messaging.Send)
	app.Post(router.BaseURL+"/messages/reaction", tenant, a.Messaging.React)

	// Media retrieval
	app.Post(router.BaseURL+"/media/retrieve", tenant, a.Media.Retrieve)

	// Identity recovery
	app.Post(router.BaseURL+"/contacts/resolve-identity", tenant, a.Identity.Resolve)
	app.Post(router.BaseURL+"/contacts/reconcile", tenant, a.Reconcile.Run)

	// ============================================================
	// SERVICE ROUTES (X-API-Key authentication)
	// ============================================================
	service := auth.ServiceAuth()

	app.Post(router.BaseURL+"/webhooks/inbound", service, a.Inbound.Receive)
	app.Post(router.BaseURL+"/connections/sweep", service, a.Connections.HealthSweep)
}
