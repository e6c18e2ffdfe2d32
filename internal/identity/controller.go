package identity

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/veltacrm/whatsapp-bridge/internal/connection"
	"github.com/veltacrm/whatsapp-bridge/internal/store"
	typBridge "github.com/veltacrm/whatsapp-bridge/internal/types"
	"github.com/veltacrm/whatsapp-bridge/pkg/auth"
	"github.com/veltacrm/whatsapp-bridge/pkg/router"
	"github.com/veltacrm/whatsapp-bridge/pkg/transport"
)

type Controller struct {
	resolver    *Resolver
	connections *connection.Service
}

func NewController(resolver *Resolver, connections *connection.Service) *Controller {
	return &Controller{resolver: resolver, connections: connections}
}

// Resolve recovers a phone number for one contact, on demand from the
// contact view.
func (ctl *Controller) Resolve(c *fiber.Ctx) error {
	tenantID := auth.TenantID(c)

	var req typBridge.RequestResolveIdentity
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if strings.TrimSpace(req.ContactID) == "" {
		return router.ResponseBadRequest(c, "contact_id is required")
	}

	conn, err := ctl.connections.Resolve(c.UserContext(), tenantID, req.ConnectionID)
	if err != nil {
		if errors.Is(err, connection.ErrNoActiveConnection) {
			return router.ResponseBadRequest(c, connection.ErrNoActiveConnection.Error())
		}
		return router.ResponseInternalError(c, err.Error())
	}

	resp, err := ctl.resolver.Resolve(c.UserContext(), tenantID, req.ContactID, conn.SessionData)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return router.ResponseNotFound(c, "Contact not found")
		}
		var backendErr *transport.BackendError
		if errors.As(err, &backendErr) {
			return router.ResponseBadGateway(c, backendErr.Error())
		}
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseSuccessWithData(c, "Identity resolution complete", resp)
}
