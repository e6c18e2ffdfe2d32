package reconcile

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/veltacrm/whatsapp-bridge/internal/connection"
	typBridge "github.com/veltacrm/whatsapp-bridge/internal/types"
	"github.com/veltacrm/whatsapp-bridge/pkg/auth"
	"github.com/veltacrm/whatsapp-bridge/pkg/router"
	"github.com/veltacrm/whatsapp-bridge/pkg/transport"
)

type Controller struct {
	sweeper     *Sweeper
	connections *connection.Service
}

func NewController(sweeper *Sweeper, connections *connection.Service) *Controller {
	return &Controller{sweeper: sweeper, connections: connections}
}

// Run triggers a reconciliation sweep for the caller's tenant.
func (ctl *Controller) Run(c *fiber.Ctx) error {
	tenantID := auth.TenantID(c)

	var req typBridge.RequestReconcile
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}

	conn, err := ctl.connections.Resolve(c.UserContext(), tenantID, req.ConnectionID)
	if err != nil {
		if errors.Is(err, connection.ErrNoActiveConnection) {
			return router.ResponseBadRequest(c, connection.ErrNoActiveConnection.Error())
		}
		return router.ResponseInternalError(c, err.Error())
	}

	report, err := ctl.sweeper.Run(c.UserContext(), tenantID, conn.SessionData)
	if err != nil {
		var backendErr *transport.BackendError
		if errors.As(err, &backendErr) {
			return router.ResponseBadGateway(c, backendErr.Error())
		}
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseSuccessWithData(c, "Reconciliation sweep complete", report)
}
