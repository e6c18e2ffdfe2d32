package connection

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/veltacrm/whatsapp-bridge/internal/store"
	typBridge "github.com/veltacrm/whatsapp-bridge/internal/types"
	"github.com/veltacrm/whatsapp-bridge/pkg/auth"
	"github.com/veltacrm/whatsapp-bridge/pkg/router"
	"github.com/veltacrm/whatsapp-bridge/pkg/transport"
)

type Controller struct {
	svc *Service
}

func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

// Create starts the pairing flow. A backend timeout maps to 408 without
// touching the stored status; other backend failures surface verbatim.
func (ctl *Controller) Create(c *fiber.Ctx) error {
	tenantID := auth.TenantID(c)

	var req typBridge.RequestCreateConnection
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if strings.TrimSpace(req.Name) == "" {
		return router.ResponseBadRequest(c, "Connection name is required")
	}

	conn, err := ctl.svc.Create(c.UserContext(), tenantID, strings.TrimSpace(req.Name), req.IsDefault)
	if err != nil {
		if errors.Is(err, ErrCreateTimeout) {
			return router.ResponseRequestTimeout(c, err.Error())
		}
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseCreatedWithData(c, "Connection created", conn)
}

func (ctl *Controller) List(c *fiber.Ctx) error {
	connections, err := ctl.svc.List(c.UserContext(), auth.TenantID(c))
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "Success get connections", connections)
}

func (ctl *Controller) QRCode(c *fiber.Ctx) error {
	dataURI, timeout, err := ctl.svc.QRCode(c.UserContext(), auth.TenantID(c), c.Params("connection_id"))
	if err != nil {
		return backendError(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success generate QR code", typBridge.ResponseQRCode{
		QRCode:  dataURI,
		Timeout: timeout,
	})
}

func (ctl *Controller) CheckStatus(c *fiber.Ctx) error {
	conn, err := ctl.svc.CheckStatus(c.UserContext(), auth.TenantID(c), c.Params("connection_id"))
	if err != nil {
		return backendError(c, err)
	}
	return router.ResponseSuccessWithData(c, "Connection status", conn)
}

func (ctl *Controller) Disconnect(c *fiber.Ctx) error {
	if err := ctl.svc.Disconnect(c.UserContext(), auth.TenantID(c), c.Params("connection_id")); err != nil {
		return backendError(c, err)
	}
	return router.ResponseSuccess(c, "Success disconnect connection")
}

func (ctl *Controller) Delete(c *fiber.Ctx) error {
	if err := ctl.svc.Delete(c.UserContext(), auth.TenantID(c), c.Params("connection_id")); err != nil {
		return backendError(c, err)
	}
	return router.ResponseSuccess(c, "Success delete connection")
}

func (ctl *Controller) Recreate(c *fiber.Ctx) error {
	conn, err := ctl.svc.Recreate(c.UserContext(), auth.TenantID(c), c.Params("connection_id"))
	if err != nil {
		if errors.Is(err, ErrCreateTimeout) {
			return router.ResponseRequestTimeout(c, err.Error())
		}
		return backendError(c, err)
	}
	return router.ResponseSuccessWithData(c, "Connection recreated", conn)
}

// HealthSweep is the handler form of the periodic sweep, for job runners.
func (ctl *Controller) HealthSweep(c *fiber.Ctx) error {
	report := ctl.svc.HealthSweep(c.UserContext())
	return router.ResponseSuccessWithData(c, "Health sweep complete", report)
}

// backendError maps store and backend failures onto the envelope: missing
// records are 404, gateway-reported failures keep their text verbatim.
func backendError(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return router.ResponseNotFound(c, "Connection not found")
	}
	var backendErr *transport.BackendError
	if errors.As(err, &backendErr) {
		return router.ResponseBadGateway(c, backendErr.Error())
	}
	return router.ResponseInternalError(c, err.Error())
}
