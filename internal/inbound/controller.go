package inbound

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	typBridge "github.com/veltacrm/whatsapp-bridge/internal/types"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
	"github.com/veltacrm/whatsapp-bridge/pkg/router"
)

type Controller struct {
	svc *Service
}

func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

// Receive is the daemon-facing webhook endpoint, authenticated by service
// API key rather than a tenant token.
func (ctl *Controller) Receive(c *fiber.Ctx) error {
	var payload typBridge.InboundWebhook
	if err := c.BodyParser(&payload); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if strings.TrimSpace(payload.Session) == "" && strings.TrimSpace(payload.TenantID) == "" {
		return router.ResponseBadRequest(c, "session or tenantId is required")
	}
	if strings.TrimSpace(payload.From) == "" {
		return router.ResponseBadRequest(c, "from is required")
	}
	if strings.TrimSpace(payload.MessageID) == "" {
		return router.ResponseBadRequest(c, "messageId is required")
	}

	msg, err := ctl.svc.Receive(c.UserContext(), &payload)
	if err != nil {
		if errors.Is(err, ErrUnknownSession) {
			return router.ResponseNotFound(c, ErrUnknownSession.Error())
		}
		log.Print(c).Error("Failed process inbound webhook: ", err)
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseCreatedWithData(c, "Inbound message recorded", msg)
}
