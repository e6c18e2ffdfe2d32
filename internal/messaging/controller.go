package messaging

import (
	"errors"
	"strings"

	"github.com/forPelevin/gomoji"
	"github.com/gofiber/fiber/v2"
	"github.com/rivo/uniseg"

	"github.com/veltacrm/whatsapp-bridge/internal/connection"
	typBridge "github.com/veltacrm/whatsapp-bridge/internal/types"
	"github.com/veltacrm/whatsapp-bridge/pkg/auth"
	"github.com/veltacrm/whatsapp-bridge/pkg/router"
	"github.com/veltacrm/whatsapp-bridge/pkg/transport"
	"github.com/veltacrm/whatsapp-bridge/pkg/validation"
)

type Controller struct {
	svc *Service
}

func NewController(svc *Service) *Controller {
	return &Controller{svc: svc}
}

// Send accepts an outbound text or media message.
func (ctl *Controller) Send(c *fiber.Ctx) error {
	tenantID := auth.TenantID(c)

	var req typBridge.RequestSendMessage
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		return router.ResponseBadRequest(c, "conversation_id is required")
	}
	if err := validateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	msgType := strings.ToLower(strings.TrimSpace(req.Type))
	if (msgType == "" || msgType == "text") && strings.TrimSpace(req.Text) == "" {
		return router.ResponseBadRequest(c, "text is required for text messages")
	}
	if msgType != "" && msgType != "text" && strings.TrimSpace(req.MediaURL) == "" {
		return router.ResponseBadRequest(c, "media_url is required for media messages")
	}

	msg, err := ctl.svc.Send(c.UserContext(), tenantID, &req)
	if err != nil {
		return sendError(c, err)
	}
	return router.ResponseCreatedWithData(c, "Message sent", msg)
}

// React forwards an emoji reaction to an existing message.
func (ctl *Controller) React(c *fiber.Ctx) error {
	tenantID := auth.TenantID(c)

	var req typBridge.RequestSendReaction
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if strings.TrimSpace(req.MessageID) == "" {
		return router.ResponseBadRequest(c, "message_id is required")
	}
	if err := validateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if req.Emoji != "" && !gomoji.ContainsEmoji(req.Emoji) && uniseg.GraphemeClusterCount(req.Emoji) != 1 {
		return router.ResponseBadRequest(c, "emoji must be a single emoji character, or empty to remove the reaction")
	}

	if err := ctl.svc.React(c.UserContext(), tenantID, &req); err != nil {
		return sendError(c, err)
	}
	return router.ResponseSuccess(c, "Reaction sent")
}

// validateRecipient accepts either a bare international phone or a full JID.
func validateRecipient(to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("to is required")
	}
	if strings.Contains(to, "@") {
		return nil
	}
	return validation.ValidatePhone(to)
}

func sendError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, connection.ErrNoActiveConnection):
		return router.ResponseBadRequest(c, connection.ErrNoActiveConnection.Error())
	case errors.Is(err, ErrInvalidMessageType):
		return router.ResponseBadRequest(c, ErrInvalidMessageType.Error())
	}
	var backendErr *transport.BackendError
	if errors.As(err, &backendErr) {
		return router.ResponseBadGateway(c, backendErr.Error())
	}
	return router.ResponseInternalError(c, err.Error())
}
