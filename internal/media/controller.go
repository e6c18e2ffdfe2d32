package media

import (
	"context"
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
	engine *Engine
}

func NewController(engine *Engine) *Controller {
	return &Controller{engine: engine}
}

// cancelOnDisconnect trips the token when the request context ends before
// stop is called. A retry pending at that moment becomes a no-op.
func cancelOnDisconnect(ctx context.Context, token *CancelToken) (stop func()) {
	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			select {
			case <-finished:
			default:
				token.Cancel()
			}
		case <-finished:
		}
	}()
	return func() { close(finished) }
}

// Retrieve fetches and persists a message's media. The handler runs the full
// retry sequence within the invocation; a client that disconnects mid-backoff
// cancels the pending retry and can re-trigger later, restarting at attempt 1.
func (ctl *Controller) Retrieve(c *fiber.Ctx) error {
	tenantID := auth.TenantID(c)

	var req typBridge.RequestRetrieveMedia
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if strings.TrimSpace(req.MessageID) == "" {
		return router.ResponseBadRequest(c, "message_id is required")
	}
	if !ValidKind(req.Kind) {
		return router.ResponseBadRequest(c, "kind must be one of image, audio, video, document")
	}
	if req.InlineData == "" && strings.TrimSpace(req.Session) == "" {
		return router.ResponseBadRequest(c, "session is required when no inline payload is provided")
	}

	token := NewCancelToken()
	stop := cancelOnDisconnect(c.Context(), token)
	defer stop()

	resp, err := ctl.engine.RetrieveWithRetry(c.UserContext(), token, Request{
		TenantID:   tenantID,
		MessageID:  req.MessageID,
		Kind:       req.Kind,
		Session:    req.Session,
		InlineData: req.InlineData,
		Mimetype:   req.Mimetype,
		Filename:   req.Filename,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return router.ResponseNotFound(c, "Message not found")
		}
		var terminal *TerminalError
		if errors.As(err, &terminal) {
			return router.ResponseBadGateway(c, terminal.Error())
		}
		var backendErr *transport.BackendError
		if errors.As(err, &backendErr) {
			return router.ResponseBadGateway(c, backendErr.Error())
		}
		return router.ResponseInternalError(c, err.Error())
	}

	return router.ResponseSuccessWithData(c, "Media persisted", resp)
}
