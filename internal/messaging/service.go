package messaging

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/veltacrm/whatsapp-bridge/internal/connection"
	"github.com/veltacrm/whatsapp-bridge/internal/media"
	"github.com/veltacrm/whatsapp-bridge/internal/store"
	typBridge "github.com/veltacrm/whatsapp-bridge/internal/types"
	"github.com/veltacrm/whatsapp-bridge/pkg/gateway"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
)

var ErrInvalidMessageType = errors.New("message type must be text, image, audio, video or document")

// MessageRepo is the slice of the message store outbound sends touch.
type MessageRepo interface {
	Insert(ctx context.Context, msg *store.Message) error
}

// Service sends outbound messages through whichever backend the tenant's
// connection is paired with and records a row for each accepted send. The
// backend accept is authoritative; a failed row insert is logged, not rolled
// back.
type Service struct {
	gw          gateway.Client
	connections *connection.Service
	messages    MessageRepo
}

func NewService(gw gateway.Client, connections *connection.Service, messages MessageRepo) *Service {
	return &Service{gw: gw, connections: connections, messages: messages}
}

// Send delivers a text or media message. The connection reference is
// optional; empty selects the tenant's default connected connection.
func (s *Service) Send(ctx context.Context, tenantID string, req *typBridge.RequestSendMessage) (*store.Message, error) {
	msgType := strings.ToLower(strings.TrimSpace(req.Type))
	if msgType == "" {
		msgType = string(store.MessageText)
	}
	if msgType != string(store.MessageText) && !media.ValidKind(msgType) {
		return nil, ErrInvalidMessageType
	}

	conn, err := s.connections.Resolve(ctx, tenantID, req.ConnectionID)
	if err != nil {
		return nil, err
	}

	var result gateway.SendResult
	if msgType == string(store.MessageText) {
		result, err = s.gw.SendText(ctx, conn.SessionData, req.To, req.Text)
	} else {
		result, err = s.gw.SendMedia(ctx, conn.SessionData, req.To, msgType, req.MediaURL, req.Caption)
	}
	if err != nil {
		return nil, err
	}

	msg := &store.Message{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		ConversationID: req.ConversationID,
		Content:        req.Text,
		MessageType:    store.MessageType(msgType),
		MediaURL:       req.MediaURL,
		SenderType:     store.SenderAgent,
		ExternalID:     result.MessageID,
	}
	if msgType != string(store.MessageText) {
		msg.Content = req.Caption
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		log.Print(nil).WithField("external_id", result.MessageID).Error("Failed record outbound message: ", err)
	}
	return msg, nil
}

// React forwards an emoji reaction; reactions are backend state only and do
// not create a message row.
func (s *Service) React(ctx context.Context, tenantID string, req *typBridge.RequestSendReaction) error {
	conn, err := s.connections.Resolve(ctx, tenantID, req.ConnectionID)
	if err != nil {
		return err
	}
	return s.gw.SendReaction(ctx, conn.SessionData, req.To, req.MessageID, req.Emoji)
}
