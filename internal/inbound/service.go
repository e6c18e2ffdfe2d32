package inbound

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/veltacrm/whatsapp-bridge/internal/identity"
	"github.com/veltacrm/whatsapp-bridge/internal/media"
	"github.com/veltacrm/whatsapp-bridge/internal/store"
	typBridge "github.com/veltacrm/whatsapp-bridge/internal/types"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
	"github.com/veltacrm/whatsapp-bridge/pkg/validation"
)

var ErrUnknownSession = errors.New("no connection matches the webhook session")

// FallbackContactName is used when a brand-new sender broadcasts no
// push-name. It is also on the reconciliation sweep's placeholder list, so a
// later sweep replaces it once a real name is observable.
const FallbackContactName = "WhatsApp User"

// ContactRepo is the slice of the contact store inbound processing touches.
type ContactRepo interface {
	FindByIdentifier(ctx context.Context, tenantID string, identifier string) (*store.Contact, error)
	Create(ctx context.Context, contact *store.Contact) error
	UpdatePhone(ctx context.Context, id string, phone string) error
}

// ConnectionRepo maps webhook sessions back to tenants.
type ConnectionRepo interface {
	FindBySession(ctx context.Context, sessionData string) (*store.Connection, error)
}

// MessageRepo records the inbound event.
type MessageRepo interface {
	Insert(ctx context.Context, msg *store.Message) error
}

// Service turns the self-hosted daemon's webhook pushes into contact and
// message rows. An inbound message is the one trustworthy source of a
// sender's real identifier, so it also repairs LID-only contacts and drops
// their cached "not found" state.
type Service struct {
	connections ConnectionRepo
	contacts    ContactRepo
	messages    MessageRepo
	resolver    *identity.Resolver
	engine      *media.Engine
}

func NewService(connections ConnectionRepo, contacts ContactRepo, messages MessageRepo, resolver *identity.Resolver, engine *media.Engine) *Service {
	return &Service{
		connections: connections,
		contacts:    contacts,
		messages:    messages,
		resolver:    resolver,
		engine:      engine,
	}
}

// Receive processes one webhook push end to end. Media persistence is a
// single best-effort attempt; a failed attempt leaves media_url empty for a
// later explicit retrieval.
func (s *Service) Receive(ctx context.Context, payload *typBridge.InboundWebhook) (*store.Message, error) {
	tenantID := payload.TenantID
	if tenantID == "" {
		conn, err := s.connections.FindBySession(ctx, payload.Session)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrUnknownSession
			}
			return nil, err
		}
		tenantID = conn.TenantID
	}

	contact, err := s.upsertContact(ctx, tenantID, payload)
	if err != nil {
		return nil, err
	}

	msgType := strings.ToLower(strings.TrimSpace(payload.Type))
	if msgType == "" || (msgType != string(store.MessageText) && !media.ValidKind(msgType)) {
		msgType = string(store.MessageText)
	}

	conversationID := payload.ConversationID
	if conversationID == "" {
		conversationID = contact.ID
	}

	msg := &store.Message{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		ConversationID: conversationID,
		Content:        payload.Text,
		MessageType:    store.MessageType(msgType),
		SenderType:     store.SenderContact,
		ExternalID:     payload.MessageID,
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}

	if msgType != string(store.MessageText) {
		s.persistMedia(ctx, tenantID, msg.ID, msgType, payload)
	}

	return msg, nil
}

// upsertContact recognizes the sender by phone or LID, creating a row on
// first contact. A non-LID sender identifier is authoritative: it backfills a
// missing phone and invalidates the resolver's negative cache.
func (s *Service) upsertContact(ctx context.Context, tenantID string, payload *typBridge.InboundWebhook) (*store.Contact, error) {
	isLID := strings.HasSuffix(payload.From, "@lid")
	identifier := validation.CleanDigits(strings.SplitN(payload.From, "@", 2)[0])
	if identifier == "" {
		return nil, errors.New("webhook sender carries no identifier")
	}

	contact, err := s.contacts.FindByIdentifier(ctx, tenantID, identifier)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		name := strings.TrimSpace(payload.PushName)
		if name == "" {
			name = FallbackContactName
		}
		contact = &store.Contact{TenantID: tenantID, Name: name}
		if isLID {
			contact.WhatsappLID = identifier
		} else {
			contact.Phone = identifier
		}
		if err := s.contacts.Create(ctx, contact); err != nil {
			return nil, err
		}
		return contact, nil
	}

	if !isLID && validation.IsPlausiblePhone(identifier) && identity.IsLidOnlyContact(contact) {
		if err := s.contacts.UpdatePhone(ctx, contact.ID, identifier); err != nil {
			log.Print(nil).WithField("contact_id", contact.ID).Error("Failed backfill contact phone: ", err)
		} else {
			contact.Phone = identifier
			s.resolver.Invalidate(contact.ID)
		}
	}

	return contact, nil
}

func (s *Service) persistMedia(ctx context.Context, tenantID string, messageID string, kind string, payload *typBridge.InboundWebhook) {
	req := media.Request{
		TenantID:   tenantID,
		MessageID:  messageID,
		Kind:       kind,
		Session:    payload.Session,
		InlineData: payload.Base64,
		Mimetype:   payload.Mimetype,
		Filename:   payload.Filename,
	}
	if _, err := s.engine.Retrieve(ctx, nil, req); err != nil {
		log.Print(nil).WithField("message_id", messageID).Warn("Failed persist inbound media: ", err)
	}
}
