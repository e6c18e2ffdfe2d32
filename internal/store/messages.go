package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageAudio    MessageType = "audio"
	MessageVideo    MessageType = "video"
	MessageDocument MessageType = "document"
)

type SenderType string

const (
	SenderContact SenderType = "contact"
	SenderAgent   SenderType = "agent"
	SenderSystem  SenderType = "system"
)

// Message is one chat event. For non-text types MediaURL stays empty until
// the media engine persists the binary; readers must tolerate the interval.
type Message struct {
	ID             string      `json:"id"`
	TenantID       string      `json:"tenant_id"`
	ConversationID string      `json:"conversation_id"`
	Content        string      `json:"content,omitempty"`
	MessageType    MessageType `json:"message_type"`
	MediaURL       string      `json:"media_url,omitempty"`
	ThumbnailURL   string      `json:"thumbnail_url,omitempty"`
	SenderType     SenderType  `json:"sender_type"`
	ExternalID     string      `json:"external_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

type MessageStore struct {
	db *sql.DB
}

const messageColumns = `id, tenant_id, conversation_id, content, message_type, media_url, thumbnail_url, sender_type, external_id, created_at`

func scanMessage(row interface{ Scan(...interface{}) error }) (*Message, error) {
	var msg Message
	var content, mediaURL, thumbURL, externalID sql.NullString
	err := row.Scan(&msg.ID, &msg.TenantID, &msg.ConversationID, &content, &msg.MessageType, &mediaURL, &thumbURL, &msg.SenderType, &externalID, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	msg.Content = content.String
	msg.MediaURL = mediaURL.String
	msg.ThumbnailURL = thumbURL.String
	msg.ExternalID = externalID.String
	return &msg, nil
}

func (s *MessageStore) Insert(ctx context.Context, msg *Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, tenant_id, conversation_id, content, message_type, media_url, thumbnail_url, sender_type, external_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), CURRENT_TIMESTAMP)
	`, msg.ID, msg.TenantID, msg.ConversationID, msg.Content, msg.MessageType, msg.MediaURL, msg.ThumbnailURL, msg.SenderType, msg.ExternalID)
	return err
}

func (s *MessageStore) Get(ctx context.Context, tenantID string, id string) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	return scanMessage(row)
}

// SetMediaURL is the media engine's single mutation: the persisted object's
// public URL, plus the thumbnail URL for image media. Last write wins.
func (s *MessageStore) SetMediaURL(ctx context.Context, id string, mediaURL string, thumbnailURL string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET media_url = $1, thumbnail_url = NULLIF($2, '') WHERE id = $3
	`, mediaURL, thumbnailURL, id)
	return err
}
