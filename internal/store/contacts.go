package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Contact mirrors the CRM's contact row as far as the bridging layer needs
// it. WhatsappLID is the opaque WhatsApp-internal identifier; a contact
// without a real phone cannot receive outbound sends.
type Contact struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	WhatsappLID string    `json:"whatsapp_lid,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ContactStore struct {
	db *sql.DB
}

const contactColumns = `id, tenant_id, name, phone, whatsapp_lid, avatar_url, created_at, updated_at`

func scanContact(row interface{ Scan(...interface{}) error }) (*Contact, error) {
	var contact Contact
	var phone, lid, avatar sql.NullString
	err := row.Scan(&contact.ID, &contact.TenantID, &contact.Name, &phone, &lid, &avatar, &contact.CreatedAt, &contact.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	contact.Phone = phone.String
	contact.WhatsappLID = lid.String
	contact.AvatarURL = avatar.String
	return &contact, nil
}

func (s *ContactStore) Get(ctx context.Context, tenantID string, id string) (*Contact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	return scanContact(row)
}

// FindByIdentifier matches a contact by phone or LID; used by the inbound
// webhook to recognize a sender.
func (s *ContactStore) FindByIdentifier(ctx context.Context, tenantID string, identifier string) (*Contact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE tenant_id = $1 AND (phone = $2 OR whatsapp_lid = $2)
		LIMIT 1
	`, tenantID, identifier)
	return scanContact(row)
}

func (s *ContactStore) Create(ctx context.Context, contact *Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, tenant_id, name, phone, whatsapp_lid, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, contact.ID, contact.TenantID, contact.Name, contact.Phone, contact.WhatsappLID, contact.AvatarURL)
	return err
}

// UpdatePhone writes a recovered phone number. Bumping updated_at is what
// lets dependent views notice the change on their next fetch.
func (s *ContactStore) UpdatePhone(ctx context.Context, id string, phone string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET phone = NULLIF($1, ''), updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, phone, id)
	return err
}

func (s *ContactStore) UpdateName(ctx context.Context, id string, name string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, name, id)
	return err
}

// ListReconcileCandidates selects contacts flagged by the LID anomaly
// heuristics: no phone at all, phone equal to the stored LID, a phone too
// long to be dialable, or a known placeholder display name. Placeholder
// matching is case-insensitive, same as the sweep's repair check.
func (s *ContactStore) ListReconcileCandidates(ctx context.Context, tenantID string, placeholderNames []string) ([]Contact, error) {
	lowered := make([]string, len(placeholderNames))
	for i, name := range placeholderNames {
		lowered[i] = strings.ToLower(strings.TrimSpace(name))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE tenant_id = $1 AND (
			phone IS NULL
			OR phone = whatsapp_lid
			OR length(phone) > 15
			OR lower(name) = ANY($2::text[])
		)
		ORDER BY updated_at
	`, tenantID, lowered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *contact)
	}
	return contacts, rows.Err()
}
