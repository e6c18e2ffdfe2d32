package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionError        ConnectionStatus = "error"
)

// Connection is one tenant device's pairing record. SessionData is the opaque
// backend session handle; QRCode is a transient pairing artifact.
type Connection struct {
	ID          string           `json:"id"`
	TenantID    string           `json:"tenant_id"`
	Name        string           `json:"name"`
	Status      ConnectionStatus `json:"status"`
	PhoneNumber string           `json:"phone_number,omitempty"`
	QRCode      string           `json:"qr_code,omitempty"`
	IsDefault   bool             `json:"is_default"`
	SessionData string           `json:"session_data,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

var ErrNotFound = errors.New("record not found")

type ConnectionStore struct {
	db *sql.DB
}

const connectionColumns = `id, tenant_id, name, status, phone_number, qr_code, is_default, session_data, created_at, updated_at`

func scanConnection(row interface{ Scan(...interface{}) error }) (*Connection, error) {
	var conn Connection
	var phone, qr, sessionData sql.NullString
	err := row.Scan(&conn.ID, &conn.TenantID, &conn.Name, &conn.Status, &phone, &qr, &conn.IsDefault, &sessionData, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	conn.PhoneNumber = phone.String
	conn.QRCode = qr.String
	conn.SessionData = sessionData.String
	return &conn, nil
}

func (s *ConnectionStore) Create(ctx context.Context, conn *Connection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (id, tenant_id, name, status, phone_number, qr_code, is_default, session_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, conn.ID, conn.TenantID, conn.Name, conn.Status, conn.PhoneNumber, conn.QRCode, conn.IsDefault, conn.SessionData)
	return err
}

func (s *ConnectionStore) Get(ctx context.Context, tenantID string, id string) (*Connection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+connectionColumns+` FROM connections WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	return scanConnection(row)
}

func (s *ConnectionStore) List(ctx context.Context, tenantID string) ([]Connection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+connectionColumns+` FROM connections WHERE tenant_id = $1 ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var connections []Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, *conn)
	}
	return connections, rows.Err()
}

// ListByStatus returns connections across all tenants; the health-check sweep
// uses it with ConnectionConnected.
func (s *ConnectionStore) ListByStatus(ctx context.Context, status ConnectionStatus) ([]Connection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+connectionColumns+` FROM connections WHERE status = $1 ORDER BY created_at
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var connections []Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, *conn)
	}
	return connections, rows.Err()
}

// FindBySession maps a backend session handle back to its connection. Session
// handles are globally unique, so inbound webhooks use this to recover the
// owning tenant.
func (s *ConnectionStore) FindBySession(ctx context.Context, sessionData string) (*Connection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+connectionColumns+` FROM connections WHERE session_data = $1 LIMIT 1
	`, sessionData)
	return scanConnection(row)
}

// DefaultConnected returns the tenant's default connected connection, used
// when a send names no specific connection.
func (s *ConnectionStore) DefaultConnected(ctx context.Context, tenantID string) (*Connection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+connectionColumns+` FROM connections
		WHERE tenant_id = $1 AND is_default = TRUE AND status = $2
		LIMIT 1
	`, tenantID, ConnectionConnected)
	return scanConnection(row)
}

func (s *ConnectionStore) UpdateStatus(ctx context.Context, id string, status ConnectionStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE connections SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, status, id)
	return err
}

func (s *ConnectionStore) UpdatePhoneNumber(ctx context.Context, id string, phone string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE connections SET phone_number = NULLIF($1, ''), updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, phone, id)
	return err
}

func (s *ConnectionStore) UpdateQRCode(ctx context.Context, id string, qr string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE connections SET qr_code = NULLIF($1, ''), updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, qr, id)
	return err
}

func (s *ConnectionStore) UpdateSessionData(ctx context.Context, id string, sessionData string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE connections SET session_data = NULLIF($1, ''), updated_at = CURRENT_TIMESTAMP WHERE id = $2
	`, sessionData, id)
	return err
}

func (s *ConnectionStore) Delete(ctx context.Context, tenantID string, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM connections WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	return err
}
