package connection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/veltacrm/whatsapp-bridge/internal/store"
	"github.com/veltacrm/whatsapp-bridge/pkg/gateway"
	"github.com/veltacrm/whatsapp-bridge/pkg/log"
)

// createTimeout bounds the session-create call. Multi-device pairing can
// legitimately take tens of seconds to initialize, so this sits well above
// the transport default.
const createTimeout = 55 * time.Second

var (
	// ErrCreateTimeout is the distinct timeout outcome: the remote session
	// may still be initializing, so the stored status is left untouched.
	ErrCreateTimeout = errors.New("session create timed out; the backend may still be initializing")

	// ErrNoActiveConnection reports that the tenant has no default connected
	// connection for outbound sends.
	ErrNoActiveConnection = errors.New("no active connection")
)

// Repo is the slice of the connection store this service needs.
type Repo interface {
	Create(ctx context.Context, conn *store.Connection) error
	Get(ctx context.Context, tenantID string, id string) (*store.Connection, error)
	List(ctx context.Context, tenantID string) ([]store.Connection, error)
	ListByStatus(ctx context.Context, status store.ConnectionStatus) ([]store.Connection, error)
	DefaultConnected(ctx context.Context, tenantID string) (*store.Connection, error)
	UpdateStatus(ctx context.Context, id string, status store.ConnectionStatus) error
	UpdatePhoneNumber(ctx context.Context, id string, phone string) error
	UpdateQRCode(ctx context.Context, id string, qr string) error
	UpdateSessionData(ctx context.Context, id string, sessionData string) error
	Delete(ctx context.Context, tenantID string, id string) error
}

// Service drives the connection lifecycle: disconnected → connecting →
// connected, with error reachable from connecting (non-timeout failure) and
// from connected (health sweep). Status writes are best-effort; a failed
// write is logged, never retried, and never rolls back the backend action.
type Service struct {
	gw          gateway.Client
	connections Repo
}

func NewService(gw gateway.Client, connections Repo) *Service {
	return &Service{gw: gw, connections: connections}
}

// Create persists the connection record and asks the backend to start the
// session. On timeout the record keeps its pre-call status.
func (s *Service) Create(ctx context.Context, tenantID string, name string, isDefault bool) (*store.Connection, error) {
	conn := &store.Connection{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Name:        name,
		Status:      store.ConnectionConnecting,
		IsDefault:   isDefault,
		SessionData: "wa-" + uuid.NewString(),
	}
	if err := s.connections.Create(ctx, conn); err != nil {
		return nil, err
	}

	createCtx, cancel := context.WithTimeout(ctx, createTimeout)
	defer cancel()

	if err := s.gw.CreateSession(createCtx, conn.SessionData); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return conn, ErrCreateTimeout
		}
		s.writeStatus(conn.ID, store.ConnectionError)
		return conn, err
	}

	return conn, nil
}

// QRCode fetches the pairing artifact. The connection stays connecting until
// a status poll observes connected.
func (s *Service) QRCode(ctx context.Context, tenantID string, id string) (string, int, error) {
	conn, err := s.connections.Get(ctx, tenantID, id)
	if err != nil {
		return "", 0, err
	}

	qr, err := s.gw.QRCode(ctx, conn.SessionData)
	if err != nil {
		return "", 0, err
	}

	dataURI, err := renderQRCode(qr.Code)
	if err != nil {
		return "", 0, err
	}

	if err := s.connections.UpdateQRCode(ctx, conn.ID, dataURI); err != nil {
		log.Print(nil).WithField("connection_id", conn.ID).Warn("Failed to store QR code: " + err.Error())
	}

	return dataURI, qr.Timeout, nil
}

// CheckStatus polls the backend's real state and converges the local record.
// This is the one path allowed to upgrade connecting → connected; the
// periodic sweep only ever downgrades.
func (s *Service) CheckStatus(ctx context.Context, tenantID string, id string) (*store.Connection, error) {
	conn, err := s.connections.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	state, err := s.gw.SessionStatus(ctx, conn.SessionData)
	if err != nil {
		return nil, err
	}

	if state.IsOpen() {
		if conn.Status != store.ConnectionConnected {
			s.writeStatus(conn.ID, store.ConnectionConnected)
			conn.Status = store.ConnectionConnected
		}
		if state.PhoneNumber != "" && state.PhoneNumber != conn.PhoneNumber {
			if err := s.connections.UpdatePhoneNumber(ctx, conn.ID, state.PhoneNumber); err != nil {
				log.Print(nil).WithField("connection_id", conn.ID).Warn("Failed to store phone number: " + err.Error())
			}
			conn.PhoneNumber = state.PhoneNumber
		}
	} else if conn.Status == store.ConnectionConnected {
		s.writeStatus(conn.ID, store.ConnectionDisconnected)
		conn.Status = store.ConnectionDisconnected
	}

	return conn, nil
}

// SweepReport summarizes one health-check pass.
type SweepReport struct {
	Checked    int               `json:"checked"`
	Downgraded int               `json:"downgraded"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// HealthSweep queries the backend for every locally connected record. The
// local store is never trusted as authoritative once a backend call is
// possible: anything but open downgrades to disconnected. An unreachable
// backend is a per-connection error and leaves the status alone, so a
// transient network blip does not flap every connection.
func (s *Service) HealthSweep(ctx context.Context) SweepReport {
	report := SweepReport{Errors: map[string]string{}}

	connected, err := s.connections.ListByStatus(ctx, store.ConnectionConnected)
	if err != nil {
		log.Print(nil).Error("Health sweep could not list connections: " + err.Error())
		return report
	}

	for i := range connected {
		conn := &connected[i]
		report.Checked++

		state, err := s.gw.SessionStatus(ctx, conn.SessionData)
		if err != nil {
			report.Errors[conn.ID] = err.Error()
			continue
		}
		if !state.IsOpen() {
			log.Print(nil).WithField("connection_id", conn.ID).Warn("Backend session is not open, downgrading to disconnected")
			s.writeStatus(conn.ID, store.ConnectionDisconnected)
			report.Downgraded++
		}
	}

	return report
}

// Disconnect asks the backend to log the session out and records the local
// downgrade.
func (s *Service) Disconnect(ctx context.Context, tenantID string, id string) error {
	conn, err := s.connections.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.gw.LogoutSession(ctx, conn.SessionData); err != nil {
		return err
	}
	s.writeStatus(conn.ID, store.ConnectionDisconnected)
	return nil
}

// Delete tears down the remote session and removes the local record.
func (s *Service) Delete(ctx context.Context, tenantID string, id string) error {
	conn, err := s.connections.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.gw.DeleteSession(ctx, conn.SessionData); err != nil {
		return err
	}
	return s.connections.Delete(ctx, tenantID, id)
}

// Recreate replaces the backend session handle while preserving the
// connection's identity.
func (s *Service) Recreate(ctx context.Context, tenantID string, id string) (*store.Connection, error) {
	conn, err := s.connections.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := s.gw.DeleteSession(ctx, conn.SessionData); err != nil {
		log.Print(nil).WithField("connection_id", conn.ID).Warn("Failed to tear down old backend session: " + err.Error())
	}

	sessionName := "wa-" + uuid.NewString()
	createCtx, cancel := context.WithTimeout(ctx, createTimeout)
	defer cancel()

	if err := s.gw.CreateSession(createCtx, sessionName); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return conn, ErrCreateTimeout
		}
		s.writeStatus(conn.ID, store.ConnectionError)
		return conn, err
	}

	if err := s.connections.UpdateSessionData(ctx, conn.ID, sessionName); err != nil {
		return nil, err
	}
	s.writeStatus(conn.ID, store.ConnectionConnecting)
	conn.SessionData = sessionName
	conn.Status = store.ConnectionConnecting
	return conn, nil
}

// List returns the tenant's connections.
func (s *Service) List(ctx context.Context, tenantID string) ([]store.Connection, error) {
	return s.connections.List(ctx, tenantID)
}

// Resolve picks the connection for an outbound send: the named one, or the
// tenant's default connected connection.
func (s *Service) Resolve(ctx context.Context, tenantID string, connectionID string) (*store.Connection, error) {
	if connectionID != "" {
		conn, err := s.connections.Get(ctx, tenantID, connectionID)
		if err != nil {
			return nil, err
		}
		if conn.Status != store.ConnectionConnected {
			return nil, ErrNoActiveConnection
		}
		return conn, nil
	}

	conn, err := s.connections.DefaultConnected(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoActiveConnection
		}
		return nil, err
	}
	return conn, nil
}

func (s *Service) writeStatus(id string, status store.ConnectionStatus) {
	if err := s.connections.UpdateStatus(context.Background(), id, status); err != nil {
		log.Print(nil).WithField("connection_id", id).Warn("Failed to write connection status: " + err.Error())
	}
}
