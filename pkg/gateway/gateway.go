package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/veltacrm/whatsapp-bridge/pkg/env"
	"github.com/veltacrm/whatsapp-bridge/pkg/transport"
)

// ErrNotSupported is returned by an adapter for operations its backend cannot
// perform (the cloud Business API has no QR pairing or contact list).
var ErrNotSupported = errors.New("operation not supported by the configured gateway backend")

// Client is the uniform surface over the two interchangeable WhatsApp
// backends. Callers above this interface never branch on which backend is
// active.
type Client interface {
	CreateSession(ctx context.Context, name string) error
	DeleteSession(ctx context.Context, name string) error
	LogoutSession(ctx context.Context, name string) error
	SessionStatus(ctx context.Context, name string) (SessionState, error)
	QRCode(ctx context.Context, name string) (QRCode, error)

	SendText(ctx context.Context, name string, to string, text string) (SendResult, error)
	SendMedia(ctx context.Context, name string, to string, kind string, mediaURL string, caption string) (SendResult, error)
	SendReaction(ctx context.Context, name string, to string, messageID string, emoji string) error

	DownloadMedia(ctx context.Context, name string, messageID string) (Media, error)
	ResolveLID(ctx context.Context, name string, lid string) (string, error)
	ListContacts(ctx context.Context, name string) ([]RemoteContact, error)
	CheckNumber(ctx context.Context, name string, number string) (bool, error)
}

const (
	BackendBaileys  = "baileys"
	BackendCloudAPI = "cloudapi"
)

// New selects the adapter from configuration. Defaults to the self-hosted
// multi-device daemon.
func New() (Client, error) {
	backend := strings.ToLower(env.GetEnvStringOrDefault("GATEWAY_BACKEND", BackendBaileys))
	baseURL := strings.TrimRight(env.MustGetEnvString("GATEWAY_BASE_URL"), "/")

	var opts []transport.Option
	if key, err := env.GetEnvString("GATEWAY_API_KEY"); err == nil {
		header := env.GetEnvStringOrDefault("GATEWAY_API_KEY_HEADER", "X-API-Key")
		opts = append(opts, transport.WithAPIKey(header, key))
	}
	tr := transport.New(opts...)

	switch backend {
	case BackendBaileys:
		return NewBaileysClient(baseURL, tr), nil
	case BackendCloudAPI:
		return NewCloudAPIClient(baseURL, tr), nil
	default:
		return nil, errors.New("unknown gateway backend: " + backend)
	}
}
