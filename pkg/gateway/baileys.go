package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/veltacrm/whatsapp-bridge/pkg/transport"
)

// BaileysClient talks to the self-hosted multi-device session daemon. One
// daemon hosts many sessions, addressed by name.
type BaileysClient struct {
	baseURL   string
	transport *transport.Transport
}

func NewBaileysClient(baseURL string, tr *transport.Transport) *BaileysClient {
	return &BaileysClient{baseURL: baseURL, transport: tr}
}

func (g *BaileysClient) sessionURL(name string, parts ...string) string {
	u := g.baseURL + "/sessions/" + url.PathEscape(name)
	for _, part := range parts {
		u += "/" + url.PathEscape(part)
	}
	return u
}

func (g *BaileysClient) CreateSession(ctx context.Context, name string) error {
	body := map[string]string{"name": name}
	return g.transport.DoJSON(ctx, http.MethodPost, g.baseURL+"/sessions", body, nil)
}

func (g *BaileysClient) DeleteSession(ctx context.Context, name string) error {
	return g.transport.DoJSON(ctx, http.MethodDelete, g.sessionURL(name), nil, nil)
}

func (g *BaileysClient) LogoutSession(ctx context.Context, name string) error {
	return g.transport.DoJSON(ctx, http.MethodPost, g.sessionURL(name, "logout"), nil, nil)
}

func (g *BaileysClient) SessionStatus(ctx context.Context, name string) (SessionState, error) {
	var resp sessionStatusResponse
	if err := g.transport.DoJSON(ctx, http.MethodGet, g.sessionURL(name, "status"), nil, &resp); err != nil {
		return SessionState{}, err
	}
	return resp.sessionState(), nil
}

func (g *BaileysClient) QRCode(ctx context.Context, name string) (QRCode, error) {
	var resp qrResponse
	if err := g.transport.DoJSON(ctx, http.MethodGet, g.sessionURL(name, "qr"), nil, &resp); err != nil {
		return QRCode{}, err
	}
	qr := resp.qrCode()
	if qr.Code == "" {
		return QRCode{}, errors.New("backend returned an empty QR code")
	}
	return qr, nil
}

func (g *BaileysClient) SendText(ctx context.Context, name string, to string, text string) (SendResult, error) {
	body := map[string]string{"to": to, "type": "text", "text": text}
	var resp sendResponse
	if err := g.transport.DoJSON(ctx, http.MethodPost, g.sessionURL(name, "messages"), body, &resp); err != nil {
		return SendResult{}, err
	}
	return resp.result(), nil
}

func (g *BaileysClient) SendMedia(ctx context.Context, name string, to string, kind string, mediaURL string, caption string) (SendResult, error) {
	body := map[string]string{"to": to, "type": kind, "url": mediaURL, "caption": caption}
	var resp sendResponse
	if err := g.transport.DoJSON(ctx, http.MethodPost, g.sessionURL(name, "messages"), body, &resp); err != nil {
		return SendResult{}, err
	}
	return resp.result(), nil
}

func (g *BaileysClient) SendReaction(ctx context.Context, name string, to string, messageID string, emoji string) error {
	body := map[string]string{"to": to, "messageId": messageID, "emoji": emoji}
	return g.transport.DoJSON(ctx, http.MethodPost, g.sessionURL(name, "reactions"), body, nil)
}

func (g *BaileysClient) DownloadMedia(ctx context.Context, name string, messageID string) (Media, error) {
	body := map[string]string{"messageId": messageID}
	var resp downloadMediaResponse
	if err := g.transport.DoJSON(ctx, http.MethodPost, g.sessionURL(name, "download-media"), body, &resp); err != nil {
		return Media{}, err
	}

	payload := resp.base64Payload()
	if payload == "" {
		return Media{}, errors.New("backend returned no media payload for message " + messageID)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Media{}, fmt.Errorf("decoding media payload: %w", err)
	}
	return Media{Data: data, Mimetype: resp.mimetype(), Filename: resp.filename()}, nil
}

func (g *BaileysClient) ResolveLID(ctx context.Context, name string, lid string) (string, error) {
	var resp resolveLIDResponse
	if err := g.transport.DoJSON(ctx, http.MethodGet, g.sessionURL(name, "resolve-lid", lid), nil, &resp); err != nil {
		return "", err
	}
	return resp.phone(), nil
}

func (g *BaileysClient) ListContacts(ctx context.Context, name string) ([]RemoteContact, error) {
	var resp contactListResponse
	if err := g.transport.DoJSON(ctx, http.MethodGet, g.sessionURL(name, "contacts"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.contacts(), nil
}

func (g *BaileysClient) CheckNumber(ctx context.Context, name string, number string) (bool, error) {
	var resp checkNumberResponse
	if err := g.transport.DoJSON(ctx, http.MethodGet, g.sessionURL(name, "check-number", number), nil, &resp); err != nil {
		return false, err
	}
	return resp.exists(), nil
}
